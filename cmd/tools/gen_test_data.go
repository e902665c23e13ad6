package main

import (
	"flag"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"blindchat/repositories"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

var names = []string{
	"alice", "bob", "carol", "dave", "erin", "frank",
	"grace", "heidi", "ivan", "judy", "mallory", "oscar",
}

// Dialogues are grouped per language so the detection stays plausible
var dialogues = [][]string{
	{
		"hey stranger, how is your day going?",
		"pretty good, just finished work",
		"lucky you, I still have two hours left",
		"hang in there!",
	},
	{
		"do you also get matched with bots all the time?",
		"I am definitely not a bot",
		"that is exactly what a bot would say",
	},
	{
		"salut, tu viens souvent par ici ?",
		"de temps en temps, quand je m'ennuie au bureau",
		"pareil, les journées sont longues",
	},
	{
		"quel temps chez toi aujourd'hui ?",
		"il pleut depuis ce matin, comme d'habitude",
		"courage, ici c'est grand soleil",
	},
}

func main() {
	// Chemins par défaut alignés sur le moteur
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	indexPath := flag.String("index", "", "Path to the Bluge transcript index (empty skips indexing)")
	count := flag.Int("count", 50, "Number of fake sessions to generate")
	flag.Parse()

	fmt.Println("🚀 BlindChat : Génération de sessions de test...")

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		panic(fmt.Sprintf("Impossible d'ouvrir BadgerDB : %v", err))
	}
	defer db.Close()

	var writer *bluge.Writer
	if *indexPath != "" {
		writer, err = bluge.OpenWriter(bluge.DefaultConfig(*indexPath))
		if err != nil {
			panic(fmt.Sprintf("Impossible d'ouvrir l'index Bluge : %v", err))
		}
		defer writer.Close()
	} else {
		fmt.Println("⚠️  Pas de chemin Bluge fourni (--index), les transcripts ne seront pas indexés")
	}

	log := logs.GetLoggerFromString("error")
	repo := repositories.NewSessionRepository(db, writer, log, nil, 50)

	start := time.Now()
	for i := 0; i < *count; i++ {
		record := fakeSession(i)
		if err := repo.StoreSession(record); err != nil {
			panic(fmt.Sprintf("Echec du stockage de la session %d : %v", i, err))
		}
	}
	if writer != nil {
		if err := repo.Flush(); err != nil {
			panic(fmt.Sprintf("Echec du flush Bluge : %v", err))
		}
	}

	fmt.Printf("📦 %d sessions générées en %v\n", *count, time.Since(start))
	fmt.Println("\n✅ Prêt ! Tu peux maintenant lancer le viewer ou l'inspecteur Badger")
}

// fakeSession fabrique une conversation plausible entre deux inconnus
func fakeSession(i int) repositories.SessionRecord {
	user1 := names[rand.Intn(len(names))]
	user2 := names[rand.Intn(len(names))]
	for user2 == user1 {
		user2 = names[rand.Intn(len(names))]
	}

	lines := dialogues[i%len(dialogues)]
	at := time.Now().UTC().Add(-time.Duration(i) * time.Hour)

	messages := lo.Map(lines, func(line string, n int) repositories.RecordedLine {
		sender := user1
		if n%2 == 1 {
			sender = user2
		}
		return repositories.RecordedLine{User: sender, Message: line}
	})

	info := whatlanggo.Detect(strings.Join(lines, "\n"))

	return repositories.SessionRecord{
		ID:        uuid.New(),
		User1:     user1,
		User2:     user2,
		Timestamp: at,
		Lang:      info.Lang.Iso6391(),
		Messages:  messages,
	}
}
