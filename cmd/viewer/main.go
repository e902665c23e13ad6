package main

import (
	"blindchat/internal"
	"blindchat/repositories"
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/jung-kurt/gofpdf"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	name := flag.String("name", "", "Print the archived sessions of a display name")
	find := flag.String("find", "", "Full text search over archived transcripts")
	list := flag.Bool("list", false, "Page through the whole archive, newest first")
	pdf := flag.String("pdf", "", "With --name, export the sessions to this PDF file instead of the table")
	flag.Parse()

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if another process (the engine) holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// The viewer never writes, the Bluge writer stays nil
	repository := repositories.NewSessionRepository(
		db, nil, logs.GetLoggerFromString(config.LogLevel),
		config.LimitSessions, config.BatchSize,
	)

	switch {
	case *name != "":
		records, err := repository.SessionsFor(*name)
		if err != nil {
			log.Fatalf("Failed to read sessions of %q: %v", *name, err)
		}
		if *pdf != "" {
			if err := exportPDF(*pdf, *name, records); err != nil {
				log.Fatalf("PDF export failed: %v", err)
			}
			fmt.Printf("📄 Exported %d session(s) of %s to %s\n", len(records), *name, *pdf)
			return
		}
		renderSessions(records)

	case *find != "":
		records, total, err := searchTranscripts(db, config.BlugeFilepath, *find)
		if err != nil {
			log.Fatalf("Search failed: %v", err)
		}
		fmt.Printf("%d session(s) matching %q\n", total, *find)
		renderSessions(records)

	case *list:
		pageThroughArchive(repository)

	default:
		serveInspector(db, config.DebugPort)
	}
}

// serveInspector exposes the read only web dashboard until interrupted.
func serveInspector(db *badger.DB, port int) {
	// We provide an empty stats provider since the orchestrator isn't running here
	emptyStats := func() map[string]any {
		return map[string]any{
			"Status": "Viewer Mode (Read-Only)",
			"Time":   time.Now().Format(time.RFC822),
		}
	}

	fmt.Printf("🌐 Viewer started at http://localhost:%d/inspect\n", port)

	internal.StartDebugServer(db, port, "/inspect", SessionMapper, emptyStats)

	// StartDebugServer returns immediately, block until Ctrl-C
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

func pageThroughArchive(repository repositories.ISessionRepository) {
	input := bufio.NewScanner(os.Stdin)
	var cursor *string
	for {
		records, next, err := repository.ListSessions(cursor)
		if err != nil {
			log.Fatalf("Failed to list sessions: %v", err)
		}
		renderSessions(records)
		if next == nil {
			return
		}
		fmt.Print("-- more, press enter to continue --")
		if !input.Scan() {
			return
		}
		cursor = next
	}
}

// searchTranscripts is an independent copy of the repository search path.
// bluge.OpenReader is a read only snapshot, safe while the engine holds
// the writer lock on the index directory.
func searchTranscripts(db *badger.DB, indexPath, query string) ([]repositories.SessionRecord, uint64, error) {
	reader, err := bluge.OpenReader(bluge.DefaultConfig(indexPath))
	if err != nil {
		return nil, 0, fmt.Errorf("opening transcript index: %w", err)
	}
	defer reader.Close()

	match := bluge.NewMatchQuery(query).SetField("transcript")
	request := bluge.NewTopNSearch(20, match).WithStandardAggregations()
	iterator, err := reader.Search(context.Background(), request)
	if err != nil {
		return nil, 0, fmt.Errorf("searching transcripts: %w", err)
	}

	var keys [][]byte
	next, err := iterator.Next()
	for err == nil && next != nil {
		visitErr := next.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				keys = append(keys, append([]byte(nil), value...))
			}
			return true
		})
		if visitErr != nil {
			return nil, 0, visitErr
		}
		next, err = iterator.Next()
	}
	if err != nil {
		return nil, 0, err
	}

	var records []repositories.SessionRecord
	err = db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get(key)
			if err != nil {
				// The index may briefly lag behind the store
				continue
			}
			_ = item.Value(func(val []byte) error {
				var record repositories.SessionRecord
				if json.Unmarshal(val, &record) == nil {
					records = append(records, record)
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return records, iterator.Aggregations().Count(), nil
}

// exportPDF renders one participant's archive as a printable transcript.
func exportPDF(path, name string, records []repositories.SessionRecord) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(40, 20, fmt.Sprintf("Chat archive of %s", name))
	pdf.Ln(20)

	for _, record := range records {
		partner := record.User2
		if partner == name {
			partner = record.User1
		}

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 10, fmt.Sprintf("Chat with %s at %s", partner, record.Timestamp.Format(time.RFC3339)))
		pdf.Ln(10)

		pdf.SetFont("Arial", "", 11)
		for _, line := range record.Messages {
			pdf.MultiCell(0, 6, fmt.Sprintf("%s: %s", line.User, line.Message), "", "", false)
		}
		pdf.Ln(6)
	}

	return pdf.OutputFileAndClose(path)
}

func renderSessions(records []repositories.SessionRecord) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Date", "User 1", "User 2", "Lang", "Messages", "First Line"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, record := range records {
		firstLine := ""
		if len(record.Messages) > 0 {
			firstLine = record.Messages[0].Message
			if len(firstLine) > 40 {
				firstLine = firstLine[:40] + "..."
			}
		}
		table.Append([]string{
			record.ID.String()[:8],
			record.Timestamp.Format("2006-01-02 15:04:05"),
			record.User1,
			record.User2,
			record.Lang,
			fmt.Sprintf("%d", len(record.Messages)),
			firstLine,
		})
	}

	table.Render()
}

// Copy of the engine's sessionMapper to keep the viewer independent
func SessionMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	var record repositories.SessionRecord
	if err := json.Unmarshal(val, &record); err != nil {
		return row
	}
	row.Type = "SESSION"
	row.Users = fmt.Sprintf("%s / %s", record.User1, record.User2)
	row.Detail = fmt.Sprintf("%d message(s) [%s]", len(record.Messages), record.Lang)
	return row
}
