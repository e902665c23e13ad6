//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	"blindchat/domain/search"
	"blindchat/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/index"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// defaultSearchLimit bounds transcript searches when no session limit is configured.
const defaultSearchLimit = 10

type ISessionRepository interface {
	StoreSession(record SessionRecord) error
	SessionsFor(name string) ([]SessionRecord, error)
	ListSessions(cursor *string) ([]SessionRecord, *string, error)
	SearchTranscripts(ctx context.Context, query string, offset int) ([]SessionRecord, uint64, error)
	Flush() error
}

type SessionRepository struct {
	db            *badger.DB
	writer        *bluge.Writer
	log           *slog.Logger
	limitSessions *int

	mu        sync.Mutex
	batch     *index.Batch
	pending   int
	batchSize int
}

func NewSessionRepository(db *badger.DB, writer *bluge.Writer, log *slog.Logger, limitSessions *int, batchSize int) *SessionRepository {
	if batchSize < 1 {
		batchSize = 1
	}
	return &SessionRepository{
		db:            db,
		writer:        writer,
		log:           log,
		limitSessions: limitSessions,
		batch:         bluge.NewBatch(),
		batchSize:     batchSize,
	}
}

// SessionRecord is the archived form of a finished chat. Timestamp marshals
// as RFC 3339, messages keep the order they were exchanged in.
type SessionRecord struct {
	ID        uuid.UUID      `json:"id"`
	User1     string         `json:"user1"`
	User2     string         `json:"user2"`
	Timestamp time.Time      `json:"timestamp"`
	Lang      string         `json:"lang,omitempty"`
	Messages  []RecordedLine `json:"messages"`
}

type RecordedLine struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// StoreSession persists a finished chat in BadgerDB and queues its transcript
// for full-text indexing.
// The primary key is formatted as "session:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two sessions
//     end at the same nanosecond.
//
// Two index keys "idx:user:{name}:{timestamp_padded}:{uuid}" point back to the
// primary key so one participant's history can be read without a full scan.
func (s *SessionRepository) StoreSession(record SessionRecord) error {
	key := sessionKey(record)
	bytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encoding session %s: %v", errors.ErrPersistence, record.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), bytes); err != nil {
			return err
		}
		if err := txn.Set([]byte(userIndexKey(record.User1, record)), []byte(key)); err != nil {
			return err
		}
		return txn.Set([]byte(userIndexKey(record.User2, record)), []byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: storing session %s: %v", errors.ErrPersistence, record.ID, err)
	}
	return s.indexSession(key, record)
}

// SessionsFor returns every archived chat the given display name took part in,
// oldest first. The user index is prefix-scanned, so a name containing ':'
// could reach entries of another name; fetched records are checked against
// the name before being returned.
func (s *SessionRepository) SessionsFor(name string) ([]SessionRecord, error) {
	var records []SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		keys, err := userPrimaryKeys(txn, name)
		if err != nil {
			return err
		}
		fetched, err := s.fetchRecords(txn, keys)
		if err != nil {
			return err
		}
		for _, record := range fetched {
			if record.User1 == name || record.User2 == name {
				records = append(records, record)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reading sessions of %q: %v", errors.ErrPersistence, name, err)
	}
	return records, nil
}

// ListSessions walks the whole archive newest first. The returned cursor
// resumes the scan on the next call; a nil cursor means the archive is
// exhausted. Page size follows limitSessions.
func (s *SessionRepository) ListSessions(cursor *string) ([]SessionRecord, *string, error) {
	var byteRecords [][]byte
	var lastKey string
	var more bool
	err := s.db.View(func(txn *badger.Txn) error {
		prefixStr := "session:"
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Highest possible timestamp, the reverse scan starts at the newest session.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if s.limitSessions != nil && len(byteRecords) == *s.limitSessions {
				s.log.Debug(fmt.Sprintf("Maximum of %d sessions reached", *s.limitSessions))
				more = true
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			byteRecords = append(byteRecords, value)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: listing sessions: %v", errors.ErrPersistence, err)
	}

	records := make([]SessionRecord, 0, len(byteRecords))
	for _, b := range byteRecords {
		record, err := decodeRecord(b)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, record)
	}
	if !more {
		return records, nil, nil
	}
	return records, &lastKey, nil
}

// SearchTranscripts runs a full-text query against the indexed transcripts and
// hydrates the matching sessions from BadgerDB. The query accepts --user,
// --lang and --limit flags, the remaining words are matched against the
// transcript text. Only flushed sessions are searchable. The second return
// value is the total number of hits.
func (s *SessionRepository) SearchTranscripts(ctx context.Context, query string, offset int) ([]SessionRecord, uint64, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: opening transcript index: %v", errors.ErrPersistence, err)
	}
	defer reader.Close()

	parsed := search.NewSearchQuery(query)
	size := defaultSearchLimit
	if s.limitSessions != nil {
		size = *s.limitSessions
	}
	if parsed.Limit > 0 {
		size = parsed.Limit
	}
	request := bluge.NewTopNSearch(size, buildQuery(parsed)).SetFrom(offset).WithStandardAggregations()

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: searching transcripts: %v", errors.ErrPersistence, err)
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
			return nil, 0, fmt.Errorf("%w: reading search hit: %v", errors.ErrPersistence, visitErr)
		}
		next, err = iterator.Next()
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: iterating search hits: %v", errors.ErrPersistence, err)
	}

	var records []SessionRecord
	err = s.db.View(func(txn *badger.Txn) error {
		var viewErr error
		records, viewErr = s.fetchRecords(txn, keys)
		return viewErr
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: hydrating search hits: %v", errors.ErrPersistence, err)
	}
	return records, iterator.Aggregations().Count(), nil
}

// Flush executes the buffered transcript batch. Store queues documents and
// only a flush makes them visible to searches, so callers should flush
// before shutting down.
func (s *SessionRepository) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// buildQuery translates a parsed search into a Bluge query. Flags narrow the
// full-text match, a flag-only search matches every transcript.
func buildQuery(parsed *search.Query) bluge.Query {
	boolean := bluge.NewBooleanQuery()
	switch parsed.Terms {
	case "":
		boolean.AddMust(bluge.NewMatchAllQuery())
	default:
		boolean.AddMust(bluge.NewMatchQuery(parsed.Terms).SetField("transcript"))
	}
	if parsed.User != "" {
		either := bluge.NewBooleanQuery().
			AddShould(bluge.NewTermQuery(parsed.User).SetField("user1")).
			AddShould(bluge.NewTermQuery(parsed.User).SetField("user2")).
			SetMinShould(1)
		boolean.AddMust(either)
	}
	if parsed.Lang != "" {
		boolean.AddMust(bluge.NewTermQuery(parsed.Lang).SetField("lang"))
	}
	return boolean
}

func (s *SessionRepository) indexSession(key string, record SessionRecord) error {
	// Read-only tools open the store without an index
	if s.writer == nil {
		return nil
	}
	doc := bluge.NewDocument(key).
		AddField(bluge.NewKeywordField("user1", record.User1).StoreValue()).
		AddField(bluge.NewKeywordField("user2", record.User2).StoreValue()).
		AddField(bluge.NewKeywordField("lang", record.Lang)).
		AddField(bluge.NewDateTimeField("timestamp", record.Timestamp)).
		AddField(bluge.NewTextField("transcript", transcriptOf(record)))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch.Update(doc.ID(), doc)
	s.pending++
	if s.pending < s.batchSize {
		return nil
	}
	return s.flushLocked()
}

func (s *SessionRepository) flushLocked() error {
	if s.pending == 0 {
		return nil
	}
	if err := s.writer.Batch(s.batch); err != nil {
		return fmt.Errorf("%w: flushing transcript batch: %v", errors.ErrPersistence, err)
	}
	s.batch.Reset()
	s.pending = 0
	return nil
}

// fetchRecords resolves primary keys collected from an index or a search.
// A key whose record is gone is skipped, the index is derived data and may
// briefly lag behind the store.
func (s *SessionRepository) fetchRecords(txn *badger.Txn, keys [][]byte) ([]SessionRecord, error) {
	var records []SessionRecord
	for _, key := range keys {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				s.log.Warn("Indexed session missing from store", "key", string(key))
				continue
			}
			return nil, err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		record, err := decodeRecord(value)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func userPrimaryKeys(txn *badger.Txn, name string) ([][]byte, error) {
	var keys [][]byte
	prefix := []byte(fmt.Sprintf("idx:user:%s:", name))
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		value, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		keys = append(keys, value)
	}
	return keys, nil
}

func sessionKey(record SessionRecord) string {
	return fmt.Sprintf("session:%019d:%s", record.Timestamp.UnixNano(), record.ID)
}

func userIndexKey(name string, record SessionRecord) string {
	return fmt.Sprintf("idx:user:%s:%019d:%s", name, record.Timestamp.UnixNano(), record.ID)
}

func decodeRecord(value []byte) (SessionRecord, error) {
	var record SessionRecord
	if err := json.Unmarshal(value, &record); err != nil {
		return SessionRecord{}, fmt.Errorf("%w: decoding session record: %v", errors.ErrPersistence, err)
	}
	return record, nil
}

func transcriptOf(record SessionRecord) string {
	lines := lo.Map(record.Messages, func(line RecordedLine, _ int) string {
		return fmt.Sprintf("%s: %s", line.User, line.Message)
	})
	return strings.Join(lines, "\n")
}
