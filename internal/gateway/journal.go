package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	journalPrefix = "event:"
	// DefaultJournalRetention is how many events are kept before the oldest are pruned.
	DefaultJournalRetention = 1000
	seekEnd                 = byte(0xFF)
)

// EventType classifies journal events.
type EventType string

const (
	EventScoringPass       EventType = "scoring_pass"
	EventLevelUp           EventType = "level_up"
	EventAchievementUnlock EventType = "achievement_unlock"
)

// Event is one journal entry.
type Event struct {
	ID           uuid.UUID `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Type         EventType `json:"type"`
	Commits      int       `json:"commits,omitempty"`
	XPGained     int       `json:"xp_gained,omitempty"`
	TotalXP      int       `json:"total_xp"`
	Level        int       `json:"level"`
	Streak       int       `json:"streak"`
	Achievements []string  `json:"achievements,omitempty"`
}

func (e Event) storageKey() []byte {
	// Zero padded nanoseconds keep lexical key order chronological.
	return []byte(fmt.Sprintf("%s%020d:%s", journalPrefix, e.Timestamp.UnixNano(), e.ID))
}

// Journal is an append-only log of scoring events stored in BadgerDB.
type Journal struct {
	db        *badger.DB
	retention int
	logger    *zap.Logger
}

// OpenJournal opens (or creates) the journal in dir. An empty dir keeps the
// journal in memory, which is what tests use.
func OpenJournal(dir string, retention int, logger *zap.Logger) (*Journal, error) {
	opts := badger.DefaultOptions(dir).WithLogger(newBadgerLogger(logger))
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if retention <= 0 {
		retention = DefaultJournalRetention
	}
	return &Journal{db: db, retention: retention, logger: logger}, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores events, assigning IDs where missing, then prunes the oldest
// events beyond the retention limit.
func (j *Journal) Append(events ...Event) error {
	err := j.db.Update(func(txn *badger.Txn) error {
		for _, event := range events {
			if event.ID == uuid.Nil {
				event.ID = uuid.New()
			}
			data, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			if err := txn.Set(event.storageKey(), data); err != nil {
				return fmt.Errorf("failed to store event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return j.prune()
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(limit int) ([]Event, error) {
	var events []Event
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(journalPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append([]byte(journalPrefix), seekEnd)); it.Valid(); it.Next() {
			if limit > 0 && len(events) >= limit {
				break
			}
			var event Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal event: %w", err)
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (j *Journal) prune() error {
	var keys [][]byte
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(journalPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	excess := len(keys) - j.retention
	if excess <= 0 {
		return nil
	}

	j.logger.Debug("pruning journal", zap.Int("events", excess))
	return j.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys[:excess] {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to prune event: %w", err)
			}
		}
		return nil
	})
}

type badgerLogger struct {
	logger *zap.Logger
}

func newBadgerLogger(l *zap.Logger) *badgerLogger {
	return &badgerLogger{logger: l.Named("badger")}
}

// Debugf implements badger.Logger.
func (l *badgerLogger) Debugf(format string, a ...any) {
	l.logger.Debug(fmt.Sprintf(format, a...))
}

// Errorf implements badger.Logger.
func (l *badgerLogger) Errorf(format string, a ...any) {
	l.logger.Error(fmt.Sprintf(format, a...))
}

// Infof implements badger.Logger.
func (l *badgerLogger) Infof(format string, a ...any) {
	l.logger.Debug(fmt.Sprintf(format, a...))
}

// Warningf implements badger.Logger.
func (l *badgerLogger) Warningf(format string, a ...any) {
	l.logger.Warn(fmt.Sprintf(format, a...))
}

var _ badger.Logger = (*badgerLogger)(nil)
