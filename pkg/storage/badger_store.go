package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"site-analyzer/pkg/log"
	"site-analyzer/pkg/models"
	"site-analyzer/pkg/utils"
)

const (
	runKeyPrefix = "run:"       // Prefix for run keys in DB
	resultsDBDir = "results_db" // Subdirectory within stateDir for Badger files
)

// ErrRunNotFound is returned by GetRun for unknown IDs.
var ErrRunNotFound = errors.New("run not found")

// storedRun is the persisted envelope: listing metadata plus the full result.
type storedRun struct {
	RunRecord `json:"record"`
	Result    models.CrawlRunResult `json:"result"`
}

// BadgerResultStore implements ResultStore using BadgerDB.
type BadgerResultStore struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerResultStore opens (or creates) the results database under stateDir.
func NewBadgerResultStore(stateDir string, logger *logrus.Entry) (*BadgerResultStore, error) {
	dbPath := filepath.Join(stateDir, resultsDBDir)
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dbPath, err)
	}

	logger.Debugf("Initializing results database at: %s", dbPath)

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	return &BadgerResultStore{db: db, log: logger}, nil
}

// SaveRun persists a run result under a fresh UUID.
func (s *BadgerResultStore) SaveRun(result *models.CrawlRunResult) (string, error) {
	id := uuid.NewString()
	entry := storedRun{
		RunRecord: RunRecord{
			ID:      id,
			Seed:    result.Seed,
			Status:  result.Status,
			Pages:   len(result.Pages),
			SavedAt: time.Now(),
		},
		Result: *result,
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshaling run %s: %w", id, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(runKeyPrefix+id), value)
	})
	if err != nil {
		return "", fmt.Errorf("%w: saving run %s: %w", utils.ErrDatabase, id, err)
	}

	s.log.WithFields(logrus.Fields{"run_id": id, "seed": result.Seed, "pages": len(result.Pages)}).
		Debug("Run result persisted")
	return id, nil
}

// GetRun retrieves a persisted run by ID.
func (s *BadgerResultStore) GetRun(id string) (*models.CrawlRunResult, error) {
	var entry storedRun
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runKeyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading run %s: %w", utils.ErrDatabase, id, err)
	}
	return &entry.Result, nil
}

// ListRuns returns records for all persisted runs, newest first.
func (s *BadgerResultStore) ListRuns() ([]RunRecord, error) {
	var records []RunRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry storedRun
				if err := json.Unmarshal(val, &entry); err != nil {
					// Skip undecodable entries rather than failing the listing
					s.log.Warnf("Skipping undecodable run entry %s: %v", it.Item().Key(), err)
					return nil
				}
				records = append(records, entry.RunRecord)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing runs: %w", utils.ErrDatabase, err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SavedAt.After(records[j].SavedAt)
	})
	return records, nil
}

// Close cleanly closes the database.
func (s *BadgerResultStore) Close() error {
	return s.db.Close()
}
