package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/segmentio/ksuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ThatsOurJake/simhorse-racing/internal/config"
	"github.com/ThatsOurJake/simhorse-racing/internal/sim"
)

// Entity prefixes keep the keyspace partitioned per record type.
const (
	configEntity = "CONFIG"
	resultEntity = "RESULT"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// SavedConfig is a named race file kept for replays.
type SavedConfig struct {
	Name    string          `msgpack:"name" json:"name"`
	SavedAt time.Time       `msgpack:"savedAt" json:"savedAt"`
	File    config.RaceFile `msgpack:"file" json:"file"`
}

// RaceResult is the outcome snapshot of one completed race.
type RaceResult struct {
	ID          string         `msgpack:"id" json:"id"`
	RecordedAt  time.Time      `msgpack:"recordedAt" json:"recordedAt"`
	Seed        int64          `msgpack:"seed" json:"seed"`
	TrackLength float64        `msgpack:"trackLength" json:"trackLength"`
	RaceTime    float64        `msgpack:"raceTime" json:"raceTime"`
	Standings   []sim.Standing `msgpack:"standings" json:"standings"`
}

// Store persists race configurations and results in a badger keyspace with
// msgpack-encoded values.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database at path. An empty path opens an
// in-memory database, which tests use.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open db at %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close compacts and closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildKey(entity, key string) []byte {
	return []byte(entity + "/" + key)
}

func (s *Store) put(entity, key string, value any) error {
	buf, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: failed to marshal %s/%s: %w", entity, key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(buildKey(entity, key), buf)
	})
}

func (s *Store) get(entity, key string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(buildKey(entity, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, entity, key)
	}
	return err
}

func (s *Store) list(entity string, visit func(val []byte) error) error {
	prefix := []byte(entity + "/")
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(visit); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveConfig stores a validated race file under a name, overwriting any
// previous file with the same name.
func (s *Store) SaveConfig(name string, file config.RaceFile) error {
	if name == "" {
		return errors.New("store: config name must not be empty")
	}
	if issues := config.CheckFile(file); len(issues) > 0 {
		return fmt.Errorf("store: refusing to save invalid config: %s", issues[0])
	}
	return s.put(configEntity, name, SavedConfig{Name: name, SavedAt: time.Now().UTC(), File: file})
}

// GetConfig loads a saved race file by name.
func (s *Store) GetConfig(name string) (SavedConfig, error) {
	var saved SavedConfig
	if err := s.get(configEntity, name, &saved); err != nil {
		return SavedConfig{}, err
	}
	return saved, nil
}

// ListConfigs returns every saved config, newest first.
func (s *Store) ListConfigs() ([]SavedConfig, error) {
	var configs []SavedConfig
	err := s.list(configEntity, func(val []byte) error {
		var saved SavedConfig
		if err := msgpack.Unmarshal(val, &saved); err != nil {
			return err
		}
		configs = append(configs, saved)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to list configs: %w", err)
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].SavedAt.After(configs[j].SavedAt)
	})
	return configs, nil
}

// SaveResult stores a completed race outcome and returns its id. A missing
// id gets a fresh ksuid, which also makes keys sort chronologically.
func (s *Store) SaveResult(result RaceResult) (string, error) {
	if result.ID == "" {
		result.ID = ksuid.New().String()
	}
	if result.RecordedAt.IsZero() {
		result.RecordedAt = time.Now().UTC()
	}
	if err := s.put(resultEntity, result.ID, result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// ListResults returns every stored result, newest first.
func (s *Store) ListResults() ([]RaceResult, error) {
	var results []RaceResult
	err := s.list(resultEntity, func(val []byte) error {
		var result RaceResult
		if err := msgpack.Unmarshal(val, &result); err != nil {
			return err
		}
		results = append(results, result)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to list results: %w", err)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].RecordedAt.After(results[j].RecordedAt)
	})
	return results, nil
}
