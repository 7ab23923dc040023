// Package storage keeps a durable history of model load events for the loan
// prediction service. It uses BoltDB as the underlying storage engine.
//
// Applicant data and prediction outcomes are never written here.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	dbFile           = "loan-predictor.db"
	modelLoadsBucket = "model_loads" // Bucket name for model load events
)

// ModelLoadRecord is one attempt to load a model slot at process start.
type ModelLoadRecord struct {
	Model    string    `json:"model"`
	Path     string    `json:"path"`
	Loaded   bool      `json:"loaded"`
	Error    string    `json:"error,omitempty"`
	Name     string    `json:"name,omitempty"`
	Version  string    `json:"version,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	SHA256   string    `json:"sha256,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Store provides persistent storage for model load events using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the database under dataPath and ensures the
// buckets exist.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(modelLoadsBucket)); err != nil {
			return fmt.Errorf("create model loads bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// RecordModelLoad stores rec under the key "model_timestamp".
func (s *Store) RecordModelLoad(rec ModelLoadRecord) error {
	if rec.Model == "" {
		return fmt.Errorf("model load record has no model")
	}
	if rec.LoadedAt.IsZero() {
		rec.LoadedAt = time.Now()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(modelLoadsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal model load: %w", err)
		}

		return b.Put(loadKey(rec.Model, rec.LoadedAt), data)
	})
}

// GetModelLoads returns the load events of one model slot within the
// inclusive time range, oldest first.
func (s *Store) GetModelLoads(model string, start, end time.Time) ([]ModelLoadRecord, error) {
	var records []ModelLoadRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(modelLoadsBucket)).Cursor()

		prefix := []byte(model + "_")
		endKey := loadKey(model, end)

		for k, v := c.Seek(loadKey(model, start)); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}

			var rec ModelLoadRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// RecentModelLoads returns up to limit load events across all slots, newest
// first. A limit of zero or less returns every event.
func (s *Store) RecentModelLoads(limit int) ([]ModelLoadRecord, error) {
	var records []ModelLoadRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(modelLoadsBucket)).ForEach(func(_, v []byte) error {
			var rec ModelLoadRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil // Skip malformed records
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Keys are grouped by model, so order by time across groups.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LoadedAt.After(records[j].LoadedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func loadKey(model string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s_%020d", model, ts.UnixNano()))
}
