// Package journal records handle runs in a local bbolt database so that
// mutations applied to a dataset can be listed later.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var runsBucket = []byte("runs")

// Entry describes one column handled during a run.
type Entry struct {
	ID          string    `json:"id" yaml:"id"`
	Dataset     string    `json:"dataset" yaml:"dataset"`
	Output      string    `json:"output,omitempty" yaml:"output,omitempty"`
	Column      string    `json:"column" yaml:"column"`
	Method      string    `json:"method" yaml:"method"`
	Action      string    `json:"action" yaml:"action"`
	Lower       *float64  `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper       *float64  `json:"upper,omitempty" yaml:"upper,omitempty"`
	Handled     int       `json:"handled" yaml:"handled"`
	Affected    int       `json:"affected" yaml:"affected"`
	Substituted bool      `json:"substituted,omitempty" yaml:"substituted,omitempty"`
	At          time.Time `json:"at" yaml:"at"`
}

// Journal wraps an open bbolt database.
type Journal struct {
	db *bolt.DB
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir journal dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database file lock.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append stores the entries in a single transaction. Missing IDs and
// timestamps are filled in; the stored entries are returned.
func (j *Journal) Append(entries ...Entry) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("journal is not open")
	}
	now := time.Now().UTC()
	out := make([]Entry, len(entries))
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(runsBucket)
		for i, e := range entries {
			if e.ID == "" {
				e.ID = uuid.NewString()
			}
			if e.At.IsZero() {
				e.At = now
			}
			raw, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("marshal entry: %w", err)
			}
			if err := b.Put([]byte(e.ID), raw); err != nil {
				return err
			}
			out[i] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the stored entries, newest first. A dataset filter of ""
// matches everything; limit <= 0 means no limit.
func (j *Journal) List(dataset string, limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("journal is not open")
	}
	var entries []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode entry: %w", err)
			}
			if dataset == "" || e.Dataset == dataset {
				entries = append(entries, e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(a, b int) bool {
		if !entries[a].At.Equal(entries[b].At) {
			return entries[a].At.After(entries[b].At)
		}
		return entries[a].ID < entries[b].ID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
