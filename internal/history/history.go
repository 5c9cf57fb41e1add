// Package history keeps a record of every download job in a bbolt database.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var Buckets = struct {
	Metadata []byte
	Jobs     []byte
}{
	Metadata: []byte("__metadata__"),
	Jobs:     []byte("jobs"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

var ErrUnknownVersion = errors.New("history database is from a newer version")

type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

type Record struct {
	ID          string    `json:"id"`
	PageURL     string    `json:"page_url"`
	Site        string    `json:"site,omitempty"`
	Title       string    `json:"title,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	PlaylistURL string    `json:"playlist_url,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	Segments    int       `json:"segments"`
	Dropped     []int     `json:"dropped,omitempty"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// NewRecord starts a record for a job that is about to run.
func NewRecord(pageURL string) *Record {
	return &Record{
		ID:        uuid.NewString(),
		PageURL:   pageURL,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Finish sets the final status, and the error if there was one.
func (r *Record) Finish(status Status, err error) {
	r.Status = status
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = time.Now().UTC()
}

type Store interface {
	// Write inserts or replaces a record by ID.
	Write(record *Record) error
	// List returns every record, newest first.
	List() ([]Record, error)
	Delete(id string) error
	Close() error
}

type database struct {
	*bbolt.DB
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (_ Store, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history %v: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Jobs); err != nil {
			return err
		}

		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes == nil {
			version = 0
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}
		if version > currentVersion {
			return fmt.Errorf("%w: %d", ErrUnknownVersion, version)
		}

		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &database{db}, nil
}

func (d *database) List() (records []Record, err error) {
	err = d.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Jobs)
		return bucket.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("corrupt record %s: %w", k, err)
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}

func (d *database) Write(record *Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(Buckets.Jobs).Put([]byte(record.ID), data)
	})
}

func (d *database) Delete(id string) error {
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(Buckets.Jobs).Delete([]byte(id))
	})
}

// NilStore discards everything.
type NilStore struct{}

func (NilStore) Write(*Record) error     { return nil }
func (NilStore) List() ([]Record, error) { return nil, nil }
func (NilStore) Delete(string) error     { return nil }
func (NilStore) Close() error            { return nil }
