package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltBucket = "task_records"

// BoltStore is a Store backed by a single bbolt file: one bucket, one
// JSON-encoded Record per task id. It needs no external server, making it
// a durable alternative to Memory for local runs and single-process
// deployments that don't warrant a CouchDB cluster.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if necessary) the bbolt database at path
// and ensures its task bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create bucket %s: %w", boltBucket, err)
	}

	return &BoltStore{db: db}, nil
}

// Put marshals rec as JSON and stores it under rec.TaskID, overwriting any
// previous record.
func (b *BoltStore) Put(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: failed to marshal record %s: %w", rec.TaskID, err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		return bucket.Put([]byte(rec.TaskID), data)
	})
}

// Get retrieves and unmarshals the record for taskID.
func (b *BoltStore) Get(ctx context.Context, taskID string) (Record, error) {
	var rec Record
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		data := bucket.Get([]byte(taskID))
		if data == nil {
			return &ErrNotFound{TaskID: taskID}
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ExistsTerminal reports whether taskID's record is Success or Failed. A
// missing record is reported as not terminal, not an error.
func (b *BoltStore) ExistsTerminal(ctx context.Context, taskID string) (bool, error) {
	rec, err := b.Get(ctx, taskID)
	if err != nil {
		var notFound *ErrNotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return rec.Status.IsTerminal(), nil
}

// FetchAll returns every task record in the database.
func (b *BoltStore) FetchAll(ctx context.Context) ([]Record, error) {
	var out []Record
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("store: failed to unmarshal record %s: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying bbolt file handle.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

var _ Store = (*BoltStore)(nil)
