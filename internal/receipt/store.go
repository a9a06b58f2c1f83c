package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

// ErrNotFound means no receipt has the requested approval ID.
var ErrNotFound = errors.New("receipt not found")

// Store persists receipts grouped by status.
type Store interface {
	// Put saves a receipt under its current status.
	Put(r *Receipt) error

	// Get finds a receipt by approval ID in any status.
	Get(id string) (*Receipt, error)

	// List returns receipts in one status, oldest first.
	List(status Status) ([]*Receipt, error)

	// Move saves r under r.Status and removes it from from, atomically.
	Move(r *Receipt, from Status) error

	// FindByReference returns the first receipt in any status whose
	// reference number equals ref.
	FindByReference(ref string) (*Receipt, error)

	// Close releases the underlying database.
	Close() error
}

// BoltStore implements Store with one bbolt bucket per status.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens or creates the receipt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening receipt store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, s := range Statuses {
			if _, err := tx.CreateBucketIfNotExists([]byte(s)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Put saves a receipt under its current status.
func (b *BoltStore) Put(r *Receipt) error {
	if !r.Status.Valid() {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, r)
	})
}

func put(tx *bbolt.Tx, r *Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	return tx.Bucket([]byte(r.Status)).Put([]byte(r.ApprovalID), data)
}

// Get finds a receipt by approval ID in any status.
func (b *BoltStore) Get(id string) (*Receipt, error) {
	var found *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		for _, s := range Statuses {
			data := tx.Bucket([]byte(s)).Get([]byte(id))
			if data == nil {
				continue
			}
			var r Receipt
			if err := json.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("unmarshaling receipt %s: %w", id, err)
			}
			found = &r
			return nil
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// List returns receipts in one status, oldest first.
func (b *BoltStore) List(status Status) ([]*Receipt, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(status)).ForEach(func(k, v []byte) error {
			var r Receipt
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshaling receipt %s: %w", k, err)
			}
			receipts = append(receipts, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].SubmittedAt.Before(receipts[j].SubmittedAt)
	})
	return receipts, nil
}

// Move saves r under r.Status and removes it from from in one transaction.
func (b *BoltStore) Move(r *Receipt, from Status) error {
	if !r.Status.Valid() || !from.Valid() {
		return fmt.Errorf("invalid move %q -> %q", from, r.Status)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		src := tx.Bucket([]byte(from))
		if src.Get([]byte(r.ApprovalID)) == nil {
			return fmt.Errorf("%w: %s in %s", ErrNotFound, r.ApprovalID, from)
		}
		if err := src.Delete([]byte(r.ApprovalID)); err != nil {
			return err
		}
		return put(tx, r)
	})
}

// FindByReference returns the first receipt in any status whose reference
// number equals ref, or ErrNotFound.
func (b *BoltStore) FindByReference(ref string) (*Receipt, error) {
	ref = strings.TrimSpace(ref)
	var found *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		for _, s := range Statuses {
			c := tx.Bucket([]byte(s)).Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				var r Receipt
				if err := json.Unmarshal(v, &r); err != nil {
					return fmt.Errorf("unmarshaling receipt %s: %w", k, err)
				}
				if strings.TrimSpace(r.ReferenceNumber) == ref {
					found = &r
					return nil
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: reference %s", ErrNotFound, ref)
	}
	return found, nil
}

// Close closes the database.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
