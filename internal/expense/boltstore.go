package expense

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	expenseBucket = "expenses"
	orderBucket   = "expense_order"
)

// BoltStore implements Store on a bbolt file so expenses survive a
// restart. A second bucket maps an insertion sequence to expense ids so
// List preserves creation order regardless of id shape.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (creating if needed) a bolt-backed store at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(expenseBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(orderBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Save inserts or replaces an expense.
func (b *BoltStore) Save(exp *Expense) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))
		isNew := bucket.Get([]byte(exp.ID)) == nil

		data, err := json.Marshal(exp)
		if err != nil {
			return fmt.Errorf("marshaling expense: %w", err)
		}
		if err := bucket.Put([]byte(exp.ID), data); err != nil {
			return err
		}

		if isNew {
			order := tx.Bucket([]byte(orderBucket))
			seq, err := order.NextSequence()
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)
			return order.Put(key, []byte(exp.ID))
		}
		return nil
	})
}

// Get retrieves an expense by ID.
func (b *BoltStore) Get(id string) (*Expense, error) {
	var exp *Expense
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(expenseBucket)).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &exp)
	})
	if err != nil {
		return nil, err
	}
	return exp, nil
}

// List returns all expenses in insertion order.
func (b *BoltStore) List() ([]*Expense, error) {
	expenses := make([]*Expense, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))
		return tx.Bucket([]byte(orderBucket)).ForEach(func(_, id []byte) error {
			data := bucket.Get(id)
			if data == nil {
				// Deleted expense, stale order entry.
				return nil
			}
			var exp Expense
			if err := json.Unmarshal(data, &exp); err != nil {
				return fmt.Errorf("unmarshaling expense: %w", err)
			}
			expenses = append(expenses, &exp)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// Delete removes an expense and its order entry.
func (b *BoltStore) Delete(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))
		if bucket.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return err
		}

		order := tx.Bucket([]byte(orderBucket))
		c := order.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if string(v) == id {
				return order.Delete(k)
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
