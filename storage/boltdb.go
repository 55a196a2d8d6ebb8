package storage

import (
	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("paystream")

// BoltDB is a persistent key-value store backed by a single bbolt bucket. It
// is the single-file alternative to LevelDB for small deployments.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB creates or opens a bbolt database at the specified path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltDB{db: db}, nil
}

// Put inserts or updates a key-value pair.
func (bdb *BoltDB) Put(key []byte, value []byte) error {
	return bdb.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

// Get retrieves a value for a given key.
func (bdb *BoltDB) Get(key []byte) ([]byte, error) {
	var value []byte
	err := bdb.db.View(func(tx *bolt.Tx) error {
		found := tx.Bucket(boltBucket).Get(key)
		if found == nil {
			return ErrNotFound
		}
		value = make([]byte, len(found))
		copy(value, found)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Has reports whether a key is present.
func (bdb *BoltDB) Has(key []byte) (bool, error) {
	var ok bool
	err := bdb.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(boltBucket).Get(key) != nil
		return nil
	})
	return ok, err
}

// Close closes the database connection.
func (bdb *BoltDB) Close() error {
	return bdb.db.Close()
}
