// Package checkcache persists computed file checksums to a per-volume
// BoltDB file, so a retried VerifyManifestStage run doesn't recompute a
// digest it already has on disk. A bag can carry hundreds of thousands
// of content files; keeping every digest in memory for the run is fine,
// but keeping it across retries means recomputing work that a single
// boltdb.Get avoids.
package checkcache

import (
	"fmt"

	"github.com/boltdb/bolt"
)

var bucketName = []byte("checksums")

// Cache wraps one BoltDB file holding a single bucket of file path to
// checksum string entries.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the cache file at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("opening checkcache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying BoltDB file.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached checksum for file, and whether one was found.
func (c *Cache) Get(file string) (string, bool, error) {
	var value []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(file))
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return string(value), true, nil
}

// Put records the checksum computed for file.
func (c *Cache) Put(file, checksum string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(file), []byte(checksum))
	})
}

// Clear removes every recorded entry, used once a volume's verification
// has completed and the cache is no longer needed.
func (c *Cache) Clear() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketName)
		return err
	})
}
