package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/noah-isme/edumeet/internal/models"
)

var identityBucket = []byte("identity")

type boltEntry struct {
	Identity models.CachedIdentity `json:"identity"`
	SavedAt  time.Time             `json:"saved_at"`
}

// BoltCache keeps identities in a local bbolt file.
type BoltCache struct {
	db  *bbolt.DB
	ttl time.Duration
	now func() time.Time
}

// OpenBolt opens (or creates) the cache file. A zero ttl keeps entries forever.
func OpenBolt(path string, ttl time.Duration) (*BoltCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("identity: create dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("identity: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(identityBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Close releases the file lock.
func (c *BoltCache) Close() error {
	return c.db.Close()
}

func (c *BoltCache) Save(_ context.Context, slot string, id models.CachedIdentity) error {
	data, err := json.Marshal(boltEntry{Identity: id, SavedAt: c.now().UTC()})
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(identityBucket).Put([]byte(slot), data)
	})
}

func (c *BoltCache) Load(_ context.Context, slot string) (*models.CachedIdentity, error) {
	var entry boltEntry
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(identityBucket).Get([]byte(slot))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 && c.now().Sub(entry.SavedAt) > c.ttl {
		return nil, ErrNotFound
	}
	return &entry.Identity, nil
}

func (c *BoltCache) Clear(_ context.Context, slot string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(identityBucket).Delete([]byte(slot))
	})
}
