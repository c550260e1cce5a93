package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Ztola/shopify-ai-seo/internal/domain"
)

const (
	scheduleBucket = "schedule"
	scheduleKey    = "config"
)

// boltStore implements ScheduleStore backed by BoltDB.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed ScheduleStore, creating the record
// with safe defaults on first use.
func openBolt(path string) (ScheduleStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(scheduleBucket))
		if err != nil {
			return err
		}
		if bucket.Get([]byte(scheduleKey)) != nil {
			return nil
		}
		return putConfig(bucket, domain.DefaultScheduleConfig())
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schedule bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Load reads the whole schedule record.
func (b *boltStore) Load() (domain.ScheduleConfig, error) {
	var cfg domain.ScheduleConfig
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(scheduleBucket))
		if bucket == nil {
			return fmt.Errorf("schedule bucket missing")
		}
		loaded, err := getConfig(bucket)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	})
	return cfg, err
}

// Update applies fn to the record and writes it back atomically.
func (b *boltStore) Update(fn func(cfg *domain.ScheduleConfig) error) (domain.ScheduleConfig, error) {
	var cfg domain.ScheduleConfig
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(scheduleBucket))
		if bucket == nil {
			return fmt.Errorf("schedule bucket missing")
		}
		loaded, err := getConfig(bucket)
		if err != nil {
			return err
		}
		if err := fn(&loaded); err != nil {
			return err
		}
		if err := putConfig(bucket, loaded); err != nil {
			return err
		}
		cfg = loaded
		return nil
	})
	return cfg, err
}

func getConfig(bucket *bolt.Bucket) (domain.ScheduleConfig, error) {
	raw := bucket.Get([]byte(scheduleKey))
	if raw == nil {
		return domain.DefaultScheduleConfig(), nil
	}
	var cfg domain.ScheduleConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return domain.ScheduleConfig{}, fmt.Errorf("decode schedule config: %w", err)
	}
	return cfg, nil
}

func putConfig(bucket *bolt.Bucket, cfg domain.ScheduleConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode schedule config: %w", err)
	}
	return bucket.Put([]byte(scheduleKey), raw)
}
