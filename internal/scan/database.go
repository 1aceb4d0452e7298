package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const analysisBucketName = "analyses"

// ErrAnalysisNotFound is returned on a cache miss
var ErrAnalysisNotFound = errors.New("analysis not found")

// AnalysisCache stores analysis documents so a repeated photo skips the
// external call
type AnalysisCache interface {
	// SaveAnalysis stores an analysis document
	SaveAnalysis(analysis *Analysis) error

	// GetAnalysis retrieves an analysis by key, or ErrAnalysisNotFound
	GetAnalysis(key string) (*Analysis, error)

	// DeleteAnalysis removes an analysis
	DeleteAnalysis(key string) error

	// Close closes the underlying store
	Close() error
}

// BoltCache implements the AnalysisCache interface using BoltDB
type BoltCache struct {
	db *bbolt.DB
}

// NewBoltCache opens (or creates) the cache database at path
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(analysisBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltCache{db: db}, nil
}

// SaveAnalysis stores an analysis document
func (b *BoltCache) SaveAnalysis(analysis *Analysis) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(analysisBucketName))
		data, err := json.Marshal(analysis)
		if err != nil {
			return fmt.Errorf("marshaling analysis: %w", err)
		}
		return bucket.Put([]byte(analysis.Key), data)
	})
}

// GetAnalysis retrieves an analysis by key
func (b *BoltCache) GetAnalysis(key string) (*Analysis, error) {
	var analysis *Analysis
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(analysisBucketName))
		data := bucket.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrAnalysisNotFound, key)
		}
		return json.Unmarshal(data, &analysis)
	})
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// DeleteAnalysis removes an analysis from the database
func (b *BoltCache) DeleteAnalysis(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(analysisBucketName))
		return bucket.Delete([]byte(key))
	})
}

// Close closes the database connection
func (b *BoltCache) Close() error {
	return b.db.Close()
}
