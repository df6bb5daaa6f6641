package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketEmbeddings = []byte("embeddings")
	bucketMeta       = []byte("meta")
)

// BoltEmbeddingCache persists passage embeddings keyed by model and content,
// so a restart only embeds passages it has not seen.
type BoltEmbeddingCache struct {
	db *bbolt.DB
}

type storedVector struct {
	Vector []float32 `json:"v"`
}

func NewBoltEmbeddingCache(path string) (*BoltEmbeddingCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEmbeddings, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltEmbeddingCache{db: db}, nil
}

func (c *BoltEmbeddingCache) DB() *bbolt.DB {
	return c.db
}

func (c *BoltEmbeddingCache) Close() error {
	return c.db.Close()
}

func embeddingKey(model, text string) []byte {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}

// Lookup returns cached vectors aligned with texts; misses are nil.
func (c *BoltEmbeddingCache) Lookup(model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, text := range texts {
			data := b.Get(embeddingKey(model, text))
			if data == nil {
				continue
			}
			var sv storedVector
			if err := json.Unmarshal(data, &sv); err != nil {
				continue // Treat corrupted entries as misses
			}
			out[i] = sv.Vector
		}
		return nil
	})
	return out, err
}

// Store writes vectors for texts in one transaction.
func (c *BoltEmbeddingCache) Store(model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("store embeddings: %d texts but %d vectors", len(texts), len(vectors))
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, text := range texts {
			data, err := json.Marshal(storedVector{Vector: vectors[i]})
			if err != nil {
				return err
			}
			if err := b.Put(embeddingKey(model, text), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of cached embeddings.
func (c *BoltEmbeddingCache) Count() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear removes every cached embedding, keeping schema metadata.
func (c *BoltEmbeddingCache) Clear() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEmbeddings); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketEmbeddings)
		return err
	})
}
