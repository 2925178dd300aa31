package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketTextEmbeddings = []byte("text_embeddings")

// DiskCache is a persistent text-embedding cache backed by bbolt, so repeated
// text queries survive process restarts without re-running the text encoder.
// Keys are hashed; values are raw little-endian float32 bytes.
type DiskCache struct {
	db *bbolt.DB
}

// OpenDiskCache opens or creates the cache database at path.
func OpenDiskCache(path string) (*DiskCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTextEmbeddings)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}
	return &DiskCache{db: db}, nil
}

// Get returns the cached embedding for text if present.
func (c *DiskCache) Get(text string) ([]float32, bool) {
	key := cacheKey(text)
	var vec []float32
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTextEmbeddings).Get(key)
		if data == nil {
			return nil
		}
		vec = bytesToFloat32s(data)
		return nil
	})
	if err != nil || vec == nil {
		return nil, false
	}
	return vec, true
}

// Set stores the embedding for text.
func (c *DiskCache) Set(text string, vec []float32) error {
	key := cacheKey(text)
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTextEmbeddings).Put(key, float32sToBytes(vec))
	})
}

// Close closes the underlying database.
func (c *DiskCache) Close() error {
	return c.db.Close()
}

func cacheKey(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return sum[:]
}

func float32sToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
