package vector

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/viant/vec/search"
)

const (
	flatMagic   = uint32(0x4D495658) // "MIVX"
	flatVersion = uint32(1)

	// normTolerance bounds how far a stored vector's norm may drift from 1.
	normTolerance = 1e-3
)

// Flat is an exact brute-force inner-product index over unit-norm vectors.
// Vectors are kept in insertion order; ids are assigned by the caller and
// strictly increase, which makes the tie-break on equal scores deterministic.
type Flat struct {
	dims       int
	ids        []int64
	vectors    [][]float32
	generation string
	mu         sync.RWMutex
}

// NewFlat creates a flat index with the given dimension.
func NewFlat(dims int) (*Flat, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Flat{
		dims:    dims,
		ids:     make([]int64, 0),
		vectors: make([][]float32, 0),
	}, nil
}

// Add appends vectors with the given ids. Every vector must have the index
// dimension and unit norm within tolerance.
func (f *Flat) Add(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != f.dims {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimension, len(vectors[i]), f.dims)
		}
		if n := float64(search.Float32s(vectors[i]).Magnitude()); math.Abs(n-1) > normTolerance {
			return fmt.Errorf("%w: norm %f for id %d", ErrNorm, n, id)
		}
		vec := make([]float32, f.dims)
		copy(vec, vectors[i])
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, vec)
	}
	return nil
}

// Search returns the top-k vectors by inner product, ties broken by lower id.
// An empty index returns an empty result, not an error.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != f.dims {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimension, len(query), f.dims)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return []*Result{}, nil
	}
	q := search.Float32s(query)
	scores := make([]*Result, len(f.ids))
	for i, vec := range f.vectors {
		// Both sides are unit-norm, so 1 - cosine distance is <q, v>.
		dot := 1 - float64(q.CosineDistance(vec))
		scores[i] = &Result{ID: f.ids[i], Score: dot}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ID < scores[j].ID
	})
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Remove deletes the vectors with the given ids; unknown ids are ignored
// (record existence is enforced by the metadata store above this layer).
func (f *Flat) Remove(ctx context.Context, ids []int64) error {
	removeSet := make(map[int64]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	newIDs := make([]int64, 0, len(f.ids))
	newVectors := make([][]float32, 0, len(f.vectors))
	for i, id := range f.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVectors = append(newVectors, f.vectors[i])
		}
	}
	f.ids = newIDs
	f.vectors = newVectors
	return nil
}

// Clear removes all vectors. Idempotent.
func (f *Flat) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = f.ids[:0]
	f.vectors = f.vectors[:0]
}

// IDs returns the stored ids in insertion order.
func (f *Flat) IDs() []int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]int64, len(f.ids))
	copy(out, f.ids)
	return out
}

// Generation returns the persistence generation marker loaded or set last.
func (f *Flat) Generation() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.generation
}

// SetGeneration records the persistence generation marker written by Save.
func (f *Flat) SetGeneration(g string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation = g
}

// Save persists the index to path atomically (temp file + rename). The file
// carries a CRC32 checksum and the generation marker so torn writes are
// detectable on load.
func (f *Flat) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	var buf bytes.Buffer
	for _, v := range []uint32{flatMagic, flatVersion, uint32(f.dims), uint32(len(f.ids))} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	gen := []byte(f.generation)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(gen))); err != nil {
		return fmt.Errorf("write generation len: %w", err)
	}
	buf.Write(gen)
	for i, id := range f.ids {
		if err := binary.Write(&buf, binary.LittleEndian, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		buf.Write(float32SliceToBytes(f.vectors[i]))
	}
	sum := crc32.ChecksumIEEE(buf.Bytes())
	if err := binary.Write(&buf, binary.LittleEndian, sum); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. A
// missing file leaves the index unchanged. A truncated, altered, or
// wrong-magic file fails with ErrCorrupt rather than loading partially.
func (f *Flat) Load(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	if len(data) < 24 {
		return fmt.Errorf("%w: file too short (%d bytes)", ErrCorrupt, len(data))
	}
	payload, tail := data[:len(data)-4], data[len(data)-4:]
	if crc32.ChecksumIEEE(payload) != binary.LittleEndian.Uint32(tail) {
		return fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	r := bytes.NewReader(payload)
	var magic, version, dim, count uint32
	for _, dst := range []*uint32{&magic, &version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return fmt.Errorf("%w: header: %v", ErrCorrupt, err)
		}
	}
	if magic != flatMagic {
		return fmt.Errorf("%w: bad magic %#x", ErrCorrupt, magic)
	}
	if version != flatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}
	if int(dim) != f.dims {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimension, dim, f.dims)
	}
	var genLen uint32
	if err := binary.Read(r, binary.LittleEndian, &genLen); err != nil {
		return fmt.Errorf("%w: generation len: %v", ErrCorrupt, err)
	}
	gen := make([]byte, genLen)
	if _, err := io.ReadFull(r, gen); err != nil {
		return fmt.Errorf("%w: generation: %v", ErrCorrupt, err)
	}

	ids := make([]int64, 0, count)
	vectors := make([][]float32, 0, count)
	buf := make([]byte, f.dims*4)
	for i := uint32(0); i < count; i++ {
		var id int64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return fmt.Errorf("%w: record %d id: %v", ErrCorrupt, i, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("%w: record %d vector: %v", ErrCorrupt, i, err)
		}
		ids = append(ids, id)
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.Len())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = ids
	f.vectors = vectors
	f.generation = string(gen)
	return nil
}

// Size returns the number of vectors in the index.
func (f *Flat) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Close is a no-op for Flat.
func (f *Flat) Close() error {
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
