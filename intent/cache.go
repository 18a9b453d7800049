package intent

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// probCache stores probability vectors in memory and, when dir is set, on disk.
type probCache struct {
	mu    sync.RWMutex
	m     map[string][]float32
	dir   string
	model string
}

func newProbCache(dir, model string) *probCache {
	return &probCache{m: make(map[string][]float32), dir: dir, model: model}
}

func (c *probCache) key(text string) string {
	h := sha1.Sum([]byte(c.model + "|" + text))
	return hex.EncodeToString(h[:])
}

// lookup checks memory first, then disk.
func (c *probCache) lookup(text string) ([]float32, bool) {
	key := c.key(text)
	c.mu.RLock()
	v, ok := c.m[key]
	c.mu.RUnlock()
	if ok {
		return cloneVector(v), true
	}
	v, ok, err := c.load(key)
	if err != nil || !ok {
		return nil, false
	}
	c.put(key, v)
	return cloneVector(v), true
}

// store keeps v in memory and writes it to disk when a directory is configured.
func (c *probCache) store(text string, v []float32) error {
	key := c.key(text)
	c.put(key, cloneVector(v))
	return c.save(key, v)
}

func (c *probCache) put(key string, v []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = v
}

func (c *probCache) path(key string) string {
	return filepath.Join(c.dir, key+".bin")
}

func (c *probCache) load(key string) ([]float32, bool, error) {
	if c.dir == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(c.path(key))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("read cached probabilities: %w", err)
	}
	vec, err := decodeVector(data)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", c.path(key), err)
	}
	return vec, true, nil
}

// save writes through a temp file so readers never see a partial vector.
func (c *probCache) save(key string, v []float32) error {
	if c.dir == "" {
		return nil
	}
	path := c.path(key)
	if err := os.WriteFile(path+".tmp", encodeVector(v), 0o644); err != nil {
		return fmt.Errorf("write cached probabilities: %w", err)
	}
	return os.Rename(path+".tmp", path)
}

// encodeVector lays out a uint32 length followed by little-endian float32 values.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 0, 4+4*len(v))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v)))
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, errors.New("cache entry has no length header")
	}
	n := int(binary.LittleEndian.Uint32(data))
	body := data[4:]
	if len(body) < 4*n {
		return nil, fmt.Errorf("cache entry truncated: want %d values, have %d bytes", n, len(body))
	}
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
	}
	return vec, nil
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
