package meshlet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-meshlet/common"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/logger"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// cacheFormat is mixed into every key so builds from an older layout are never reused.
const cacheFormat uint32 = 1

// maxConcurrentWrites bounds the number of cache files written at once by Flush.
const maxConcurrentWrites = 4

// Cache memoizes mesh builds by geometry content. Entries live in an in-memory LRU and,
// when a directory is configured, in msgpack files compressed with zstd. Disk errors are
// logged and treated as misses.
type Cache struct {
	mem *lru.Cache[uint64, *meshBuild]
	dir string
	log *zap.Logger

	mu      sync.Mutex
	pending map[uint64]*meshBuild

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a build cache.
//
// Parameters:
//   - entries: the in-memory capacity, at least 1
//   - dir: the directory for persisted builds, or "" for memory only
//
// Returns:
//   - *Cache: the cache
//   - error: an error if the LRU cannot be created or dir cannot be made
func NewCache(entries int, dir string) (*Cache, error) {
	mem, err := lru.New[uint64, *meshBuild](max(entries, 1))
	if err != nil {
		return nil, fmt.Errorf("creating meshlet cache: %w", err)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating meshlet cache dir %s: %w", dir, err)
		}
	}
	return &Cache{
		mem:     mem,
		dir:     dir,
		log:     logger.Named("meshlet.cache"),
		pending: make(map[uint64]*meshBuild),
	}, nil
}

// cacheKey hashes everything that influences a build: the vertex data, the indices and the
// normal encoding.
func cacheKey(m *model.Mesh, enc model.NormalEncoding) uint64 {
	d := xxhash.New()
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:], cacheFormat)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(enc))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(m.Vertices)))
	_, _ = d.Write(hdr[:])
	_, _ = d.Write(common.SliceToBytes(m.Vertices))
	_, _ = d.Write(common.SliceToBytes(m.Indices))
	return d.Sum64()
}

func (c *Cache) path(key uint64) string {
	return filepath.Join(c.dir, fmt.Sprintf("%016x.mlz", key))
}

// get returns the cached build for key. The returned build is shared and must not be modified.
func (c *Cache) get(key uint64) (*meshBuild, bool) {
	if b, ok := c.mem.Get(key); ok {
		c.hits.Add(1)
		return b, true
	}
	if c.dir != "" {
		b, err := c.load(key)
		switch {
		case err == nil:
			c.mem.Add(key, b)
			c.hits.Add(1)
			return b, true
		case !errors.Is(err, fs.ErrNotExist):
			c.log.Warn("discarding unreadable cache entry", zap.String("path", c.path(key)), zap.Error(err))
		}
	}
	c.misses.Add(1)
	return nil, false
}

// put records a fresh build. Persisting is deferred to Flush.
func (c *Cache) put(key uint64, b *meshBuild) {
	c.mem.Add(key, b)
	if c.dir == "" {
		return
	}
	c.mu.Lock()
	c.pending[key] = b
	c.mu.Unlock()
}

func (c *Cache) load(key uint64) (*meshBuild, error) {
	f, err := os.Open(c.path(key))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var b meshBuild
	if err := msgpack.NewDecoder(zr).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode build: %w", err)
	}
	return &b, nil
}

func (c *Cache) store(key uint64, b *meshBuild) error {
	tmp := c.path(key) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(b); err != nil {
		zw.Close()
		f.Close()
		return fmt.Errorf("failed to encode build: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(key))
}

// Flush writes every build recorded since the last flush to the cache directory.
//
// Returns:
//   - error: the first write error, or nil
func (c *Cache) Flush() error {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]*meshBuild)
	c.mu.Unlock()

	var eg errgroup.Group
	eg.SetLimit(maxConcurrentWrites)
	for key, b := range pending {
		eg.Go(func() error {
			if err := c.store(key, b); err != nil {
				return fmt.Errorf("writing %s: %w", c.path(key), err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Len returns the number of in-memory entries.
func (c *Cache) Len() int {
	return c.mem.Len()
}

// Counters returns the number of lookups that hit and missed since creation.
func (c *Cache) Counters() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
