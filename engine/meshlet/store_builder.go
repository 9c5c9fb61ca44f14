package meshlet

import (
	"time"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
)

// StoreBuilderOption is a functional option applied to a store during construction via NewStore.
type StoreBuilderOption func(*store)

// WithWorkers sets the maximum number of meshes built concurrently.
//
// Parameters:
//   - n: the worker count; values below 1 are raised to 1
//
// Returns:
//   - StoreBuilderOption: a function that applies the worker option to a store
func WithWorkers(n int) StoreBuilderOption {
	return func(s *store) {
		s.workers = max(n, 1)
	}
}

// WithIdleTimeout sets how long an idle build worker waits for work before exiting.
//
// Parameters:
//   - d: the idle timeout
//
// Returns:
//   - StoreBuilderOption: a function that applies the idle timeout option to a store
func WithIdleTimeout(d time.Duration) StoreBuilderOption {
	return func(s *store) {
		s.idleTimeout = d
	}
}

// WithNormalEncoding selects the quantization used for normals and tangents.
// The default is model.NormalEncodingLegacy.
//
// Parameters:
//   - enc: the encoding
//
// Returns:
//   - StoreBuilderOption: a function that applies the encoding option to a store
func WithNormalEncoding(enc model.NormalEncoding) StoreBuilderOption {
	return func(s *store) {
		s.normalEncoding = enc
	}
}

// WithCache attaches a build cache. Meshes with identical geometry reuse the cached build.
//
// Parameters:
//   - c: the cache, or nil to disable caching
//
// Returns:
//   - StoreBuilderOption: a function that applies the cache option to a store
func WithCache(c *Cache) StoreBuilderOption {
	return func(s *store) {
		s.cache = c
	}
}
