package meshlet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	a := model.NewSphereMesh("a", 16, 8, 1)
	b := model.NewSphereMesh("b", 16, 8, 1)
	c := model.NewSphereMesh("c", 16, 8, 2)

	assert.Equal(t, cacheKey(a, model.NormalEncodingLegacy), cacheKey(b, model.NormalEncodingLegacy), "names do not matter")
	assert.NotEqual(t, cacheKey(a, model.NormalEncodingLegacy), cacheKey(c, model.NormalEncodingLegacy))
	assert.NotEqual(t, cacheKey(a, model.NormalEncodingLegacy), cacheKey(a, model.NormalEncodingSymmetric))
}

func TestCacheMemoryHit(t *testing.T) {
	cache, err := NewCache(8, "")
	require.NoError(t, err)

	s := newTestStore(t, WithCache(cache))
	s.AddMeshes(sceneMeshes())
	fresh := s.Meshlets()
	freshData := s.MeshletData()

	s.Reset()
	s.AddMeshes(sceneMeshes())
	assert.Equal(t, fresh, s.Meshlets())
	assert.Equal(t, freshData, s.MeshletData())

	hits, misses := cache.Counters()
	assert.Equal(t, uint64(4), misses)
	assert.Equal(t, uint64(4), hits)
	assert.Equal(t, 4, cache.Len())
}

func TestCacheSharedGeometry(t *testing.T) {
	cache, err := NewCache(8, "")
	require.NoError(t, err)

	s := newTestStore(t, WithCache(cache), WithWorkers(1))
	s.AddMeshes([]*model.Mesh{
		model.NewSphereMesh("a", 16, 8, 1),
		model.NewSphereMesh("b", 16, 8, 1),
	})
	assertStoreInvariants(t, s)

	// the second mesh reused the first build but was rebased onto its own range
	m := s.Meshes()[1]
	first := s.Meshlets()[m.MeshletOffset]
	assert.Equal(t, uint32(1), first.MeshIndex)
	assert.Equal(t, m.VertexOffset, s.MeshletData()[first.DataOffset]-s.MeshletData()[s.Meshlets()[0].DataOffset])
}

func TestCacheDiskRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cache, err := NewCache(8, dir)
	require.NoError(t, err)
	built := newTestStore(t, WithCache(cache))
	built.AddMeshes(sceneMeshes())

	files, err := filepath.Glob(filepath.Join(dir, "*.mlz"))
	require.NoError(t, err)
	assert.Len(t, files, 4)

	reopened, err := NewCache(8, dir)
	require.NoError(t, err)
	loaded := newTestStore(t, WithCache(reopened))
	loaded.AddMeshes(sceneMeshes())

	hits, misses := reopened.Counters()
	assert.Equal(t, uint64(4), hits)
	assert.Zero(t, misses)

	assert.Equal(t, built.Meshlets(), loaded.Meshlets())
	assert.Equal(t, built.MeshletData(), loaded.MeshletData())
	assert.Equal(t, built.Positions(), loaded.Positions())
	assert.Equal(t, built.Attributes(), loaded.Attributes())
	assert.Equal(t, built.GPUMeshes(), loaded.GPUMeshes())
}

func TestCacheCorruptFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(8, dir)
	require.NoError(t, err)

	m := singleTriangle()
	key := cacheKey(m, model.NormalEncodingLegacy)
	require.NoError(t, os.WriteFile(cache.path(key), []byte("not a zstd frame"), 0o644))

	s := newTestStore(t, WithCache(cache))
	s.AddMeshes([]*model.Mesh{m})
	assert.Len(t, s.Meshlets(), 32)

	_, misses := cache.Counters()
	assert.Equal(t, uint64(1), misses)

	// the rebuilt entry replaced the corrupt file
	b, err := cache.load(key)
	require.NoError(t, err)
	assert.Len(t, b.Meshlets, 32)
}
