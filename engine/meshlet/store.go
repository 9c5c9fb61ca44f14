// Package meshlet decomposes triangle meshes into bounded meshlets and accumulates the shared
// arrays the GPU pipeline reads: meshlet records, packed meshlet data, vertex positions,
// quantized vertex attributes, mesh records and instance records.
package meshlet

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/logger"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"go.uber.org/zap"
)

// Store accumulates the meshlet build of a scene. It is filled once by AddMeshes and read
// by the resource layout when uploading. Reset returns it to the empty state.
type Store interface {
	// AddMeshes builds every mesh and appends the results, in input order, to the shared arrays.
	// One MeshInstance is created per mesh placement. The store must be empty: calling
	// AddMeshes again without Reset panics. An empty slice is a no-op. A mesh with more than
	// model.MaxMeshVertices vertices or malformed indices panics before any work starts.
	//
	// Parameters:
	//   - meshes: the meshes to register; they must outlive the store's instances
	AddMeshes(meshes []*model.Mesh)

	// Reset discards all meshlets, meshes and instances so AddMeshes may be called again.
	Reset()

	// Empty reports whether the store holds no meshes.
	Empty() bool

	// Meshes returns the registered meshes in registration order.
	Meshes() []*model.Mesh

	// Instances returns one record per mesh placement.
	Instances() []model.MeshInstance

	// Meshlets returns the meshlet records, including padding records.
	Meshlets() []model.GPUMeshlet

	// MeshletData returns the shared vertex-reference and packed-triangle words.
	MeshletData() []uint32

	// Positions returns three float32 per vertex of every mesh.
	Positions() []float32

	// Attributes returns the quantized shading data of every vertex.
	Attributes() []model.GPUVertexAttribute

	// GPUMeshes returns the GPU mesh records in registration order.
	GPUMeshes() []model.GPUMesh

	// GPUInstances returns the GPU instance records in instance order.
	GPUInstances() []model.GPUMeshInstance

	// VisibleCapacity returns the number of meshlet slots needed if every meshlet of every
	// instance were visible at once.
	VisibleCapacity() uint32

	// NormalEncoding returns the quantization used for normals and tangents.
	NormalEncoding() model.NormalEncoding

	// Stats returns aggregate counts of the current build.
	Stats() Stats

	// Close stops the build workers. The store's arrays stay readable.
	Close()
}

// Stats summarises the content of a Store.
type Stats struct {
	Meshes          int
	Instances       int
	Meshlets        int
	PaddingMeshlets int
	Triangles       int
	Vertices        int
	DataWords       int
	CacheHits       uint64
	CacheMisses     uint64
}

type store struct {
	workers        int
	idleTimeout    time.Duration
	normalEncoding model.NormalEncoding
	cache          *Cache
	pool           worker.DynamicWorkerPool
	log            *zap.Logger

	meshes       []*model.Mesh
	instances    []model.MeshInstance
	meshlets     []model.GPUMeshlet
	data         []uint32
	positions    []float32
	attributes   []model.GPUVertexAttribute
	gpuMeshes    []model.GPUMesh
	gpuInstances []model.GPUMeshInstance
	triangles    int
	padding      int
}

var _ Store = &store{}

// NewStore creates an empty meshlet store.
//
// Parameters:
//   - options: variadic list of StoreBuilderOption functions to configure the store
//
// Returns:
//   - Store: the new store
func NewStore(options ...StoreBuilderOption) Store {
	s := &store{
		workers:     4,
		idleTimeout: 2 * time.Second,
	}
	for _, opt := range options {
		opt(s)
	}
	// The pool is created after options so WithWorkers can size it.
	s.pool = worker.NewDynamicWorkerPool(s.workers, 256, s.idleTimeout)
	s.log = logger.Named("meshlet")
	return s
}

func (s *store) Empty() bool {
	return len(s.meshes) == 0 && len(s.meshlets) == 0 && len(s.instances) == 0
}

func (s *store) AddMeshes(meshes []*model.Mesh) {
	if !s.Empty() {
		panic("meshlet: AddMeshes called on a populated store; call Reset first")
	}
	if len(meshes) == 0 {
		return
	}
	for i, m := range meshes {
		if m == nil {
			panic(fmt.Sprintf("meshlet: mesh %d is nil", i))
		}
		checkMesh(m)
	}

	start := time.Now()
	builds := s.buildAll(meshes)
	for i, m := range meshes {
		s.merge(uint32(i), m, builds[i])
	}
	if s.cache != nil {
		if err := s.cache.Flush(); err != nil {
			s.log.Warn("meshlet cache flush failed", zap.Error(err))
		}
	}

	st := s.Stats()
	s.log.Info("meshes built",
		zap.Int("meshes", st.Meshes),
		zap.Int("instances", st.Instances),
		zap.Int("meshlets", st.Meshlets),
		zap.Int("padding", st.PaddingMeshlets),
		zap.Int("triangles", st.Triangles),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// buildAll builds every mesh on the worker pool and waits for all of them. Results are
// indexed by input position so merging stays deterministic.
func (s *store) buildAll(meshes []*model.Mesh) []*meshBuild {
	builds := make([]*meshBuild, len(meshes))

	// A WaitGroup is the barrier; pool.Wait() tracks worker lifetime, not task completion.
	var wg sync.WaitGroup
	for i, m := range meshes {
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID:      i,
			Payload: m.Name,
			Do: func() (any, error) {
				defer wg.Done()
				builds[i] = s.buildOne(m)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return builds
}

func (s *store) buildOne(m *model.Mesh) *meshBuild {
	if s.cache == nil {
		return buildMesh(m, s.normalEncoding)
	}
	key := cacheKey(m, s.normalEncoding)
	if b, ok := s.cache.get(key); ok {
		return b
	}
	b := buildMesh(m, s.normalEncoding)
	s.cache.put(key, b)
	return b
}

// merge appends a mesh-relative build to the shared arrays, rebasing data offsets and vertex
// references, then records the mesh and its placements. Existing entries are never modified.
func (s *store) merge(meshIndex uint32, m *model.Mesh, b *meshBuild) {
	vertexOffset := uint32(len(s.positions) / 3)
	dataBase := uint32(len(s.data))

	m.MeshletOffset = uint32(len(s.meshlets))
	m.MeshletCount = uint32(len(b.Meshlets))
	m.VertexOffset = vertexOffset
	m.IndexCount = b.IndexCount

	s.data = append(s.data, b.Data...)
	for _, ml := range b.Meshlets {
		if ml.IsEmpty() {
			s.meshlets = append(s.meshlets, ml)
			s.padding++
			continue
		}
		ml.DataOffset += dataBase
		ml.MeshIndex = meshIndex
		refs := s.data[ml.DataOffset : ml.DataOffset+uint32(ml.VertexCount)]
		for j := range refs {
			refs[j] += vertexOffset
		}
		s.meshlets = append(s.meshlets, ml)
	}
	s.positions = append(s.positions, b.Positions...)
	s.attributes = append(s.attributes, b.Attributes...)
	s.triangles += int(b.Triangles)

	var flags uint32
	if m.Transparent() {
		flags |= model.FlagTransparent
	}
	sphere := m.BoundingSphere()
	s.meshes = append(s.meshes, m)
	s.gpuMeshes = append(s.gpuMeshes, model.GPUMesh{
		Center:        sphere.Center,
		Radius:        sphere.Radius,
		AABBMin:       m.Bounds.Min,
		AABBMax:       m.Bounds.Max,
		MeshletOffset: m.MeshletOffset,
		MeshletCount:  m.MeshletCount,
		VertexOffset:  m.VertexOffset,
		IndexCount:    m.IndexCount,
		Flags:         flags,
	})

	for _, transform := range m.Placements() {
		idx := uint32(len(s.instances))
		s.instances = append(s.instances, model.MeshInstance{
			Mesh:          m,
			MeshIndex:     meshIndex,
			NodeIndex:     idx,
			InstanceIndex: idx,
			Transform:     transform,
		})
		s.gpuInstances = append(s.gpuInstances, model.GPUMeshInstance{
			Model:     transform,
			MeshIndex: meshIndex,
			Flags:     flags,
			NodeIndex: idx,
		})
	}
}

func (s *store) Reset() {
	for _, m := range s.meshes {
		m.MeshletOffset, m.MeshletCount, m.VertexOffset, m.IndexCount = 0, 0, 0, 0
	}
	s.meshes = nil
	s.instances = nil
	s.meshlets = nil
	s.data = nil
	s.positions = nil
	s.attributes = nil
	s.gpuMeshes = nil
	s.gpuInstances = nil
	s.triangles = 0
	s.padding = 0
}

func (s *store) Meshes() []*model.Mesh {
	return s.meshes
}

func (s *store) Instances() []model.MeshInstance {
	return s.instances
}

func (s *store) Meshlets() []model.GPUMeshlet {
	return s.meshlets
}

func (s *store) MeshletData() []uint32 {
	return s.data
}

func (s *store) Positions() []float32 {
	return s.positions
}

func (s *store) Attributes() []model.GPUVertexAttribute {
	return s.attributes
}

func (s *store) GPUMeshes() []model.GPUMesh {
	return s.gpuMeshes
}

func (s *store) GPUInstances() []model.GPUMeshInstance {
	return s.gpuInstances
}

func (s *store) VisibleCapacity() uint32 {
	var n uint32
	for _, inst := range s.instances {
		n += inst.Mesh.MeshletCount
	}
	return n
}

func (s *store) NormalEncoding() model.NormalEncoding {
	return s.normalEncoding
}

func (s *store) Close() {
	s.pool.Stop()
}

func (s *store) Stats() Stats {
	st := Stats{
		Meshes:          len(s.meshes),
		Instances:       len(s.instances),
		Meshlets:        len(s.meshlets),
		PaddingMeshlets: s.padding,
		Triangles:       s.triangles,
		Vertices:        len(s.positions) / 3,
		DataWords:       len(s.data),
	}
	if s.cache != nil {
		st.CacheHits, st.CacheMisses = s.cache.Counters()
	}
	return st
}
