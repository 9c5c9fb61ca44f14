// Package scene drives the GPU meshlet pipeline: it owns the meshlet build of a scene, maps
// it onto GPU buffers and records the per-frame cull, expand and indirect draw sequence.
package scene

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/config"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/logger"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/meshlet"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer"
	"go.uber.org/zap"
)

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.Mutex

	name           string
	store          meshlet.Store
	visibility     VisibilityTest
	framesInFlight int

	r      renderer.Renderer
	layout *resourceLayout
	orch   *orchestrator
	stats  FrameStats

	log *zap.Logger
}

// Scene owns the meshes of a frame loop and renders them through the GPU-driven meshlet
// pipeline.
//
// Lifecycle: Init attaches a renderer and registers the pipelines, AddMeshes builds the
// meshlets, CreateResources uploads them and allocates the per-frame buffers, then Render
// runs once per frame. Deinit releases every GPU allocation; Init and CreateResources may
// follow to rebuild after a device loss. Reset discards the meshes so AddMeshes may run again.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Init attaches the renderer and registers the cull, expand and draw pipelines with it.
	// Panics if pipeline registration fails.
	//
	// Parameters:
	//   - r: the renderer the scene records into
	Init(r renderer.Renderer)

	// AddMeshes builds the meshlets of every mesh and creates one instance per placement.
	// Panics if meshes were already added since the last Reset. An empty slice adds nothing.
	//
	// Parameters:
	//   - meshes: the meshes to register; they must outlive the scene's instances
	AddMeshes(meshes []*model.Mesh)

	// Reset releases the GPU resources and discards every mesh, meshlet and instance.
	Reset()

	// CreateResources uploads the meshlet build and allocates the per-frame buffers and bind
	// groups. Must be called after every AddMeshes and before the first Render. Calling it
	// again replaces the previous resources. Panics if Init has not been called or the
	// device fails to create a buffer.
	CreateResources()

	// Render records and submits one frame. It blocks while the frame's slot is still in use
	// by the GPU. Panics if CreateResources has not been called.
	//
	// Parameters:
	//   - desc: the frame inputs
	//   - settings: the render settings, read but never modified; nil means config defaults
	Render(desc RenderDescriptor, settings *config.RenderSettings)

	// Deinit releases every GPU allocation of the scene and detaches the renderer. The meshlet
	// build is kept.
	Deinit()

	// Stats returns the most recent culling result read back from the GPU.
	Stats() FrameStats

	// Store returns the scene's meshlet store.
	Store() meshlet.Store

	// Visibility returns the instance visibility predicate.
	Visibility() VisibilityTest

	// FramesInFlight returns the number of per-frame buffer slots.
	FramesInFlight() int
}

var _ Scene = &scene{}

// NewScene creates an empty scene. Without options it uses a default meshlet store, the
// Frustum predicate and two frames in flight.
//
// Parameters:
//   - options: variadic list of SceneBuilderOption functions to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.Mutex{},
		name:           "scene",
		visibility:     Frustum{},
		framesInFlight: 2,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.store == nil {
		s.store = meshlet.NewStore()
	}
	s.log = logger.Named("scene").With(zap.String("scene", s.name))
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Store() meshlet.Store {
	return s.store
}

func (s *scene) Visibility() VisibilityTest {
	return s.visibility
}

func (s *scene) FramesInFlight() int {
	return s.framesInFlight
}

func (s *scene) Init(r renderer.Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := r.RegisterPipelines(newPipelines(s.visibility)...); err != nil {
		panic(fmt.Sprintf("scene: %v", err))
	}
	s.r = r
	s.log.Debug("initialized", zap.String("visibility", s.visibility.Name()))
}

func (s *scene) AddMeshes(meshes []*model.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.AddMeshes(meshes)
	st := s.store.Stats()
	s.log.Info("meshes added",
		zap.Int("meshes", st.Meshes),
		zap.Int("instances", st.Instances),
		zap.Int("meshlets", st.Meshlets),
		zap.Int("triangles", st.Triangles),
	)
}

func (s *scene) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseResources()
	s.store.Reset()
	s.stats = FrameStats{}
}

func (s *scene) CreateResources() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.r == nil {
		panic("scene: CreateResources called before Init")
	}
	s.releaseResources()

	layout := newResourceLayout(s.r, s.store, s.framesInFlight)
	cullKey := cullPipelineKey(s.visibility)
	if err := layout.createBindGroups(s.r, cullKey); err != nil {
		layout.Release()
		panic(fmt.Sprintf("scene: creating bind groups: %v", err))
	}
	s.layout = layout
	s.orch = &orchestrator{
		r:       s.r,
		layout:  layout,
		cullKey: cullKey,
		log:     s.log,
	}
	s.log.Info("resources created",
		zap.Uint32("instances", layout.instanceCount),
		zap.Uint32("meshlet_capacity", layout.meshletCapacity),
		zap.Int("frames_in_flight", s.framesInFlight),
	)
}

func (s *scene) Render(desc RenderDescriptor, settings *config.RenderSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.orch == nil {
		panic("scene: Render called before CreateResources")
	}
	if settings == nil {
		settings = &config.Default().Render
	}
	if err := s.orch.recordFrame(desc, settings); err != nil {
		panic(fmt.Sprintf("scene: recording frame %d: %v", s.orch.frame, err))
	}
	s.stats = s.orch.stats
}

func (s *scene) Deinit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseResources()
	s.r = nil
	s.log.Debug("deinitialized")
}

func (s *scene) Stats() FrameStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// releaseResources releases the layout and drops the orchestrator. Caller holds mu.
func (s *scene) releaseResources() {
	if s.layout != nil {
		s.layout.Release()
		s.layout = nil
	}
	s.orch = nil
}
