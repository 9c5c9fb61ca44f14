package scene

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/config"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/meshlet"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity() [16]float32 {
	var m [16]float32
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

func translation(x, y, z float32) [16]float32 {
	m := identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// testMeshes yields three instances: an opaque grid inside the identity clip volume, the
// same grid moved far outside it, and a transparent grid inside it.
func testMeshes() []*model.Mesh {
	return []*model.Mesh{
		model.NewGridMesh("ground", 1, 1, model.WithTransforms(identity(), translation(10, 0, 0))),
		model.NewGridMesh("glass", 1, 1, model.WithAlphaMode(model.AlphaModeBlend)),
	}
}

func testDescriptor() RenderDescriptor {
	return RenderDescriptor{ViewProj: identity()}
}

func newTestScene(t *testing.T, options ...SceneBuilderOption) (*scene, *renderertest.Backend) {
	t.Helper()
	backend := renderertest.NewBackend()
	r, err := renderer.NewRendererWithBackend(backend)
	require.NoError(t, err)

	store := meshlet.NewStore(meshlet.WithIdleTimeout(100 * time.Millisecond))
	t.Cleanup(store.Close)

	s := NewScene(append([]SceneBuilderOption{WithStore(store)}, options...)...).(*scene)
	s.Init(r)
	return s, backend
}

func newReadyScene(t *testing.T, options ...SceneBuilderOption) (*scene, *renderertest.Backend) {
	t.Helper()
	s, backend := newTestScene(t, options...)
	s.AddMeshes(testMeshes())
	s.CreateResources()
	backend.ResetOps()
	return s, backend
}

// assertStartStates checks that every per-frame buffer sits in the state it was allocated in.
func assertStartStates(t *testing.T, l *resourceLayout) {
	t.Helper()
	for _, f := range l.slots {
		assert.Equal(t, resource.StateUniform, f.frame.State(), "slot %d frame", f.slot)
		assert.Equal(t, resource.StateShaderWrite, f.counts.State(), "slot %d counts", f.slot)
		assert.Equal(t, resource.StateIndirectArgument, f.args.State(), "slot %d args", f.slot)
		assert.Equal(t, resource.StateIndirectArgument, f.commands.State(), "slot %d commands", f.slot)
		assert.Equal(t, resource.StateCopySource, f.countsStaging.State())
		assert.Equal(t, resource.StateCopySource, f.argsStaging.State())
		assert.Equal(t, resource.StateCopyDest, f.countsReadback.State())
		assert.Equal(t, resource.StateCopyDest, f.argsReadback.State())
		for _, v := range f.visible {
			assert.Equal(t, resource.StateShaderRead, v.State(), "slot %d visible %s", f.slot, v.Label())
		}
	}
	for _, b := range l.static.buffers() {
		assert.Equal(t, resource.StateShaderRead, b.State(), b.Label())
	}
}

func TestNewSceneDefaults(t *testing.T) {
	s := NewScene()
	t.Cleanup(s.Store().Close)

	assert.Equal(t, "scene", s.Name())
	assert.Equal(t, 2, s.FramesInFlight())
	assert.Equal(t, config.VisibilityFrustum, s.Visibility().Name())
	assert.True(t, s.Store().Empty())
	assert.False(t, s.Stats().Valid)
}

func TestSceneOptions(t *testing.T) {
	s := NewScene(WithName("demo"), WithFramesInFlight(0), WithVisibility(PassThrough{}), WithVisibility(nil))
	t.Cleanup(s.Store().Close)

	assert.Equal(t, "demo", s.Name())
	assert.Equal(t, 1, s.FramesInFlight())
	assert.Equal(t, config.VisibilityPassThrough, s.Visibility().Name())
}

func TestInitRegistersPipelines(t *testing.T) {
	_, backend := newTestScene(t)

	assert.Equal(t, []string{
		"register compute meshlet_cull_frustum",
		"register compute meshlet_cull_finalize",
		"register compute meshlet_expand",
		"register render meshlet_draw_opaque",
		"register render meshlet_draw_transparent",
	}, backend.Ops())
}

func TestSharedRendererRegistersCullPerPredicate(t *testing.T) {
	a, backend := newTestScene(t)
	b := NewScene(WithVisibility(PassThrough{})).(*scene)
	t.Cleanup(b.store.Close)
	backend.ResetOps()

	b.Init(a.r)

	assert.Equal(t, []string{"register compute meshlet_cull_passthrough"}, backend.Ops())
}

func TestRenderRecordsFrame(t *testing.T) {
	s, backend := newReadyScene(t)

	s.Render(testDescriptor(), nil)

	assert.Equal(t, []string{
		"begin",
		"write 48@0", "write 32@0", "write 192@0",
		"copy 48", "copy 32",
		"dispatch meshlet_cull_frustum 1,1,1",
		"dispatch meshlet_cull_finalize 1,1,1",
		"dispatch_indirect meshlet_expand @32",
		"begin_pass",
		"draw_indirect meshlet_draw_opaque @0",
		"draw_indirect meshlet_draw_transparent @16",
		"end_pass",
		"submit",
	}, backend.Ops())
	assert.Equal(t, 1, backend.Submits())
	assertStartStates(t, s.layout)
}

func TestRenderCullWorkgroups(t *testing.T) {
	var placements [][16]float32
	for i := range 130 {
		placements = append(placements, translation(float32(i), 0, 0))
	}
	s, backend := newTestScene(t)
	s.AddMeshes([]*model.Mesh{model.NewGridMesh("tiles", 1, 1, model.WithTransforms(placements...))})
	s.CreateResources()
	backend.ResetOps()

	s.Render(testDescriptor(), nil)

	assert.Contains(t, backend.Ops(), "dispatch meshlet_cull_frustum 3,1,1")
}

func TestResetWrites(t *testing.T) {
	s, _ := newReadyScene(t)
	f := s.layout.slots[1]
	settings := config.Default().Render
	desc := testDescriptor()
	desc.DepthPyramidIndex = 3
	desc.LatePass = true
	desc.CameraPosition = [3]float32{1, 2, 3}

	writes := s.orch.resetWrites(f, desc, &settings)
	require.Len(t, writes, 3)
	assert.Same(t, f.countsStaging, writes[0].Buffer)
	assert.Same(t, f.argsStaging, writes[1].Buffer)
	assert.Same(t, f.frame, writes[2].Buffer)

	counts := model.UnmarshalDrawCounts(writes[0].Data)
	assert.Equal(t, model.GPUDrawCounts{TotalCount: 3, DepthPyramidIndex: 3, IsLatePass: 1}, counts)

	require.Len(t, writes[1].Data, 2*int(drawArgsSize))
	for _, pass := range RenderPasses() {
		off := pass.ArgsOffset()
		assert.Equal(t, model.ResetDrawArgs(), model.UnmarshalDrawArgs(writes[1].Data[off:off+drawArgsSize]), pass.String())
	}

	u := writes[2].Data
	require.Len(t, u, int(frameUniformsSize))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(u[172:]))
	assert.Equal(t, settings.VisibilityFlags(), binary.LittleEndian.Uint32(u[176:]))
	assert.Equal(t, uint32(settings.Encoding()), binary.LittleEndian.Uint32(u[180:]))
	assert.Equal(t, uint32(3*model.MeshletGroupSize), binary.LittleEndian.Uint32(u[184:]))
}

func TestRenderLeavesSettingsUntouched(t *testing.T) {
	s, _ := newReadyScene(t)
	settings := config.Default().Render
	settings.ReadbackStats = true
	before := settings

	s.Render(testDescriptor(), &settings)

	assert.Equal(t, before, settings)
}

func TestPerFrameBuffersPerSlot(t *testing.T) {
	s, _ := newReadyScene(t, WithFramesInFlight(3))
	l := s.layout
	require.Len(t, l.slots, 3)
	assert.Equal(t, uint32(3), l.instanceCount)
	assert.Equal(t, uint32(96), l.meshletCapacity)

	seen := map[*resource.Buffer]bool{}
	for _, b := range l.static.buffers() {
		seen[b] = true
	}
	for _, f := range l.slots {
		assert.Equal(t, uint64(2*3*16), f.commands.Size())
		assert.Equal(t, uint64(48), f.counts.Size())
		assert.Equal(t, uint64(32), f.args.Size())
		assert.Equal(t, uint64(192), f.frame.Size())
		for _, v := range f.visible {
			assert.Equal(t, uint64(96*8), v.Size())
		}
		for _, b := range f.buffers() {
			assert.False(t, seen[b], "buffer %q is shared", b.Label())
			seen[b] = true
		}
		for _, g := range f.groups() {
			assert.NotNil(t, g)
		}
	}
}

func TestRenderAlternatesSlots(t *testing.T) {
	s, backend := newReadyScene(t)

	s.Render(testDescriptor(), nil)
	s.Render(testDescriptor(), nil)
	assert.Zero(t, backend.Polls())

	// The third frame reuses slot 0 and waits for its first submission.
	s.Render(testDescriptor(), nil)
	assert.Equal(t, 1, backend.Polls())

	s.Render(testDescriptor(), nil)
	assert.Equal(t, 1, backend.Polls())
	assert.Equal(t, 4, backend.Submits())
	assert.Equal(t, uint64(4), s.orch.frame)
	assertStartStates(t, s.layout)
}

func TestReadbackStats(t *testing.T) {
	s, backend := newReadyScene(t, WithFramesInFlight(1))
	counts := model.GPUDrawCounts{OpaqueVisible: 1, OpaqueCulled: 1, TransparentVisible: 1, TotalCount: 3}
	args := []model.GPUDrawArgs{
		{VertexCount: model.MaxMeshletTriangles * 3, InstanceCount: 32},
		{VertexCount: model.MaxMeshletTriangles * 3, InstanceCount: 32},
	}
	backend.ReadData = map[uint64][]byte{
		48: counts.Marshal(),
		32: model.MarshalAll(args),
	}
	settings := config.Default().Render
	settings.ReadbackStats = true

	s.Render(testDescriptor(), &settings)
	assert.Equal(t, []string{
		"begin",
		"write 48@0", "write 32@0", "write 192@0",
		"copy 48", "copy 32",
		"dispatch meshlet_cull_frustum 1,1,1",
		"dispatch meshlet_cull_finalize 1,1,1",
		"dispatch_indirect meshlet_expand @32",
		"copy 48", "copy 32",
		"begin_pass",
		"draw_indirect meshlet_draw_opaque @0",
		"draw_indirect meshlet_draw_transparent @16",
		"end_pass",
		"submit",
	}, backend.Ops())
	assert.False(t, s.Stats().Valid)
	assertStartStates(t, s.layout)

	backend.ResetOps()
	s.Render(testDescriptor(), &settings)

	ops := backend.Ops()
	require.GreaterOrEqual(t, len(ops), 3)
	assert.Equal(t, []string{"begin", "read 48", "read 32"}, ops[:3])

	stats := s.Stats()
	assert.True(t, stats.Valid)
	assert.Equal(t, uint64(0), stats.Frame)
	assert.Equal(t, counts, stats.Counts)
	assert.Equal(t, uint32(32), stats.VisibleMeshlets(RenderPassOpaque))
	assert.Equal(t, uint32(32), stats.VisibleMeshlets(RenderPassTransparent))
}

func TestReadbackDisabledSkipsCopies(t *testing.T) {
	s, backend := newReadyScene(t, WithFramesInFlight(1))

	s.Render(testDescriptor(), nil)
	s.Render(testDescriptor(), nil)

	for _, op := range backend.Ops() {
		assert.NotContains(t, op, "read")
	}
	assert.False(t, s.Stats().Valid)
}

func TestRenderSkipsUnavailablePass(t *testing.T) {
	s, backend := newReadyScene(t)
	backend.FailRenderPass = true

	s.Render(testDescriptor(), nil)

	ops := backend.Ops()
	assert.NotContains(t, ops, "begin_pass")
	assert.NotContains(t, ops, "draw_indirect meshlet_draw_opaque @0")
	assert.Contains(t, ops, "dispatch_indirect meshlet_expand @32")
	assert.Equal(t, "submit", ops[len(ops)-1])
	assertStartStates(t, s.layout)

	backend.FailRenderPass = false
	backend.ResetOps()
	s.Render(testDescriptor(), nil)
	assert.Contains(t, backend.Ops(), "draw_indirect meshlet_draw_transparent @16")
}

func TestEmptySceneRenders(t *testing.T) {
	s, backend := newTestScene(t)
	s.AddMeshes(nil)
	s.CreateResources()
	backend.ResetOps()

	s.Render(testDescriptor(), nil)

	ops := backend.Ops()
	assert.Contains(t, ops, "dispatch meshlet_cull_frustum 0,1,1")
	assert.Contains(t, ops, "dispatch_indirect meshlet_expand @32")
	assert.Equal(t, "submit", ops[len(ops)-1])
	assert.Equal(t, uint32(0), s.layout.instanceCount)
}

func TestLifecyclePanics(t *testing.T) {
	store := meshlet.NewStore(meshlet.WithIdleTimeout(100 * time.Millisecond))
	t.Cleanup(store.Close)
	s := NewScene(WithStore(store))

	assert.PanicsWithValue(t, "scene: CreateResources called before Init", s.CreateResources)
	assert.PanicsWithValue(t, "scene: Render called before CreateResources", func() {
		s.Render(testDescriptor(), nil)
	})
}

func TestAddMeshesTwicePanics(t *testing.T) {
	s, _ := newTestScene(t)
	s.AddMeshes(testMeshes())

	assert.Panics(t, func() { s.AddMeshes(testMeshes()) })

	s.Reset()
	assert.NotPanics(t, func() { s.AddMeshes(testMeshes()) })
	assert.Len(t, s.Store().Instances(), 3)
}

func TestDeinitReleasesAndRebuilds(t *testing.T) {
	s, backend := newReadyScene(t)
	s.Render(testDescriptor(), nil)

	old := s.layout
	var buffers []*resource.Buffer
	buffers = append(buffers, old.static.buffers()...)
	for _, f := range old.slots {
		buffers = append(buffers, f.buffers()...)
	}

	r := s.r
	s.Deinit()
	for _, b := range buffers {
		assert.True(t, b.Released(), b.Label())
	}
	assert.Nil(t, s.r)
	assert.Panics(t, func() { s.Render(testDescriptor(), nil) })

	// The meshlet build survives, so a re-init only re-creates GPU state.
	created := backend.BuffersCreated()
	s.Init(r)
	s.CreateResources()
	assert.Equal(t, len(buffers), backend.BuffersCreated()-created)
	assert.NotSame(t, old, s.layout)

	backend.ResetOps()
	s.Render(testDescriptor(), nil)
	assert.Equal(t, "submit", backend.Ops()[len(backend.Ops())-1])
}

func TestCreateResourcesReplacesLayout(t *testing.T) {
	s, _ := newReadyScene(t)
	old := s.layout
	counts := old.slots[0].counts

	s.CreateResources()

	assert.True(t, counts.Released())
	assert.NotSame(t, old, s.layout)
	assert.False(t, s.layout.slots[0].counts.Released())
}

func TestResetReleasesResources(t *testing.T) {
	s, _ := newReadyScene(t)
	counts := s.layout.slots[0].counts

	s.Reset()

	assert.True(t, counts.Released())
	assert.Nil(t, s.layout)
	assert.True(t, s.Store().Empty())
	assert.Panics(t, func() { s.Render(testDescriptor(), nil) })
}
