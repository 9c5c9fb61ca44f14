package scene

import (
	"github.com/Carmen-Shannon/oxy-meshlet/common"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/config"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
)

// VisibilityTest is the instance visibility predicate evaluated by the cull pass.
//
// The GPU side is a WGSL function
//
//	fn is_visible(instance: MeshInstance, mesh: Mesh) -> bool
//
// spliced into the cull shader. It may read the frame uniforms through the global frame.
// Visible is its CPU mirror and must agree with it.
type VisibilityTest interface {
	// Name identifies the predicate in pipeline keys and logs.
	Name() string

	// WGSL returns the source of is_visible.
	WGSL() string

	// Visible evaluates the predicate on the CPU.
	//
	// Parameters:
	//   - instance: the instance record
	//   - mesh: the placed mesh's record
	//   - frustum: the frame's world-space frustum
	//
	// Returns:
	//   - bool: true if the instance should be drawn
	Visible(instance *model.GPUMeshInstance, mesh *model.GPUMesh, frustum *common.Frustum) bool
}

// PassThrough treats every instance as visible.
type PassThrough struct{}

var _ VisibilityTest = PassThrough{}

func (PassThrough) Name() string {
	return config.VisibilityPassThrough
}

func (PassThrough) WGSL() string {
	return `fn is_visible(instance: MeshInstance, mesh: Mesh) -> bool {
    return true;
}`
}

func (PassThrough) Visible(*model.GPUMeshInstance, *model.GPUMesh, *common.Frustum) bool {
	return true
}

// Frustum rejects instances whose world-space bounding sphere lies entirely outside one of
// the six frustum planes.
type Frustum struct{}

var _ VisibilityTest = Frustum{}

func (Frustum) Name() string {
	return config.VisibilityFrustum
}

func (Frustum) WGSL() string {
	return `fn is_visible(instance: MeshInstance, mesh: Mesh) -> bool {
    let m = instance.model;
    let center = (m * vec4<f32>(mesh.center, 1.0)).xyz;
    let scale = max(length(m[0].xyz), max(length(m[1].xyz), length(m[2].xyz)));
    let radius = mesh.radius * scale;
    for (var i = 0u; i < 6u; i = i + 1u) {
        let plane = frame.planes[i];
        if (dot(plane.xyz, center) + plane.w < -radius) {
            return false;
        }
    }
    return true;
}`
}

func (Frustum) Visible(instance *model.GPUMeshInstance, mesh *model.GPUMesh, frustum *common.Frustum) bool {
	center := common.TransformPoint(instance.Model[:], mesh.Center)
	radius := mesh.Radius * common.MaxScale(instance.Model[:])
	return frustum.SphereVisible(center, radius)
}

// VisibilityByName returns the predicate for a configuration value. Unknown names fall back
// to Frustum.
//
// Parameters:
//   - name: config.VisibilityPassThrough or config.VisibilityFrustum
//
// Returns:
//   - VisibilityTest: the selected predicate
func VisibilityByName(name string) VisibilityTest {
	if name == config.VisibilityPassThrough {
		return PassThrough{}
	}
	return Frustum{}
}

// CullCPU runs the cull pass on the CPU and returns the counts the GPU should produce for
// the same inputs. It ignores per-meshlet culling, so only the instance counters and total
// count are meaningful.
//
// Parameters:
//   - test: the instance predicate
//   - instances: the instance records
//   - meshes: the mesh records
//   - desc: the frame inputs
//   - flags: the frame's Visibility* bits
//
// Returns:
//   - model.GPUDrawCounts: the expected counters
func CullCPU(test VisibilityTest, instances []model.GPUMeshInstance, meshes []model.GPUMesh, desc RenderDescriptor, flags uint32) model.GPUDrawCounts {
	counts := model.ResetDrawCounts(uint32(len(instances)), desc.DepthPyramidIndex, desc.LatePass)
	frustum := common.ExtractFrustumFromMatrix(desc.ViewProj[:])
	for i := range instances {
		inst := &instances[i]
		mesh := &meshes[inst.MeshIndex]
		visible := mesh.MeshletCount > 0
		if visible && flags&model.VisibilityCulling != 0 {
			visible = test.Visible(inst, mesh, &frustum)
		}
		transparent := inst.Flags&model.FlagTransparent != 0
		switch {
		case visible && transparent:
			counts.TransparentVisible++
		case visible:
			counts.OpaqueVisible++
		case transparent:
			counts.TransparentCulled++
		default:
			counts.OpaqueCulled++
		}
	}
	return counts
}
