package meshlet

import (
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
)

// flushVertexThreshold is the vertex count at which a meshlet with no adjacent candidate is
// closed instead of being continued from a disjoint seed triangle.
const flushVertexThreshold = model.MaxMeshletVertices / 2

// cluster is one meshlet in mesh-local terms: the unique mesh vertices it references in
// first-use order and three local (byte) indices per triangle.
type cluster struct {
	vertices  []uint32
	triangles []uint8
}

// adjacency maps every vertex to the triangles that reference it, stored as one flat list
// with per-vertex offsets.
type adjacency struct {
	offsets   []uint32
	triangles []uint32
}

func buildAdjacency(indices []uint16, vertexCount int) adjacency {
	counts := make([]uint32, vertexCount+1)
	for _, v := range indices {
		counts[v]++
	}
	offsets := make([]uint32, vertexCount+1)
	var sum uint32
	for v := range vertexCount {
		offsets[v] = sum
		sum += counts[v]
	}
	offsets[vertexCount] = sum

	fill := make([]uint32, vertexCount)
	copy(fill, offsets[:vertexCount])
	triangles := make([]uint32, len(indices))
	for i, v := range indices {
		triangles[fill[v]] = uint32(i / 3)
		fill[v]++
	}
	return adjacency{offsets: offsets, triangles: triangles}
}

func (a *adjacency) of(v uint16) []uint32 {
	return a.triangles[a.offsets[v]:a.offsets[v+1]]
}

// clusterizer partitions a triangle list into meshlets greedily. Each step picks the unused
// triangle sharing a vertex with the open meshlet that adds the fewest new vertices, with ties
// going to the lowest triangle index. Normal-cone tightness plays no part in the choice.
type clusterizer struct {
	indices []uint16
	adj     adjacency
	used    []bool
	local   []int16
	next    int

	current cluster
	out     []cluster
}

// buildClusters runs the greedy clustering over one mesh.
//
// Parameters:
//   - indices: the mesh triangle list, every index below vertexCount
//   - vertexCount: the number of mesh vertices
//
// Returns:
//   - []cluster: the meshlets in emission order, each within the vertex and triangle caps
func buildClusters(indices []uint16, vertexCount int) []cluster {
	triangleCount := len(indices) / 3
	if triangleCount == 0 {
		return nil
	}
	c := &clusterizer{
		indices: indices[:triangleCount*3],
		adj:     buildAdjacency(indices[:triangleCount*3], vertexCount),
		used:    make([]bool, triangleCount),
		local:   make([]int16, vertexCount),
	}
	for i := range c.local {
		c.local[i] = -1
	}

	for remaining := triangleCount; remaining > 0; remaining-- {
		tri, ok := c.bestAdjacent()
		if !ok {
			if len(c.current.vertices) >= flushVertexThreshold {
				c.flush()
			}
			tri = c.lowestUnused()
		}
		if !c.fits(tri) {
			c.flush()
		}
		c.add(tri)
	}
	c.flush()
	return c.out
}

// newVertices counts the vertices of tri not yet in the open meshlet.
func (c *clusterizer) newVertices(tri uint32) int {
	n := 0
	for k := range 3 {
		if c.local[c.indices[tri*3+uint32(k)]] < 0 {
			n++
		}
	}
	return n
}

func (c *clusterizer) bestAdjacent() (uint32, bool) {
	best, bestCost := uint32(0), 4
	for _, v := range c.current.vertices {
		for _, tri := range c.adj.of(uint16(v)) {
			if c.used[tri] {
				continue
			}
			cost := c.newVertices(tri)
			if cost < bestCost || (cost == bestCost && tri < best) {
				best, bestCost = tri, cost
			}
		}
	}
	return best, bestCost < 4
}

func (c *clusterizer) lowestUnused() uint32 {
	for c.used[c.next] {
		c.next++
	}
	return uint32(c.next)
}

func (c *clusterizer) fits(tri uint32) bool {
	return len(c.current.vertices)+c.newVertices(tri) <= model.MaxMeshletVertices &&
		len(c.current.triangles)/3+1 <= model.MaxMeshletTriangles
}

func (c *clusterizer) add(tri uint32) {
	c.used[tri] = true
	for k := range 3 {
		v := c.indices[tri*3+uint32(k)]
		if c.local[v] < 0 {
			c.local[v] = int16(len(c.current.vertices))
			c.current.vertices = append(c.current.vertices, uint32(v))
		}
		c.current.triangles = append(c.current.triangles, uint8(c.local[v]))
	}
}

func (c *clusterizer) flush() {
	if len(c.current.triangles) == 0 {
		return
	}
	for _, v := range c.current.vertices {
		c.local[v] = -1
	}
	c.out = append(c.out, c.current)
	c.current = cluster{}
}
