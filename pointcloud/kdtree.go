package pointcloud

import (
	"sort"

	"github.com/golang/geo/r3"
)

// KDTree is a static 3-d tree over a cloud's points, used for neighborhood
// queries during normal estimation. The tree indexes into the source cloud,
// so the cloud must not be mutated while the tree is in use.
type KDTree struct {
	cloud *PointCloud
	root  *kdNode
}

type kdNode struct {
	index       int // index into cloud
	axis        int // 0=X 1=Y 2=Z
	left, right *kdNode
}

// ToKDTree builds a balanced k-d tree over the cloud by recursive median
// split.
func ToKDTree(cloud *PointCloud) *KDTree {
	indices := make([]int, cloud.Size())
	for i := range indices {
		indices[i] = i
	}
	t := &KDTree{cloud: cloud}
	t.root = t.build(indices, 0)
	return t
}

func component(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (t *KDTree) build(indices []int, depth int) *kdNode {
	if len(indices) == 0 {
		return nil
	}
	axis := depth % 3
	sort.Slice(indices, func(a, b int) bool {
		return component(t.cloud.At(indices[a]), axis) < component(t.cloud.At(indices[b]), axis)
	})
	median := len(indices) / 2
	return &kdNode{
		index: indices[median],
		axis:  axis,
		left:  t.build(indices[:median], depth+1),
		right: t.build(indices[median+1:], depth+1),
	}
}

// neighbor is one nearest-neighbor result.
type neighbor struct {
	index int
	dist2 float64
}

// neighborHeap keeps the k closest candidates seen so far, worst first.
type neighborHeap struct {
	k     int
	items []neighbor
}

func (h *neighborHeap) worst() float64 {
	if len(h.items) < h.k {
		return -1
	}
	return h.items[0].dist2
}

func (h *neighborHeap) push(n neighbor) {
	if len(h.items) < h.k {
		h.items = append(h.items, n)
		h.up(len(h.items) - 1)
		return
	}
	if n.dist2 >= h.items[0].dist2 {
		return
	}
	h.items[0] = n
	h.down(0)
}

func (h *neighborHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[parent].dist2 >= h.items[i].dist2 {
			break
		}
		h.items[parent], h.items[i] = h.items[i], h.items[parent]
		i = parent
	}
}

func (h *neighborHeap) down(i int) {
	for {
		largest := i
		for _, c := range []int{2*i + 1, 2*i + 2} {
			if c < len(h.items) && h.items[c].dist2 > h.items[largest].dist2 {
				largest = c
			}
		}
		if largest == i {
			return
		}
		h.items[i], h.items[largest] = h.items[largest], h.items[i]
		i = largest
	}
}

// NearestNeighbors returns the indices of up to k points within maxDist of
// p, closest first. Pass maxDist <= 0 for an unbounded radius.
func (t *KDTree) NearestNeighbors(p r3.Vector, k int, maxDist float64) []int {
	if k <= 0 || t.root == nil {
		return nil
	}
	maxDist2 := maxDist * maxDist
	if maxDist <= 0 {
		maxDist2 = -1
	}
	h := &neighborHeap{k: k}
	t.search(t.root, p, maxDist2, h)
	sort.Slice(h.items, func(a, b int) bool { return h.items[a].dist2 < h.items[b].dist2 })
	out := make([]int, len(h.items))
	for i, n := range h.items {
		out[i] = n.index
	}
	return out
}

func (t *KDTree) search(node *kdNode, p r3.Vector, maxDist2 float64, h *neighborHeap) {
	if node == nil {
		return
	}
	pt := t.cloud.At(node.index)
	d2 := pt.Sub(p).Norm2()
	if maxDist2 < 0 || d2 <= maxDist2 {
		h.push(neighbor{index: node.index, dist2: d2})
	}

	diff := component(p, node.axis) - component(pt, node.axis)
	near, far := node.left, node.right
	if diff > 0 {
		near, far = far, near
	}
	t.search(near, p, maxDist2, h)

	// Only cross the splitting plane if the other side could still hold a
	// closer point than the current worst (or fit inside the radius).
	planeDist2 := diff * diff
	if worst := h.worst(); worst >= 0 && planeDist2 > worst {
		return
	}
	if maxDist2 >= 0 && planeDist2 > maxDist2 {
		return
	}
	t.search(far, p, maxDist2, h)
}
