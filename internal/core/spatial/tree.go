package spatial

import (
	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/geom"
	"github.com/hedgerow/hedgerow/pkg/sequence"
)

const nullNode = int32(-1)

// DefaultMargin is the fattening applied to leaf bounds. Small moves stay
// inside the fat bound and cost nothing; the margin is the trade between
// reindex churn and broad-phase false positives.
const DefaultMargin = 0.1

type node struct {
	// box is the fat bound for leaves and the children's union for branches.
	box    geom.AABB
	parent int32
	child1 int32
	child2 int32
	// height is zero for leaves; free nodes use -1.
	height int32
	entity ecs.EntityID
}

func (n *node) isLeaf() bool { return n.child1 == nullNode }

// Tree is an incrementally maintained dynamic bounding-volume hierarchy keyed
// by entity identity. Leaves store fattened entity bounds; internal nodes
// store child unions. Sibling selection minimizes perimeter growth and
// ancestor chains are rebalanced with AVL-style rotations on every structural
// change, so the tree is never rebuilt wholesale.
type Tree struct {
	nodes    []node
	root     int32
	freeList int32
	leaves   map[ecs.EntityID]int32
	margin   float64
}

// NewTree creates an empty tree with the given fattening margin. A
// non-positive margin falls back to DefaultMargin.
func NewTree(margin float64) *Tree {
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &Tree{
		root:     nullNode,
		freeList: nullNode,
		leaves:   make(map[ecs.EntityID]int32),
		margin:   margin,
	}
}

// Len returns the number of indexed entities.
func (t *Tree) Len() int { return len(t.leaves) }

// Contains reports whether the entity has a leaf.
func (t *Tree) Contains(id ecs.EntityID) bool {
	_, ok := t.leaves[id]
	return ok
}

// Bound returns the stored (fattened) bound for the entity.
func (t *Tree) Bound(id ecs.EntityID) (geom.AABB, bool) {
	leaf, ok := t.leaves[id]
	if !ok {
		return geom.AABB{}, false
	}
	return t.nodes[leaf].box, true
}

// Insert adds a leaf for the entity, fattened by the tree margin.
func (t *Tree) Insert(id ecs.EntityID, box geom.AABB) error {
	if _, ok := t.leaves[id]; ok {
		return ErrDuplicateEntity
	}
	leaf := t.allocate()
	t.nodes[leaf].box = box.Fattened(t.margin)
	t.nodes[leaf].entity = id
	t.nodes[leaf].height = 0
	t.leaves[id] = leaf
	t.insertLeaf(leaf)
	return nil
}

// Remove detaches the entity's leaf and collapses the now-unary parent.
func (t *Tree) Remove(id ecs.EntityID) error {
	leaf, ok := t.leaves[id]
	if !ok {
		return ErrUnknownEntity
	}
	t.removeLeaf(leaf)
	t.free(leaf)
	delete(t.leaves, id)
	return nil
}

// Update refreshes the entity's bound. While the new tight box stays inside
// the stored fat bound this is a no-op, which both amortizes churn for small
// moves and makes repeated updates with the same box structurally idempotent.
func (t *Tree) Update(id ecs.EntityID, box geom.AABB) error {
	leaf, ok := t.leaves[id]
	if !ok {
		return ErrUnknownEntity
	}
	if t.nodes[leaf].box.Contains(box) {
		return nil
	}
	t.removeLeaf(leaf)
	t.nodes[leaf].box = box.Fattened(t.margin)
	t.insertLeaf(leaf)
	return nil
}

// QueryOverlapping returns a lazy, restartable sequence of every entity whose
// stored bound intersects the query box. No duplicates; order unspecified.
func (t *Tree) QueryOverlapping(box geom.AABB) *sequence.Iterator[ecs.EntityID] {
	return sequence.FromSeq(func(yield func(ecs.EntityID) bool) {
		if t.root == nullNode {
			return
		}
		stack := make([]int32, 0, 64)
		stack = append(stack, t.root)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := &t.nodes[idx]
			if !n.box.Intersects(box) {
				continue
			}
			if n.isLeaf() {
				if !yield(n.entity) {
					return
				}
				continue
			}
			stack = append(stack, n.child1, n.child2)
		}
	})
}

// QueryPairs returns every unordered pair of entities whose stored bounds
// intersect, each pair at most once. This is the broad-phase candidate set.
func (t *Tree) QueryPairs() *sequence.Iterator[ecs.Pair] {
	return sequence.FromSeq(func(yield func(ecs.Pair) bool) {
		for id, leaf := range t.leaves {
			box := t.nodes[leaf].box
			stop := false
			t.QueryOverlapping(box).Each(func(other ecs.EntityID) {
				if stop || other <= id {
					return
				}
				if !yield(ecs.MakePair(id, other)) {
					stop = true
				}
			})
			if stop {
				return
			}
		}
	})
}

// QueryNearest returns up to n entities ordered by ascending distance from
// the point, using a best-first traversal over node bounds.
func (t *Tree) QueryNearest(p geom.V2, n int) []ecs.EntityID {
	if t.root == nullNode || n <= 0 {
		return nil
	}
	out := make([]ecs.EntityID, 0, n)
	pq := sequence.NewPriorityQueue[int32]()
	pq.Enqueue(t.root, t.nodes[t.root].box.DistanceSqToPoint(p))
	for pq.Len() > 0 && len(out) < n {
		idx, _ := pq.Dequeue()
		nd := &t.nodes[idx]
		if nd.isLeaf() {
			out = append(out, nd.entity)
			continue
		}
		pq.Enqueue(nd.child1, t.nodes[nd.child1].box.DistanceSqToPoint(p))
		pq.Enqueue(nd.child2, t.nodes[nd.child2].box.DistanceSqToPoint(p))
	}
	return out
}

// node pool

func (t *Tree) allocate() int32 {
	if t.freeList != nullNode {
		idx := t.freeList
		t.freeList = t.nodes[idx].parent
		t.nodes[idx] = node{parent: nullNode, child1: nullNode, child2: nullNode}
		return idx
	}
	t.nodes = append(t.nodes, node{parent: nullNode, child1: nullNode, child2: nullNode})
	return int32(len(t.nodes) - 1)
}

func (t *Tree) free(idx int32) {
	t.nodes[idx].parent = t.freeList
	t.nodes[idx].height = -1
	t.nodes[idx].entity = ecs.None
	t.freeList = idx
}

// insertLeaf walks down from the root picking the sibling whose bounding cost
// grows least, splices a new parent in, then refits and rebalances ancestors.
func (t *Tree) insertLeaf(leaf int32) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	leafBox := t.nodes[leaf].box
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].box.Perimeter()
		combinedArea := t.nodes[index].box.Union(leafBox).Perimeter()

		// Cost of making a new parent for this node and the leaf.
		cost := 2 * combinedArea
		// Minimum cost of pushing the leaf further down.
		inheritance := 2 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafBox) + inheritance
		cost2 := t.descendCost(child2, leafBox) + inheritance

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index
	oldParent := t.nodes[sibling].parent
	newParent := t.allocate()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].box = leafBox.Union(t.nodes[sibling].box)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent == nullNode {
		t.root = newParent
	} else if t.nodes[oldParent].child1 == sibling {
		t.nodes[oldParent].child1 = newParent
	} else {
		t.nodes[oldParent].child2 = newParent
	}

	t.refitAncestors(t.nodes[leaf].parent)
}

func (t *Tree) descendCost(child int32, leafBox geom.AABB) float64 {
	combined := leafBox.Union(t.nodes[child].box).Perimeter()
	if t.nodes[child].isLeaf() {
		return combined
	}
	return combined - t.nodes[child].box.Perimeter()
}

func (t *Tree) removeLeaf(leaf int32) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	var sibling int32
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.free(parent)
		return
	}

	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.free(parent)

	t.refitAncestors(grandParent)
}

// refitAncestors rebalances and recomputes union boxes and heights from idx
// up to the root.
func (t *Tree) refitAncestors(idx int32) {
	for idx != nullNode {
		idx = t.balance(idx)
		child1 := t.nodes[idx].child1
		child2 := t.nodes[idx].child2
		t.nodes[idx].height = 1 + max32(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[idx].box = t.nodes[child1].box.Union(t.nodes[child2].box)
		idx = t.nodes[idx].parent
	}
}

// balance performs at most one AVL rotation at a and returns the index of
// the subtree's new root.
func (t *Tree) balance(a int32) int32 {
	na := &t.nodes[a]
	if na.isLeaf() || na.height < 2 {
		return a
	}

	b := na.child1
	c := na.child2
	diff := t.nodes[c].height - t.nodes[b].height

	if diff > 1 {
		return t.rotate(a, c, b)
	}
	if diff < -1 {
		return t.rotate(a, b, c)
	}
	return a
}

// rotate lifts child up into a's place and pushes a down, reattaching the
// shorter of child's subtrees under a.
func (t *Tree) rotate(a, child, other int32) int32 {
	f := t.nodes[child].child1
	g := t.nodes[child].child2
	if t.nodes[f].height < t.nodes[g].height {
		f, g = g, f
	}
	// f is the taller grandchild: it stays under child, g moves under a.

	t.nodes[child].child1 = a
	t.nodes[child].parent = t.nodes[a].parent
	t.nodes[a].parent = child

	parent := t.nodes[child].parent
	if parent != nullNode {
		if t.nodes[parent].child1 == a {
			t.nodes[parent].child1 = child
		} else {
			t.nodes[parent].child2 = child
		}
	} else {
		t.root = child
	}

	t.nodes[child].child2 = f
	if t.nodes[a].child1 == child {
		t.nodes[a].child1 = g
	} else {
		t.nodes[a].child2 = g
	}
	t.nodes[g].parent = a

	t.nodes[a].box = t.nodes[other].box.Union(t.nodes[g].box)
	t.nodes[child].box = t.nodes[a].box.Union(t.nodes[f].box)
	t.nodes[a].height = 1 + max32(t.nodes[other].height, t.nodes[g].height)
	t.nodes[child].height = 1 + max32(t.nodes[a].height, t.nodes[f].height)
	return child
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
