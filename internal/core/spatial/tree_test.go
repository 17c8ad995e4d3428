package spatial

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/geom"
)

// validate walks the tree checking parent links, heights and union bounds.
func validate(t *testing.T, tr *Tree) {
	t.Helper()
	if tr.root == nullNode {
		require.Zero(t, tr.Len())
		return
	}
	require.Equal(t, nullNode, tr.nodes[tr.root].parent)
	leaves := 0
	var walk func(idx int32)
	walk = func(idx int32) {
		n := tr.nodes[idx]
		if n.isLeaf() {
			require.Equal(t, int32(0), n.height)
			require.Equal(t, idx, tr.leaves[n.entity], "leaf index out of sync")
			leaves++
			return
		}
		c1, c2 := n.child1, n.child2
		require.Equal(t, idx, tr.nodes[c1].parent)
		require.Equal(t, idx, tr.nodes[c2].parent)
		require.Equal(t, 1+max32(tr.nodes[c1].height, tr.nodes[c2].height), n.height)
		union := tr.nodes[c1].box.Union(tr.nodes[c2].box)
		require.True(t, n.box.Contains(union), "branch box does not bound children")
		require.True(t, union.Contains(n.box), "branch box looser than children union")
		walk(c1)
		walk(c2)
	}
	walk(tr.root)
	require.Equal(t, tr.Len(), leaves)
}

func TestInsertRemoveErrors(t *testing.T) {
	tr := NewTree(0.5)
	box := geom.NewAABB(0, 0, 1, 1)

	require.NoError(t, tr.Insert(1, box))
	require.ErrorIs(t, tr.Insert(1, box), ErrDuplicateEntity)
	require.ErrorIs(t, tr.Remove(2), ErrUnknownEntity)
	require.ErrorIs(t, tr.Update(2, box), ErrUnknownEntity)
	require.NoError(t, tr.Remove(1))
	require.ErrorIs(t, tr.Remove(1), ErrUnknownEntity)
	require.Zero(t, tr.Len())
}

func TestStoredBoundIsFattened(t *testing.T) {
	tr := NewTree(0.5)
	box := geom.NewAABB(2, 2, 1, 1)
	require.NoError(t, tr.Insert(1, box))
	bound, ok := tr.Bound(1)
	require.True(t, ok)
	require.True(t, bound.Contains(box))
	require.InDelta(t, 2.0, bound.Width(), 1e-12)
}

func TestQueryOverlappingExact(t *testing.T) {
	tr := NewTree(0.1)
	boxes := map[ecs.EntityID]geom.AABB{
		1: geom.NewAABB(0, 0, 2, 2),
		2: geom.NewAABB(10, 10, 2, 2),
		3: geom.NewAABB(1, 1, 2, 2),
		4: geom.NewAABB(50, 0, 1, 1),
	}
	for id, b := range boxes {
		require.NoError(t, tr.Insert(id, b))
	}

	got := map[ecs.EntityID]bool{}
	tr.QueryOverlapping(geom.NewAABB(0.5, 0.5, 2, 2)).Each(func(id ecs.EntityID) {
		require.False(t, got[id], "duplicate id %d in query result", id)
		got[id] = true
	})
	require.True(t, got[1])
	require.True(t, got[3])
	require.False(t, got[2])
	require.False(t, got[4])
}

func TestQueryIsRestartable(t *testing.T) {
	tr := NewTree(0.1)
	for i := ecs.EntityID(1); i <= 8; i++ {
		require.NoError(t, tr.Insert(i, geom.NewAABB(float64(i)*3, 0, 1, 1)))
	}
	it := tr.QueryOverlapping(geom.NewAABB(0, 0, 100, 100))
	first := it.Count()
	second := it.Count()
	require.Equal(t, 8, first)
	require.Equal(t, first, second)
}

func TestQueryPairsEachPairOnce(t *testing.T) {
	tr := NewTree(0.01)
	// 1 and 2 overlap; 3 overlaps both; 4 is far away.
	require.NoError(t, tr.Insert(1, geom.NewAABB(0, 0, 4, 4)))
	require.NoError(t, tr.Insert(2, geom.NewAABB(2, 2, 4, 4)))
	require.NoError(t, tr.Insert(3, geom.NewAABB(3, 3, 4, 4)))
	require.NoError(t, tr.Insert(4, geom.NewAABB(100, 100, 1, 1)))

	seen := map[ecs.Pair]int{}
	tr.QueryPairs().Each(func(p ecs.Pair) {
		require.Less(t, p.A, p.B, "pair not normalized")
		seen[p]++
	})
	for p, n := range seen {
		require.Equal(t, 1, n, "pair %v reported %d times", p, n)
	}
	require.Contains(t, seen, ecs.Pair{A: 1, B: 2})
	require.Contains(t, seen, ecs.Pair{A: 1, B: 3})
	require.Contains(t, seen, ecs.Pair{A: 2, B: 3})
	require.NotContains(t, seen, ecs.Pair{A: 1, B: 4})
}

func TestUpdateSmallMoveIsNoOp(t *testing.T) {
	tr := NewTree(1.0)
	box := geom.NewAABB(0, 0, 2, 2)
	require.NoError(t, tr.Insert(1, box))
	before, _ := tr.Bound(1)

	// A move well within the margin must not touch the stored bound.
	require.NoError(t, tr.Update(1, box.Translate(geom.V2{X: 0.2, Y: 0.2})))
	after, _ := tr.Bound(1)
	require.Equal(t, before, after)

	// A large move must reindex.
	require.NoError(t, tr.Update(1, box.Translate(geom.V2{X: 50, Y: 0})))
	after, _ = tr.Bound(1)
	require.NotEqual(t, before, after)
	require.True(t, after.Contains(box.Translate(geom.V2{X: 50, Y: 0})))
}

func TestUpdateIdempotent(t *testing.T) {
	tr := NewTree(0.5)
	for i := ecs.EntityID(1); i <= 16; i++ {
		require.NoError(t, tr.Insert(i, geom.NewAABB(float64(i%4)*5, float64(i/4)*5, 2, 2)))
	}
	moved := geom.NewAABB(40, 40, 2, 2)
	require.NoError(t, tr.Update(7, moved))
	snapshot := append([]node(nil), tr.nodes...)
	root := tr.root

	require.NoError(t, tr.Update(7, moved))
	require.Equal(t, root, tr.root)
	require.Equal(t, snapshot, tr.nodes)
}

// TestRandomizedAgainstBruteForce drives the tree with random operations and
// checks every query against a naive reference: no false negatives ever, and
// false positives only within the fat bounds.
func TestRandomizedAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	tr := NewTree(0.5)
	ref := map[ecs.EntityID]geom.AABB{}
	nextID := ecs.EntityID(1)

	randBox := func() geom.AABB {
		return geom.NewAABB(rng.Float64()*200-100, rng.Float64()*200-100, rng.Float64()*10, rng.Float64()*10)
	}

	for step := 0; step < 2000; step++ {
		switch op := rng.IntN(10); {
		case op < 4 || len(ref) == 0: // insert
			id := nextID
			nextID++
			box := randBox()
			require.NoError(t, tr.Insert(id, box))
			ref[id] = box
		case op < 6: // remove
			for id := range ref {
				require.NoError(t, tr.Remove(id))
				delete(ref, id)
				break
			}
		default: // update
			for id := range ref {
				box := randBox()
				require.NoError(t, tr.Update(id, box))
				ref[id] = box
				break
			}
		}

		if step%100 == 0 {
			validate(t, tr)
		}
		if step%50 != 0 {
			continue
		}

		query := randBox()
		got := map[ecs.EntityID]bool{}
		tr.QueryOverlapping(query).Each(func(id ecs.EntityID) { got[id] = true })
		for id, box := range ref {
			if box.Intersects(query) {
				require.True(t, got[id], "missing entity %d: tree has false negative", id)
			}
		}
		for id := range got {
			bound, ok := tr.Bound(id)
			require.True(t, ok)
			require.True(t, bound.Intersects(query), "entity %d outside even its fat bound", id)
		}
	}
	validate(t, tr)
}

func TestQueryNearestOrdering(t *testing.T) {
	tr := NewTree(0.01)
	require.NoError(t, tr.Insert(1, geom.NewAABB(10, 0, 1, 1)))
	require.NoError(t, tr.Insert(2, geom.NewAABB(2, 0, 1, 1)))
	require.NoError(t, tr.Insert(3, geom.NewAABB(30, 0, 1, 1)))
	require.NoError(t, tr.Insert(4, geom.NewAABB(5, 0, 1, 1)))

	got := tr.QueryNearest(geom.V2{X: 0, Y: 0.5}, 3)
	require.Equal(t, []ecs.EntityID{2, 4, 1}, got)

	all := tr.QueryNearest(geom.V2{X: 0, Y: 0.5}, 10)
	require.Len(t, all, 4)
}

func BenchmarkInsert(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 2))
	boxes := make([]geom.AABB, b.N)
	for i := range boxes {
		boxes[i] = geom.NewAABB(rng.Float64()*1000, rng.Float64()*1000, 4, 4)
	}
	tr := NewTree(0.5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tr.Insert(ecs.EntityID(i+1), boxes[i])
	}
}

func BenchmarkQueryOverlapping(b *testing.B) {
	rng := rand.New(rand.NewPCG(3, 4))
	tr := NewTree(0.5)
	for i := 0; i < 10_000; i++ {
		_ = tr.Insert(ecs.EntityID(i+1), geom.NewAABB(rng.Float64()*1000, rng.Float64()*1000, 4, 4))
	}
	query := geom.NewAABB(500, 500, 50, 50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.QueryOverlapping(query).Count()
	}
}
