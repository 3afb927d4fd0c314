package orderbook

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func newLevel(price uint64) func() *PriceLevel {
	return func() *PriceLevel { return newPriceLevel(price, Buy) }
}

func TestRBTree_UpsertFindDelete(t *testing.T) {
	tree := newRBTree()
	pl1 := tree.Upsert(100, newLevel(100))
	require.NotNil(t, pl1)
	require.Same(t, pl1, tree.Find(100))

	tree.Upsert(200, newLevel(200))
	require.EqualValues(t, 100, tree.Min().Price)
	require.EqualValues(t, 200, tree.Max().Price)

	require.True(t, tree.Delete(100))
	require.Nil(t, tree.Find(100))
}

func TestRBTree_DeleteNonExistent(t *testing.T) {
	tree := newRBTree()
	require.False(t, tree.Delete(123))
}

func TestRBTree_EmptyMinMax(t *testing.T) {
	tree := newRBTree()
	require.Nil(t, tree.Min())
	require.Nil(t, tree.Max())
}

func TestRBTree_UpsertIsIdempotent(t *testing.T) {
	tree := newRBTree()
	pl1 := tree.Upsert(150, newLevel(150))
	pl2 := tree.Upsert(150, newLevel(150))
	require.Same(t, pl1, pl2)
	require.Equal(t, 1, tree.Size())
}

func TestRBTree_AscendingDescendingOrder(t *testing.T) {
	tree := newRBTree()
	prices := []uint64{50, 10, 40, 30, 20, 90, 60, 80, 70}
	for _, p := range prices {
		tree.Upsert(p, newLevel(p))
	}

	var asc []uint64
	tree.ForEachAscending(func(pl *PriceLevel) bool {
		asc = append(asc, pl.Price)
		return true
	})
	for i := 1; i < len(asc); i++ {
		require.Less(t, asc[i-1], asc[i])
	}

	var desc []uint64
	tree.ForEachDescending(func(pl *PriceLevel) bool {
		desc = append(desc, pl.Price)
		return true
	})
	for i := 1; i < len(desc); i++ {
		require.Greater(t, desc[i-1], desc[i])
	}
}

func TestRBTree_ForEachShortCircuits(t *testing.T) {
	tree := newRBTree()
	for _, p := range []uint64{1, 2, 3, 4, 5} {
		tree.Upsert(p, newLevel(p))
	}
	seen := 0
	tree.ForEachAscending(func(pl *PriceLevel) bool {
		seen++
		return seen < 2
	})
	require.Equal(t, 2, seen)
}

// Randomized insert/delete against a map oracle, the way the teacher's
// bench/property tests cross-check the tree against a simpler structure.
func TestRBTree_RandomizedAgainstOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := newRBTree()
	oracle := map[uint64]bool{}

	for i := 0; i < 2000; i++ {
		price := uint64(rng.Intn(500))
		if rng.Intn(2) == 0 {
			tree.Upsert(price, newLevel(price))
			oracle[price] = true
		} else {
			tree.Delete(price)
			delete(oracle, price)
		}
	}

	require.Equal(t, len(oracle), tree.Size())
	for price, present := range oracle {
		if present {
			require.NotNil(t, tree.Find(price))
		}
	}

	var prev uint64
	first := true
	tree.ForEachAscending(func(pl *PriceLevel) bool {
		if !first {
			require.Less(t, prev, pl.Price)
		}
		prev = pl.Price
		first = false
		return true
	})
}
