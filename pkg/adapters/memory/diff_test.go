package memory

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livelist/pkg/core"
)

func rankDoc(id string, rank int) core.Document {
	return core.Document{ID: id, Fields: core.Fields{"rank": rank}}
}

var byRank = Query{orders: []order{{field: "rank", dir: Asc}}}

// replay applies changes to the IDs of prev the way a consumer trusting the
// indices would, failing on any index that does not hold up.
func replay(t *testing.T, prev []core.Document, changes []core.ChangeEvent) []string {
	t.Helper()
	ids := make([]string, len(prev))
	for i, d := range prev {
		ids[i] = d.ID
	}
	for n, c := range changes {
		switch c.Type {
		case core.Removed:
			require.Less(t, c.OldIndex, len(ids), "change %d: %s", n, c)
			require.Equal(t, c.Doc.ID, ids[c.OldIndex], "change %d: %s", n, c)
			ids = append(ids[:c.OldIndex], ids[c.OldIndex+1:]...)
		case core.Added:
			require.LessOrEqual(t, c.NewIndex, len(ids), "change %d: %s", n, c)
			ids = append(ids, "")
			copy(ids[c.NewIndex+1:], ids[c.NewIndex:])
			ids[c.NewIndex] = c.Doc.ID
		case core.Modified:
			require.Less(t, c.OldIndex, len(ids), "change %d: %s", n, c)
			require.Equal(t, c.Doc.ID, ids[c.OldIndex], "change %d: %s", n, c)
			ids = append(ids[:c.OldIndex], ids[c.OldIndex+1:]...)
			require.LessOrEqual(t, c.NewIndex, len(ids), "change %d: %s", n, c)
			ids = append(ids, "")
			copy(ids[c.NewIndex+1:], ids[c.NewIndex:])
			ids[c.NewIndex] = c.Doc.ID
		}
	}
	return ids
}

func idsOf(docs []core.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestDiff_Basic(t *testing.T) {
	prev := []core.Document{rankDoc("a", 1), rankDoc("b", 2), rankDoc("c", 3)}
	next := []core.Document{rankDoc("b", 2), rankDoc("d", 4), rankDoc("c", 5)}

	changes := diff(prev, next, byRank.compare)
	assert.Equal(t, []core.ChangeEvent{
		{Type: core.Removed, Doc: prev[0], OldIndex: 0, NewIndex: -1},
		{Type: core.Added, Doc: next[1], OldIndex: -1, NewIndex: 2},
		{Type: core.Modified, Doc: next[2], OldIndex: 1, NewIndex: 2},
	}, changes)
	assert.Equal(t, idsOf(next), replay(t, prev, changes))
}

func TestDiff_ModifiedAgainstStaleNeighbours(t *testing.T) {
	// y and d both change; d must land after the unchanged u
	prev := []core.Document{rankDoc("y", 0), rankDoc("u", 1), rankDoc("d", 2)}
	next := []core.Document{rankDoc("u", 1), rankDoc("d", 3), rankDoc("y", 4)}

	changes := diff(prev, next, byRank.compare)
	assert.Equal(t, idsOf(next), replay(t, prev, changes))
}

func TestDiff_Unchanged(t *testing.T) {
	docs := []core.Document{rankDoc("a", 1), rankDoc("b", 2)}
	assert.Empty(t, diff(docs, docs, byRank.compare))
}

func TestDiff_Initial(t *testing.T) {
	docs := []core.Document{rankDoc("a", 1), rankDoc("b", 2)}
	changes := initial(docs)
	assert.Equal(t, idsOf(docs), replay(t, nil, changes))
	assert.Empty(t, initial(nil))
}

func TestDiff_RandomizedReplay(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 300; round++ {
		pool := make(map[string]int)
		var prev []core.Document
		for i := 0; i < rng.IntN(12); i++ {
			id := fmt.Sprintf("d%02d", rng.IntN(20))
			pool[id] = rng.IntN(10)
		}
		for id, rank := range pool {
			prev = append(prev, rankDoc(id, rank))
		}
		prev = byRank.evaluate(prev)

		nextPool := make(map[string]int)
		for id, rank := range pool {
			switch rng.IntN(4) {
			case 0: // removed
			case 1:
				nextPool[id] = rng.IntN(10)
			default:
				nextPool[id] = rank
			}
		}
		for i := 0; i < rng.IntN(5); i++ {
			nextPool[fmt.Sprintf("n%02d", rng.IntN(20))] = rng.IntN(10)
		}
		var next []core.Document
		for id, rank := range nextPool {
			next = append(next, rankDoc(id, rank))
		}
		next = byRank.evaluate(next)

		changes := diff(prev, next, byRank.compare)
		require.Equal(t, idsOf(next), replay(t, prev, changes), "round %d", round)
	}
}
