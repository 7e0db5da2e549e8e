package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestTileEqualityIncludesTemporary(t *testing.T) {
	a := NewTile(Red, Circle)
	b := NewTile(Red, Circle)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, a.Permanent())
	assert.True(t, a.SameKind(a.Permanent()))
	assert.Equal(t, a.TypeKey(), a.Permanent().TypeKey())
	assert.NotEqual(t, a, NewTile(Red, Cross))
}

func TestTypeKeysAreUnique(t *testing.T) {
	seen := map[uint8]bool{}
	for _, c := range Colors {
		for _, s := range Shapes {
			k := NewTile(c, s).TypeKey()
			require.False(t, seen[k], "duplicate key %#x", k)
			seen[k] = true

			back, err := TileFromKey(k, false)
			require.NoError(t, err)
			assert.Equal(t, c, back.Color)
			assert.Equal(t, s, back.Shape)
		}
	}
	assert.Len(t, seen, 36)
}

func TestTileFromKeyRejectsUnknown(t *testing.T) {
	for _, k := range []uint8{0x00, 0x07, 0x70, 0x1f, 0x05} {
		_, err := TileFromKey(k, true)
		assert.ErrorIs(t, err, ErrUnknownKind, "key %#x", k)
	}
}

func TestTileString(t *testing.T) {
	assert.Equal(t, "Temporary RED CIRCLE tile", NewTile(Red, Circle).String())
	assert.Equal(t, "BLUE STAR tile", NewTile(Blue, Star).Permanent().String())
}

func TestBoardPutNeverOverwrites(t *testing.T) {
	b := NewBoard()
	require.True(t, b.IsEmpty())
	require.True(t, b.Put(Placement{Tile: NewTile(Red, Circle), X: 108, Y: 108}))
	assert.False(t, b.Put(Placement{Tile: NewTile(Blue, Star), X: 108, Y: 108}))

	got, ok := b.At(108, 108)
	require.True(t, ok)
	assert.Equal(t, NewTile(Red, Circle), got)

	assert.False(t, b.Put(Placement{Tile: NewTile(Red, Cross), X: -1, Y: 0}))
	assert.False(t, b.Put(Placement{Tile: NewTile(Red, Cross), X: 0, Y: BoardSize}))
	assert.False(t, b.Put(Placement{X: 1, Y: 1}), "zero tile")
	assert.Equal(t, 1, b.Len())

	removed, ok := b.Remove(108, 108)
	require.True(t, ok)
	assert.Equal(t, NewTile(Red, Circle), removed)
	assert.True(t, b.IsEmpty())
	_, ok = b.Remove(108, 108)
	assert.False(t, ok)
}

func TestBoardEqualAndClone(t *testing.T) {
	a := NewBoard()
	a.Put(Placement{Tile: NewTile(Red, Circle), X: 5, Y: 5})
	c := a.Clone()
	assert.True(t, a.Equal(c))

	c.Put(Placement{Tile: NewTile(Red, Cross), X: 6, Y: 5})
	assert.False(t, a.Equal(c))
	assert.Equal(t, 1, a.Len())
}

func TestBoardEachRowMajor(t *testing.T) {
	b := NewBoard()
	b.Put(Placement{Tile: NewTile(Red, Circle), X: 3, Y: 2})
	b.Put(Placement{Tile: NewTile(Red, Cross), X: 1, Y: 2})
	b.Put(Placement{Tile: NewTile(Red, Star), X: 9, Y: 1})

	var got []Coord
	b.Each(func(c Coord, _ Tile) bool {
		got = append(got, c)
		return true
	})
	assert.Equal(t, []Coord{{9, 1}, {1, 2}, {3, 2}}, got)
}

func TestBagHoldsThreeOfEachKind(t *testing.T) {
	bag := NewBag(seeded())
	require.Equal(t, BagSize, bag.Len())
	require.Equal(t, 108, BagSize)

	counts := map[uint8]int{}
	for !bag.IsEmpty() {
		tile, ok := bag.Draw()
		require.True(t, ok)
		assert.True(t, tile.Temporary)
		counts[tile.TypeKey()]++
	}
	assert.Len(t, counts, 36)
	for k, n := range counts {
		assert.Equal(t, CopiesPerKind, n, "kind %#x", k)
	}
	_, ok := bag.Draw()
	assert.False(t, ok)
	assert.Equal(t, "Empty", bag.String())
}

func TestBagReturnMarksTemporary(t *testing.T) {
	bag := NewBag(seeded())
	tile, _ := bag.Draw()
	bag.Return(tile.Permanent())
	assert.Equal(t, BagSize, bag.Len())

	seenTemp := true
	for !bag.IsEmpty() {
		d, _ := bag.Draw()
		seenTemp = seenTemp && d.Temporary
	}
	assert.True(t, seenTemp)
}

func TestHandFillTakeKind(t *testing.T) {
	bag := NewBag(seeded())
	var h Hand
	require.True(t, h.Fill(bag))
	assert.Equal(t, HandSize, h.Count())
	assert.Equal(t, BagSize-HandSize, bag.Len())

	first := h[0]
	got, ok := h.TakeKind(first.TypeKey())
	require.True(t, ok)
	assert.Equal(t, first, got)
	assert.Equal(t, HandSize-1, h.Count())
	assert.True(t, h[0].IsZero())

	require.True(t, h.Fill(bag))
	assert.Equal(t, HandSize, h.Count())
}

func TestHandFillStopsWhenBagRunsOut(t *testing.T) {
	bag := NewBag(seeded())
	for bag.Len() > 2 {
		bag.Draw()
	}
	var h Hand
	assert.False(t, h.Fill(bag))
	assert.Equal(t, 2, h.Count())
}

func TestPlayerScoreNeverNegative(t *testing.T) {
	p := NewPlayer()
	require.NoError(t, p.AddScore(5))
	assert.Equal(t, 5, p.Score())

	assert.ErrorIs(t, p.SetScore(-1), ErrNegativeScore)
	assert.ErrorIs(t, p.AddScore(-6), ErrNegativeScore)
	assert.ErrorIs(t, p.SetScore(3), ErrNegativeScore)
	assert.Equal(t, 5, p.Score(), "rejected writes leave the score alone")

	require.NoError(t, p.SetScore(9))
	assert.Equal(t, 9, p.Score())
}
