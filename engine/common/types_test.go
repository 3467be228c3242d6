package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func genCell(t *rapid.T, label string) GridCell {
	return GridCell{
		X: rapid.Int32Range(-100000, 100000).Draw(t, label+"_x"),
		Z: rapid.Int32Range(-100000, 100000).Draw(t, label+"_z"),
	}
}

func TestDistanceTo(t *testing.T) {
	assert.Equal(t, 0, Origin.DistanceTo(Origin))
	assert.Equal(t, 1, Origin.DistanceTo(GridCell{1, 0}))
	assert.Equal(t, 1, Origin.DistanceTo(GridCell{-1, -1}))
	assert.Equal(t, 3, GridCell{1, 2}.DistanceTo(GridCell{-2, 0}))
	assert.Equal(t, 5, GridCell{0, -5}.DistanceTo(GridCell{2, 0}))
}

func TestPropertyDistanceIsSymmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genCell(t, "a")
		b := genCell(t, "b")
		assert.Equal(t, a.DistanceTo(b), b.DistanceTo(a))
		assert.Equal(t, 0, a.DistanceTo(a))
	})
}

func TestPropertyNeighborIsAtDistanceOne(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := genCell(t, "c")
		d := Directions[rapid.IntRange(0, len(Directions)-1).Draw(t, "dir_idx")]
		n := c.Neighbor(d)
		assert.Equal(t, 1, c.DistanceTo(n))
		assert.Equal(t, c, n.Neighbor(d.Opposite()), "opposite neighbor should return to %v", c)
	})
}

func TestNeighborOffsets(t *testing.T) {
	assert.Equal(t, GridCell{0, 1}, Origin.Neighbor(North))
	assert.Equal(t, GridCell{1, 1}, Origin.Neighbor(NorthEast))
	assert.Equal(t, GridCell{1, 0}, Origin.Neighbor(East))
	assert.Equal(t, GridCell{-1, -1}, Origin.Neighbor(SouthWest))
	assert.Equal(t, Origin, Origin.Neighbor(Direction(42)))
	assert.Len(t, Origin.Neighbors(), 8)
	assert.Equal(t, "northwest", NorthWest.String())
	assert.Equal(t, South, North.Opposite())
}

func TestLess(t *testing.T) {
	assert.True(t, GridCell{0, 5}.Less(GridCell{1, -5}))
	assert.True(t, GridCell{1, -5}.Less(GridCell{1, 0}))
	assert.False(t, GridCell{1, 0}.Less(GridCell{1, 0}))
}

func TestCellsWithin(t *testing.T) {
	cells := GridCell{2, 2}.CellsWithin(1)
	assert.Len(t, cells, 9)
	for _, c := range cells {
		assert.LessOrEqual(t, c.DistanceTo(GridCell{2, 2}), 1)
	}
	assert.Nil(t, Origin.CellsWithin(-1))
}

func TestCellOf(t *testing.T) {
	assert.Equal(t, Origin, CellOf(Vector3{1, 100, 1}))
	assert.Equal(t, GridCell{-1, 0}, CellOf(Vector3{-1, 0, 1}))
	assert.Equal(t, GridCell{1, 0}, CellOf(GridCell{1, 0}.Center()))
	assert.Equal(t, GridCell{-3, 7}, CellOf(GridCell{-3, 7}.Center()))
}

func TestParseDirection(t *testing.T) {
	for _, d := range Directions {
		parsed, ok := ParseDirection(d.String())
		assert.True(t, ok)
		assert.Equal(t, d, parsed)
	}
	d, ok := ParseDirection("NorthEast")
	assert.True(t, ok)
	assert.Equal(t, NorthEast, d)
	_, ok = ParseDirection("up")
	assert.False(t, ok)
}
