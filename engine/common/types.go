package common

import (
	"fmt"
	"math"
	"strings"

	"github.com/xiaonanln/gwgrid/engine/consts"
)

// GridCell identifies one square partition of the world
type GridCell struct {
	X int32
	Z int32
}

// Origin is the cell at (0, 0)
var Origin = GridCell{}

func (c GridCell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// DistanceTo returns the Chebyshev distance between two cells
func (c GridCell) DistanceTo(o GridCell) int {
	dx := abs(int(c.X) - int(o.X))
	dz := abs(int(c.Z) - int(o.Z))
	if dx > dz {
		return dx
	}
	return dz
}

// Less orders cells by X, then Z
func (c GridCell) Less(o GridCell) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Z < o.Z
}

// Neighbor returns the adjacent cell in direction d
func (c GridCell) Neighbor(d Direction) GridCell {
	dx, dz := d.Offset()
	return GridCell{X: c.X + dx, Z: c.Z + dz}
}

// Neighbors returns the 8 adjacent cells, clockwise from north
func (c GridCell) Neighbors() []GridCell {
	cells := make([]GridCell, 0, len(Directions))
	for _, d := range Directions {
		cells = append(cells, c.Neighbor(d))
	}
	return cells
}

// CellsWithin returns all cells whose distance to c is at most r, ordered by X then Z
func (c GridCell) CellsWithin(r int) []GridCell {
	if r < 0 {
		return nil
	}
	cells := make([]GridCell, 0, (2*r+1)*(2*r+1))
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			cells = append(cells, GridCell{X: c.X + int32(dx), Z: c.Z + int32(dz)})
		}
	}
	return cells
}

// Center returns the world position at the middle of the cell (Y = 0)
func (c GridCell) Center() Vector3 {
	return Vector3{
		X: (Coord(c.X) + 0.5) * consts.GRID_CELL_SIZE,
		Z: (Coord(c.Z) + 0.5) * consts.GRID_CELL_SIZE,
	}
}

// CellOf returns the cell containing the world position
func CellOf(pos Vector3) GridCell {
	return GridCell{
		X: int32(math.Floor(float64(pos.X) / consts.GRID_CELL_SIZE)),
		Z: int32(math.Floor(float64(pos.Z) / consts.GRID_CELL_SIZE)),
	}
}

// Direction is one of the 8 compass directions on the grid
type Direction int

// Compass directions, clockwise from north. North is +Z, east is +X.
const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// Directions contains all 8 compass directions
var Directions = []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var directionOffsets = [...][2]int32{
	North:     {0, 1},
	NorthEast: {1, 1},
	East:      {1, 0},
	SouthEast: {1, -1},
	South:     {0, -1},
	SouthWest: {-1, -1},
	West:      {-1, 0},
	NorthWest: {-1, 1},
}

var directionNames = [...]string{
	North:     "north",
	NorthEast: "northeast",
	East:      "east",
	SouthEast: "southeast",
	South:     "south",
	SouthWest: "southwest",
	West:      "west",
	NorthWest: "northwest",
}

// IsValid reports whether d is one of the 8 compass directions
func (d Direction) IsValid() bool {
	return d >= North && d <= NorthWest
}

// Offset returns the (dx, dz) step of the direction
func (d Direction) Offset() (int32, int32) {
	if !d.IsValid() {
		return 0, 0
	}
	off := directionOffsets[d]
	return off[0], off[1]
}

// Opposite returns the direction pointing the other way
func (d Direction) Opposite() Direction {
	return (d + 4) % 8
}

func (d Direction) String() string {
	if !d.IsValid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection returns the direction named s, like "north" or "southwest"
func ParseDirection(s string) (Direction, bool) {
	for d, name := range directionNames {
		if strings.EqualFold(name, s) {
			return Direction(d), true
		}
	}
	return 0, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
