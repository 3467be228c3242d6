package main

import (
	"fmt"
	"time"

	"github.com/xiaonanln/gwgrid/engine/common"
)

// Walker is a scripted avatar walking along a straight line
type Walker struct {
	pos      common.Vector3
	velocity common.Vector3
	walked   time.Duration
}

// NewWalker creates a walker at start moving towards dir at speed units per second
func NewWalker(start common.Vector3, dir common.Direction, speed common.Coord) *Walker {
	dx, dz := dir.Offset()
	heading := common.Vector3{X: common.Coord(dx), Z: common.Coord(dz)}.Normalized()
	return &Walker{
		pos:      start,
		velocity: heading.Mul(speed),
	}
}

func (w *Walker) String() string {
	return fmt.Sprintf("Walker<%s %s>", w.pos, common.CellOf(w.pos))
}

// Position returns the current position
func (w *Walker) Position() common.Vector3 {
	return w.pos
}

// Cell returns the cell of the current position
func (w *Walker) Cell() common.GridCell {
	return common.CellOf(w.pos)
}

// Step moves the walker by dt and returns the new position
func (w *Walker) Step(dt time.Duration) common.Vector3 {
	if dt <= 0 {
		return w.pos
	}
	w.walked += dt
	w.pos = w.pos.Add(w.velocity.Mul(common.Coord(dt.Seconds())))
	return w.pos
}

// Walked returns the total walking time
func (w *Walker) Walked() time.Duration {
	return w.walked
}
