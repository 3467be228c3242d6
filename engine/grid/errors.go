package grid

import (
	"fmt"

	"github.com/xiaonanln/gwgrid/engine/common"
)

// DuplicateError is returned when creating a session on an occupied cell
type DuplicateError struct {
	Cell common.GridCell
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("grid cell %s already has a server session", e.Cell)
}

// NotFoundError is returned when a cell has no session, or when there is no active session
type NotFoundError struct {
	Cell   common.GridCell
	Active bool
}

func (e *NotFoundError) Error() string {
	if e.Active {
		return "no active server session"
	}
	return fmt.Sprintf("grid cell %s has no server session", e.Cell)
}
