package directory

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/session"
)

// Snapshot maps every known cell to its server
type Snapshot map[common.GridCell]session.ServerIdentity

// Load reads the whole directory; it blocks on the directory backend
func Load(dir Directory) (Snapshot, error) {
	cells, err := dir.Cells()
	if err != nil {
		return nil, err
	}

	snapshot := make(Snapshot, len(cells))
	for _, cell := range cells {
		if id, ok := dir.Resolve(cell); ok {
			snapshot[cell] = id
		}
	}
	return snapshot, nil
}

// Cells returns the cells of the snapshot in order
func (s Snapshot) Cells() []common.GridCell {
	cells := make([]common.GridCell, 0, len(s))
	for cell := range s {
		cells = append(cells, cell)
	}
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Less(cells[j])
	})
	return cells
}

// Cache resolves cells from the last loaded snapshot without touching the backend.
// It is used on the tick routine only.
type Cache struct {
	dir      Directory
	snapshot Snapshot
}

// NewCache creates an empty cache of dir
func NewCache(dir Directory) *Cache {
	return &Cache{dir: dir, snapshot: Snapshot{}}
}

// Refresh loads the directory synchronously
func (c *Cache) Refresh() error {
	snapshot, err := Load(c.dir)
	if err != nil {
		return errors.Wrap(err, "load directory")
	}
	c.Set(snapshot)
	return nil
}

// Set replaces the snapshot
func (c *Cache) Set(snapshot Snapshot) {
	c.snapshot = snapshot
}

// Resolve returns the server of cell in the snapshot
func (c *Cache) Resolve(cell common.GridCell) (session.ServerIdentity, bool) {
	id, ok := c.snapshot[cell]
	return id, ok
}

// Len returns the number of cached cells
func (c *Cache) Len() int {
	return len(c.snapshot)
}
