package directory

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/config"
	"github.com/xiaonanln/gwgrid/engine/grid"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/session"
)

// Directory maps grid cells to the servers hosting them
type Directory interface {
	grid.Streamer
	// Register publishes the server of a cell
	Register(cell common.GridCell, id session.ServerIdentity) error
	// Unregister removes the server of a cell
	Unregister(cell common.GridCell) error
	// Cells returns all known cells in order
	Cells() ([]common.GridCell, error)
	Close() error
}

// Open creates the directory described by cfg. File paths are relative to baseDir.
func Open(cfg *config.DirectoryConfig, baseDir string) (Directory, error) {
	gwlog.Infof("directory: opening %s directory", cfg.Type)
	switch cfg.Type {
	case "file":
		return OpenFile(joinPath(baseDir, cfg.File))
	case "redis":
		return OpenRedis(cfg.Url, cfg.DB, cfg.KeyPrefix)
	default:
		return nil, errors.Errorf("unknown directory type: %s", cfg.Type)
	}
}
