package binutil

import (
	"context"
	"time"

	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/directory"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/gwutils"
	"github.com/xiaonanln/gwgrid/engine/session"
)

const (
	checkRegistrationInterval = time.Second * 3
)

// StartupCheckRegistration keeps the server of cell registered in dir until ctx is done
func StartupCheckRegistration(ctx context.Context, dir directory.Directory, cell common.GridCell, id session.ServerIdentity) {
	checkCellRegistration(dir, cell, id)
	go gwutils.RepeatUntilPanicless(func() {
		checkRegistrationRoutine(ctx, dir, cell, id)
	})
}

func checkRegistrationRoutine(ctx context.Context, dir directory.Directory, cell common.GridCell, id session.ServerIdentity) {
	ticker := time.NewTicker(checkRegistrationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCellRegistration(dir, cell, id)
		}
	}
}

func checkCellRegistration(dir directory.Directory, cell common.GridCell, id session.ServerIdentity) {
	registered, found := dir.Resolve(cell)
	gwlog.Debugf("checkCellRegistration: cell %s found %v registered %s", cell, found, registered)
	if found && registered == id {
		return
	}

	if err := dir.Register(cell, id); err != nil {
		gwlog.Errorf("register cell %s as %s failed: %v", cell, id, err)
	} else {
		gwlog.Infof("cell %s registered as %s", cell, id)
	}
}
