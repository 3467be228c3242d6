package binutil

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/gwutils"
)

// StartupLoadMonitor reports the cpu percent of this process every interval until ctx is done
func StartupLoadMonitor(ctx context.Context, interval time.Duration, report func(cpuPercent float64)) error {
	pid := os.Getpid()
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	gwlog.Infof("load monitor: found process: %s", p)

	go gwutils.RepeatUntilPanicless(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			pcnt, err := p.CPUPercentWithContext(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				gwlog.Panicf("load monitor: get process cpu percent failed: %s", err)
			}
			report(pcnt)
		}
	})
	return nil
}
