package grid

import (
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/consts"
)

// Options configures a Registry
type Options struct {
	// ConnectRange is the distance within which sessions are Connected
	ConnectRange int
	// HalfConnectRange is the distance within which sessions are HalfConnected
	HalfConnectRange int
	// SwitchStayDuration is how long the avatar stays in a new cell before it becomes active
	SwitchStayDuration time.Duration
	// Clock returns the current time, time.Now if nil
	Clock func() time.Time
}

// DefaultOptions returns the default registry options
func DefaultOptions() Options {
	return Options{
		ConnectRange:       consts.DEFAULT_CONNECT_RANGE,
		HalfConnectRange:   consts.DEFAULT_HALF_CONNECT_RANGE,
		SwitchStayDuration: consts.DEFAULT_SWITCH_STAY_DURATION,
		Clock:              time.Now,
	}
}

// Validate checks the ranges and durations
func (o Options) Validate() error {
	if o.ConnectRange < 0 {
		return errors.Errorf("connect range %d is negative", o.ConnectRange)
	}
	if o.HalfConnectRange < o.ConnectRange {
		return errors.Errorf("half connect range %d is smaller than connect range %d", o.HalfConnectRange, o.ConnectRange)
	}
	if o.SwitchStayDuration < 0 {
		return errors.Errorf("switch stay duration %s is negative", o.SwitchStayDuration)
	}
	return nil
}
