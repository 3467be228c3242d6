// Package grid implements the registry of server sessions by grid cell,
// the distance based connection policy and the active server switching.
package grid

import (
	"fmt"
	"time"

	"github.com/petar/GoLLRB/llrb"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/gwutils"
	"github.com/xiaonanln/gwgrid/engine/opmon"
	"github.com/xiaonanln/gwgrid/engine/post"
	"github.com/xiaonanln/gwgrid/engine/session"
)

// Streamer resolves the server of a cell that has no session yet
type Streamer interface {
	Resolve(cell common.GridCell) (session.ServerIdentity, bool)
}

// EventKind is the kind of registry events
type EventKind int

const (
	// SessionCreated is fired after a session is added
	SessionCreated EventKind = iota
	// SessionDestroyed is fired after a session is closed
	SessionDestroyed
	// ActiveChanged is fired when the active session changes, Session may be nil
	ActiveChanged
)

func (k EventKind) String() string {
	switch k {
	case SessionCreated:
		return "created"
	case SessionDestroyed:
		return "destroyed"
	case ActiveChanged:
		return "active-changed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// RegistryEvent is delivered to registry observers
type RegistryEvent struct {
	Kind     EventKind
	Cell     common.GridCell
	Session  session.ServerSession
	Previous session.ServerSession
}

type cellItem struct {
	cell    common.GridCell
	session session.ServerSession
}

func (it *cellItem) Less(_other llrb.Item) bool {
	return it.cell.Less(_other.(*cellItem).cell)
}

// Registry owns the server sessions of grid cells.
// It is not safe for concurrent use except Post.
type Registry struct {
	options Options
	env     session.Environment

	tree           *llrb.LLRB
	active         session.ServerSession
	everActivated  bool
	pendingRemoval []session.ServerSession
	policyDirty    bool

	avatarPos   common.Vector3
	hasAvatar   bool
	lastCell    common.GridCell
	hasLastCell bool
	switching   bool
	switchStart time.Time
	missingCell *common.GridCell

	streamer     Streamer
	streamerUser session.UserIdentity
	streaming    map[common.GridCell]bool

	queue     *post.Queue
	observers common.ObserverList
}

// NewRegistry creates an empty registry; sessions it creates use env
func NewRegistry(env session.Environment, options Options) *Registry {
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if err := options.Validate(); err != nil {
		gwlog.Panic(err)
	}

	return &Registry{
		options:   options,
		env:       env,
		tree:      llrb.New(),
		streaming: map[common.GridCell]bool{},
		queue:     post.NewQueue(),
	}
}

func (r *Registry) String() string {
	return fmt.Sprintf("GridRegistry<%d sessions, active=%v>", r.tree.Len(), r.active)
}

// Options returns the options of the registry
func (r *Registry) Options() Options {
	return r.options
}

// SetStreamer sets the collaborator that resolves missing cells; streamed sessions log in as user
func (r *Registry) SetStreamer(streamer Streamer, user session.UserIdentity) {
	r.streamer = streamer
	r.streamerUser = user
}

// SubscribeStateChanged registers fn for session creation, destruction and active changes
func (r *Registry) SubscribeStateChanged(fn func(ev RegistryEvent)) common.Subscription {
	return r.observers.Add(fn)
}

// Post queues f to run at the end of the next Update, it is safe to call from any goroutine
func (r *Registry) Post(f func()) {
	r.queue.Post(f)
}

// CreateSession adds a remote session for cell. The first session of the registry becomes active,
// and the cells around it are then streamed. Later sessions only become active through the avatar.
func (r *Registry) CreateSession(cell common.GridCell, identity session.ServerIdentity, user session.UserIdentity) (session.ServerSession, error) {
	if r.get(cell) != nil {
		return nil, &DuplicateError{Cell: cell}
	}

	s := session.NewRemoteServerSession(cell, identity, user, r.env)
	r.insert(s)
	if !r.everActivated {
		r.setActive(s)
		s.RequestConnectedActive()
		r.streamAround(cell)
	}
	return s, nil
}

// CreateOfflineSession destroys every session and installs an active offline session at the origin
func (r *Registry) CreateOfflineSession(user session.UserIdentity) session.ServerSession {
	r.Clear()
	r.destroyPending()

	s := session.NewOfflineServerSession(user, r.env)
	r.insert(s)
	r.setActive(s)
	s.RequestConnectedActive()
	return s
}

// GetSession returns the session of the cell
func (r *Registry) GetSession(cell common.GridCell) (session.ServerSession, error) {
	s := r.get(cell)
	if s == nil {
		return nil, &NotFoundError{Cell: cell}
	}
	return s, nil
}

// GetActiveSession returns the active session
func (r *Registry) GetActiveSession() (session.ServerSession, error) {
	if r.active == nil {
		return nil, &NotFoundError{Active: true}
	}
	return r.active, nil
}

// DestroySession removes the session of the cell, it is closed on the next Update
func (r *Registry) DestroySession(cell common.GridCell) error {
	item := r.tree.Delete(&cellItem{cell: cell})
	if item == nil {
		return &NotFoundError{Cell: cell}
	}

	r.pendingRemoval = append(r.pendingRemoval, item.(*cellItem).session)
	r.policyDirty = true
	return nil
}

// Clear removes every session, they are closed on the next Update
func (r *Registry) Clear() {
	for _, s := range r.Sessions() {
		r.DestroySession(s.GridCell())
	}
	r.everActivated = false
}

// SetAvatarPosition records the avatar position for the next Update
func (r *Registry) SetAvatarPosition(pos common.Vector3) {
	r.avatarPos = pos
	r.hasAvatar = true
}

// AvatarCell returns the cell of the last recorded avatar position
func (r *Registry) AvatarCell() (common.GridCell, bool) {
	if !r.hasAvatar {
		return common.GridCell{}, false
	}
	return common.CellOf(r.avatarPos), true
}

// IsSwitching returns if the avatar is waiting in a cell to become active
func (r *Registry) IsSwitching() bool {
	return r.switching
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	return r.tree.Len()
}

// Sessions returns live sessions ordered by cell
func (r *Registry) Sessions() []session.ServerSession {
	if r.tree.Len() == 0 {
		return nil
	}

	sessions := make([]session.ServerSession, 0, r.tree.Len())
	r.tree.AscendGreaterOrEqual(r.tree.Min(), func(_item llrb.Item) bool {
		sessions = append(sessions, _item.(*cellItem).session)
		return true
	})
	return sessions
}

// Update runs one tick: removal, session ticks, switching, policy, then queued work
func (r *Registry) Update() {
	op := opmon.StartOperation("grid.Update")
	defer op.Finish(consts.GRID_UPDATE_WARN_THRESHOLD)

	r.destroyPending()

	for _, s := range r.Sessions() {
		s.Update()
	}

	promoted := r.updateSwitching()
	if promoted || r.policyDirty {
		r.applyPolicy()
	}

	r.queue.TickOnce()
}

func (r *Registry) get(cell common.GridCell) session.ServerSession {
	item := r.tree.Get(&cellItem{cell: cell})
	if item == nil {
		return nil
	}
	return item.(*cellItem).session
}

func (r *Registry) insert(s session.ServerSession) {
	r.tree.ReplaceOrInsert(&cellItem{cell: s.GridCell(), session: s})
	r.policyDirty = true
	if consts.DEBUG_GRID {
		gwlog.Debugf("%s: created %s", r, s)
	}
	r.fire(RegistryEvent{Kind: SessionCreated, Cell: s.GridCell(), Session: s})
}

func (r *Registry) destroyPending() {
	pending := r.pendingRemoval
	r.pendingRemoval = nil

	for _, s := range pending {
		if s == r.active {
			r.setActive(nil)
		}
		s.Close()
		if consts.DEBUG_GRID {
			gwlog.Debugf("%s: destroyed %s", r, s)
		}
		r.fire(RegistryEvent{Kind: SessionDestroyed, Cell: s.GridCell(), Session: s})
	}
}

func (r *Registry) setActive(s session.ServerSession) {
	prev := r.active
	if prev == s {
		return
	}

	r.active = s
	if s != nil {
		r.everActivated = true
	}
	r.policyDirty = true
	var cell common.GridCell
	if s != nil {
		cell = s.GridCell()
	}
	gwlog.Infof("%s: active session %v -> %v", r, prev, s)
	r.fire(RegistryEvent{Kind: ActiveChanged, Cell: cell, Session: s, Previous: prev})
}

// updateSwitching applies the avatar hysteresis, returns true if a session was promoted
func (r *Registry) updateSwitching() bool {
	if !r.hasAvatar {
		return false
	}

	cell := common.CellOf(r.avatarPos)
	now := r.options.Clock()
	promoted := false

	if r.active == nil {
		// nothing to switch away from, adopt the avatar cell as soon as it has a session
		r.switching = false
		if !r.promote(cell) {
			r.hasLastCell = false
			return false
		}
		r.lastCell, r.hasLastCell = cell, true
		return true
	}

	if !r.hasLastCell || cell != r.lastCell {
		r.lastCell, r.hasLastCell = cell, true
		r.switching = true
		r.switchStart = now
		r.missingCell = nil
	} else if r.switching && now.Sub(r.switchStart) >= r.options.SwitchStayDuration {
		if r.promote(cell) {
			r.switching = false
			promoted = true
		}
	}

	if cell == r.active.GridCell() {
		r.switching = false
	}
	return promoted
}

// promote makes the session of cell active; a missing session is requested from the streamer
func (r *Registry) promote(cell common.GridCell) bool {
	s := r.get(cell)
	if s == nil {
		if r.missingCell == nil || *r.missingCell != cell {
			gwlog.Warnf("%s: promote failed: %v", r, &NotFoundError{Cell: cell})
			r.missingCell = &cell
		}
		r.requestStreaming(cell)
		return false
	}

	r.missingCell = nil
	r.setActive(s)
	s.RequestConnectedActive()
	r.streamAround(cell)
	return true
}

func (r *Registry) streamAround(cell common.GridCell) {
	for _, c := range cell.CellsWithin(r.options.HalfConnectRange) {
		r.requestStreaming(c)
	}
}

func (r *Registry) applyPolicy() {
	r.policyDirty = false
	if r.active == nil {
		return
	}

	center := r.active.GridCell()
	r.active.RequestConnectedActive()

	for _, s := range r.Sessions() {
		if s == r.active {
			continue
		}

		d := s.GridCell().DistanceTo(center)
		switch {
		case d == 0:
			continue
		case d <= r.options.ConnectRange:
			r.moveTo(s, session.Connected)
		case d <= r.options.HalfConnectRange:
			r.moveTo(s, session.HalfConnected)
		default:
			if s.ServerState() > session.Discovered || s.TargetState() > session.Discovered {
				s.Disconnect()
			}
		}
	}
}

func (r *Registry) moveTo(s session.ServerSession, level session.ServerState) {
	if s.ServerState() > level || s.TargetState() > level {
		s.Demote(level)
	}
	switch level {
	case session.Connected:
		s.RequestConnected()
	case session.HalfConnected:
		s.RequestHalfConnected()
	}
}

// requestStreaming queues the creation of a missing cell's session
func (r *Registry) requestStreaming(cell common.GridCell) {
	if r.streamer == nil || r.streaming[cell] || r.get(cell) != nil {
		return
	}

	r.streaming[cell] = true
	r.queue.Post(func() {
		delete(r.streaming, cell)
		if r.get(cell) != nil {
			return
		}

		identity, ok := r.streamer.Resolve(cell)
		if !ok {
			if consts.DEBUG_GRID {
				gwlog.Debugf("%s: no server for cell %s", r, cell)
			}
			return
		}
		if _, err := r.CreateSession(cell, identity, r.streamerUser); err != nil {
			gwlog.Errorf("%s: streaming %s failed: %v", r, cell, err)
		}
	})
}

func (r *Registry) fire(ev RegistryEvent) {
	r.observers.Each(func(fn interface{}) {
		gwutils.RunPanicless(func() {
			fn.(func(RegistryEvent))(ev)
		})
	})
}
