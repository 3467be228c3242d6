// Package plugin defines the plugin managers that load per-server plugins while
// a server session is Loading.
package plugin

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/barrier"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/gwutils"
)

// Host is what a plugin manager knows about the server session it loads for
type Host interface {
	GridCell() common.GridCell
	ServerName() string
}

// Manager loads the plugins of one server session
type Manager interface {
	// Plugins returns the ids of plugins that will report loaded
	Plugins() []barrier.UnitID
	// Load starts loading; onLoaded is called once per plugin, possibly before Load returns
	Load(onLoaded func(barrier.UnitID))
	// Destroy unloads every plugin
	Destroy()
}

// Factory creates a plugin manager for each server session entering Loading
type Factory interface {
	NewManager(host Host) Manager
}

// Plugin is one loadable unit
type Plugin interface {
	Name() string
	// Load calls done when loaded, it may call done later on the tick routine
	Load(host Host, done func())
	Destroy()
}

// Creator creates a plugin instance for a host
type Creator func(host Host) Plugin

type registration struct {
	name    string
	creator Creator
}

// Registry is a Factory creating managers of all registered plugins
type Registry struct {
	registrations []registration
}

// NewRegistry creates an empty plugin registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a plugin creator; plugin names must be unique
func (r *Registry) Register(name string, creator Creator) error {
	for _, reg := range r.registrations {
		if reg.name == name {
			return errors.Errorf("plugin %s already registered", name)
		}
	}
	r.registrations = append(r.registrations, registration{name: name, creator: creator})
	gwlog.Debugf("plugin %s registered", name)
	return nil
}

// Names returns registered plugin names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.registrations))
	for i, reg := range r.registrations {
		names[i] = reg.name
	}
	return names
}

// NewManager creates a manager holding one instance of every registered plugin
func (r *Registry) NewManager(host Host) Manager {
	m := &manager{host: host}
	for _, reg := range r.registrations {
		m.plugins = append(m.plugins, reg.creator(host))
	}
	return m
}

type manager struct {
	host      Host
	plugins   []Plugin
	loading   bool
	destroyed bool
}

func (m *manager) String() string {
	return fmt.Sprintf("PluginManager<%s %s>", m.host.ServerName(), m.host.GridCell())
}

func (m *manager) Plugins() []barrier.UnitID {
	ids := make([]barrier.UnitID, len(m.plugins))
	for i, p := range m.plugins {
		ids[i] = barrier.UnitID(p.Name())
	}
	return ids
}

func (m *manager) Load(onLoaded func(barrier.UnitID)) {
	if m.loading || m.destroyed {
		gwlog.Warnf("%s: load called twice", m)
		return
	}
	m.loading = true

	for _, p := range m.plugins {
		p := p
		id := barrier.UnitID(p.Name())
		gwutils.RunPanicless(func() {
			p.Load(m.host, func() {
				if m.destroyed {
					return
				}
				onLoaded(id)
			})
		})
	}
}

func (m *manager) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	for i := len(m.plugins) - 1; i >= 0; i-- {
		gwutils.RunPanicless(m.plugins[i].Destroy)
	}
}

// FuncPlugin is a Plugin made of functions
type FuncPlugin struct {
	PluginName string
	OnLoad     func(host Host, done func())
	OnDestroy  func()
}

// Name returns the plugin name
func (p *FuncPlugin) Name() string {
	return p.PluginName
}

// Load calls OnLoad, or reports loaded at once when OnLoad is nil
func (p *FuncPlugin) Load(host Host, done func()) {
	if p.OnLoad == nil {
		done()
		return
	}
	p.OnLoad(host, done)
}

// Destroy calls OnDestroy if set
func (p *FuncPlugin) Destroy() {
	if p.OnDestroy != nil {
		p.OnDestroy()
	}
}
