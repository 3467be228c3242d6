package main

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/plugin"
)

type poster func(f func())

// builtinPlugins returns the cell plugins gridclient knows. Deferred plugins report
// loaded through post, so they finish on a later tick.
func builtinPlugins(post poster) map[string]plugin.Creator {
	deferred := func(name string) plugin.Creator {
		return func(host plugin.Host) plugin.Plugin {
			return &plugin.FuncPlugin{
				PluginName: name,
				OnLoad: func(host plugin.Host, done func()) {
					gwlog.Debugf("plugin %s: loading for %s %s", name, host.ServerName(), host.GridCell())
					post(done)
				},
				OnDestroy: func() {
					gwlog.Debugf("plugin %s: unloaded from %s %s", name, host.ServerName(), host.GridCell())
				},
			}
		}
	}
	immediate := func(name string) plugin.Creator {
		return func(host plugin.Host) plugin.Plugin {
			return &plugin.FuncPlugin{PluginName: name}
		}
	}

	return map[string]plugin.Creator{
		"terrain": deferred("terrain"),
		"npcs":    deferred("npcs"),
		"weather": immediate("weather"),
		"chat":    immediate("chat"),
	}
}

// newPluginRegistry registers the named builtin plugins in order
func newPluginRegistry(names []string, post poster) (*plugin.Registry, error) {
	builtins := builtinPlugins(post)
	reg := plugin.NewRegistry()
	for _, name := range names {
		creator, ok := builtins[name]
		if !ok {
			return nil, errors.Errorf("unknown cell plugin: %s", name)
		}
		if err := reg.Register(name, creator); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
