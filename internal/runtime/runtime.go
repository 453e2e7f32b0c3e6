// Package runtime assembles the isolated execution context each bot
// instance routes activities against: its dialog set, state accessor,
// script registries and loaded capability packages.
package runtime

import (
	"context"
	"log"

	"github.com/thamiris-ramos/BotServer/internal/dialog"
	"github.com/thamiris-ramos/BotServer/internal/registry"
	"github.com/thamiris-ramos/BotServer/internal/scripts"
	"github.com/thamiris-ramos/BotServer/internal/state"
)

// Package is the capability package contract. Optional hooks are modeled as
// separate interfaces so presence is an explicit type assertion, not a
// runtime property probe.
type Package interface {
	Name() string
	LoadBot(rt *Runtime) error
}

// DialogProvider packages contribute dialogs to the runtime's dialog set.
type DialogProvider interface {
	GetDialogs(rt *Runtime) []dialog.Definition
}

// SessionGreeter packages run when the bot itself is added to a
// conversation.
type SessionGreeter interface {
	OnNewSession(ctx context.Context, rt *Runtime, step *dialog.Step) error
}

// SystemAware packages receive the system package list before their own
// load hook so late-loaded packages can cooperate with system ones.
type SystemAware interface {
	SetSystemPackages(system []Package)
}

// Runtime is the live execution context for one Instance. One exists per
// active instance for the process lifetime; it is never shared between
// instances. The dialog set and registries are written only during Build and
// read-only during routing.
type Runtime struct {
	Instance  registry.Instance
	Dialogs   *dialog.Set
	State     *state.Accessor
	Scripts   *scripts.Registry
	Sandboxes *scripts.SandboxRegistry
	Packages  []Package
	Channel   dialog.Sink
	Logger    *log.Logger
}
