package runtime

import (
	"context"
	"fmt"
	"log"

	"github.com/thamiris-ramos/BotServer/internal/dialog"
	"github.com/thamiris-ramos/BotServer/internal/registry"
	"github.com/thamiris-ramos/BotServer/internal/scripts"
	"github.com/thamiris-ramos/BotServer/internal/state"
)

// Builder constructs one Runtime per instance. System packages load first,
// in the order given; app packages load after and receive the system
// package list. A failing load hook is fatal to that instance's startup.
type Builder struct {
	logger     *log.Logger
	stateStore state.Store
	channel    dialog.Sink
	system     []Package
	app        []Package
}

func NewBuilder(logger *log.Logger, stateStore state.Store, channel dialog.Sink, system []Package, app []Package) *Builder {
	return &Builder{
		logger:     logger,
		stateStore: stateStore,
		channel:    channel,
		system:     system,
		app:        app,
	}
}

func (b *Builder) Build(ctx context.Context, instance registry.Instance) (*Runtime, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dialogs := dialog.NewSet()
	for _, prompt := range dialog.BaselinePrompts() {
		if err := dialogs.Add(prompt); err != nil {
			return nil, fmt.Errorf("register baseline prompt: %w", err)
		}
	}

	rt := &Runtime{
		Instance:  instance,
		Dialogs:   dialogs,
		State:     state.NewAccessor(b.stateStore, instance.InstanceID),
		Scripts:   scripts.NewRegistry(),
		Sandboxes: scripts.NewSandboxRegistry(),
		Channel:   b.channel,
		Logger:    b.logger,
	}

	for _, pkg := range b.system {
		if err := b.loadPackage(rt, pkg); err != nil {
			return nil, err
		}
	}
	for _, pkg := range b.app {
		if aware, ok := pkg.(SystemAware); ok {
			aware.SetSystemPackages(b.system)
		}
		if err := b.loadPackage(rt, pkg); err != nil {
			return nil, err
		}
	}

	rt.Packages = make([]Package, 0, len(b.system)+len(b.app))
	rt.Packages = append(rt.Packages, b.system...)
	rt.Packages = append(rt.Packages, b.app...)

	b.logger.Printf("runtime built bot_id=%s packages=%d", instance.BotID, len(rt.Packages))
	return rt, nil
}

func (b *Builder) loadPackage(rt *Runtime, pkg Package) error {
	if err := pkg.LoadBot(rt); err != nil {
		return fmt.Errorf("load package %q for bot %q: %w", pkg.Name(), rt.Instance.BotID, err)
	}
	if provider, ok := pkg.(DialogProvider); ok {
		for _, def := range provider.GetDialogs(rt) {
			if err := rt.Dialogs.Add(def); err != nil {
				return fmt.Errorf("register dialogs of package %q: %w", pkg.Name(), err)
			}
		}
	}
	return nil
}
