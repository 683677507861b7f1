package command

import (
	"context"
	"fmt"
	"time"

	"github.com/pixil98/go-realm/internal/content"
	"github.com/pixil98/go-realm/internal/content/base"
	"github.com/pixil98/go-realm/internal/dispatch"
	"github.com/pixil98/go-realm/internal/driver"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/listener"
	"github.com/pixil98/go-realm/internal/session"
	"github.com/pixil98/go-realm/internal/typeclass"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	ctx := context.Background()

	// Create the record store
	store, err := cfg.Storage.BuildStore()
	if err != nil {
		return nil, fmt.Errorf("creating record store: %w", err)
	}

	// Create the embedded message bus
	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	// Hydrate the world from the store
	types := typeclass.NewRegistry()
	world, err := game.NewWorld(store, types)
	if err != nil {
		return nil, fmt.Errorf("creating world: %w", err)
	}

	// Sessions and the dispatcher reference each other, so wire the
	// dispatcher in after both exist.
	sessions := session.NewManager(world, natsServer, nil)
	dispatcher := dispatch.NewDispatcher(world, sessions, sessions)
	sessions.SetDispatcher(dispatcher)

	// Install content packs and seed the world
	contentManager := content.NewManager(types, dispatcher)
	err = contentManager.Register(ctx, &base.BasePack{})
	if err != nil {
		return nil, fmt.Errorf("registering base pack: %w", err)
	}
	err = contentManager.SeedAll(world)
	if err != nil {
		return nil, fmt.Errorf("seeding world: %w", err)
	}

	starts, err := world.FindTagged(base.StartTag)
	if err != nil {
		return nil, fmt.Errorf("finding start room: %w", err)
	}
	if len(starts) == 0 {
		return nil, fmt.Errorf("no start room exists after seeding")
	}
	sessions.SetStart(starts[0].Id())

	// Create Listeners
	connections := listener.NewConnectionManager(sessions)
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		worker, err := l.BuildListener(connections)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = worker
	}

	// Setup the tick driver
	var driverOpts []driver.Opt
	if cfg.TickInterval != "" {
		d, err := time.ParseDuration(cfg.TickInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing tick_interval: %w", err)
		}
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}
	ticker := driver.NewDriver([]driver.Manager{
		world,
		contentManager,
	}, driverOpts...)

	// Create a worker list
	return service.WorkerList{
		"bus":       natsServer,
		"driver":    ticker,
		"listeners": &listeners,
	}, nil
}
