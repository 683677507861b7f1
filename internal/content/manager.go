// Package content manages content packs: bundles of typeclass
// definitions, command sets, and seed entities installed at startup.
package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-realm/internal/commands"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/typeclass"
)

// SetRegistrar receives the command sets a pack contributes. The
// dispatcher satisfies it.
type SetRegistrar interface {
	RegisterSet(name string, set *commands.Set) error
}

// Pack is one installable content bundle.
type Pack interface {
	Key() string
	// Install registers the pack's typeclasses and command sets.
	Install(types *typeclass.Registry, sets SetRegistrar) error
	// Seed creates any entities the pack requires to exist, idempotently.
	Seed(world *game.World) error
	// Tick runs the pack's periodic upkeep, if any.
	Tick(context.Context) error
}

type Manager struct {
	types *typeclass.Registry
	sets  SetRegistrar
	packs []Pack
}

func NewManager(types *typeclass.Registry, sets SetRegistrar) *Manager {
	return &Manager{
		types: types,
		sets:  sets,
		packs: []Pack{},
	}
}

func (m *Manager) Register(ctx context.Context, p Pack) error {
	if p == nil {
		return fmt.Errorf("pack is nil")
	}

	m.packs = append(m.packs, p)
	slog.InfoContext(ctx, "registered content pack", "key", p.Key())

	return p.Install(m.types, m.sets)
}

// SeedAll runs every pack's Seed after the world is up.
func (m *Manager) SeedAll(world *game.World) error {
	for _, p := range m.packs {
		if err := p.Seed(world); err != nil {
			return fmt.Errorf("seeding %s: %w", p.Key(), err)
		}
	}
	return nil
}

func (m *Manager) Tick(ctx context.Context) error {
	for _, p := range m.packs {
		err := p.Tick(ctx)
		if err != nil {
			return fmt.Errorf("ticking %s: %w", p.Key(), err)
		}
	}

	return nil
}
