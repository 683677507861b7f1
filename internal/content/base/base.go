// Package base is the builtin content pack: the core typeclass library,
// the default command set, and the starting room.
package base

import (
	"context"
	"fmt"

	"github.com/pixil98/go-realm/internal/commands"
	"github.com/pixil98/go-realm/internal/content"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/typeclass"
)

const (
	packKey = "base"

	// StartTag marks the room new characters spawn in.
	StartTag = "start"
)

type BasePack struct{}

func (p *BasePack) Key() string {
	return packKey
}

func (p *BasePack) Install(types *typeclass.Registry, sets content.SetRegistrar) error {
	if err := game.RegisterBuiltins(types); err != nil {
		return fmt.Errorf("registering builtin typeclasses: %w", err)
	}

	if err := sets.RegisterSet("default", commands.DefaultSet()); err != nil {
		return fmt.Errorf("registering default command set: %w", err)
	}

	return nil
}

// Seed guarantees a starting room exists. Idempotent: an already-tagged
// room is left alone.
func (p *BasePack) Seed(world *game.World) error {
	rooms, err := world.FindTagged(StartTag)
	if err != nil {
		return err
	}
	if len(rooms) > 0 {
		return nil
	}

	room, err := world.Create("room", map[string]any{
		"name": "The Landing",
		"desc": "A quiet clearing where new arrivals find their feet.",
	})
	if err != nil {
		return err
	}
	room.AddTag(StartTag)

	return world.Persist(room)
}

func (p *BasePack) Tick(ctx context.Context) error {
	return nil
}
