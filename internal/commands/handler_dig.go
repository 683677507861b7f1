package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixil98/go-realm/internal/display"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/storage"
)

// DigCommand creates a new room linked from the caller's location.
// Restricted to callers holding the builder permission.
func DigCommand() *Command {
	return &Command{
		Key:     "dig",
		Lock:    "perm(builder)",
		Help:    "dig <direction> [= room name] - create and link a new room",
		Handler: handleDig,
	}
}

func handleDig(ctx context.Context, ex *Execution) error {
	if ex.Args == "" {
		return NewUserError("Dig where?")
	}

	direction, roomName, _ := strings.Cut(ex.Args, "=")
	direction = strings.TrimSpace(direction)
	roomName = strings.TrimSpace(roomName)
	if roomName == "" {
		roomName = fmt.Sprintf("Room %s", direction)
	}

	here := ex.Caller.Location()
	if here == nil {
		return NewUserError("You must be somewhere to dig.")
	}

	room, err := ex.World.Create("room", map[string]any{
		"name": roomName,
	})
	if err != nil {
		return err
	}

	exit, err := ex.World.Create("exit", map[string]any{
		"name":        direction,
		"destination": room.Id().String(),
	})
	if err != nil {
		// The room is already durable; take it back out so a failed dig
		// leaves nothing behind.
		_ = ex.World.Destroy(room.Id())
		return err
	}

	err = ex.Mutate(func() error {
		exit.SetLocation(here)
		return nil
	}, exit)
	if err != nil {
		_ = ex.World.Destroy(exit.Id())
		_ = ex.World.Destroy(room.Id())
		return err
	}

	return ex.Respond("You dig %s to %s.", direction, roomName)
}

// MoveCommand walks the caller through a named exit.
func MoveCommand() *Command {
	return &Command{
		Key:     "go",
		Aliases: []string{"move", "walk"},
		Help:    "go <exit> - move through an exit",
		Handler: handleMove,
	}
}

func handleMove(ctx context.Context, ex *Execution) error {
	if ex.Args == "" {
		return NewUserError("Go where?")
	}

	here := ex.Caller.Location()
	if here == nil {
		return NewUserError("You are nowhere; there is no way out.")
	}

	name := strings.ToLower(ex.Args)
	var dest string
	for _, e := range here.Contents() {
		if e.TypeName() != "exit" {
			continue
		}
		if strings.ToLower(e.Name()) != name {
			continue
		}
		if ok, err := e.Attr("destination", &dest); !ok || err != nil {
			return NewUserError("That way leads nowhere.")
		}
		break
	}
	if dest == "" {
		return NewUserError("You can't go that way.")
	}

	room, err := ex.World.Get(storage.Identifier(dest))
	if err != nil {
		return NewUserError("That way leads nowhere.")
	}

	err = ex.Mutate(func() error {
		ex.Caller.SetLocation(room)
		return nil
	})
	if err != nil {
		return err
	}

	announce, err := room.Call(ctx, game.MethodOnEnter, ex.Caller.Name())
	if err == nil && announce != "" {
		announce = display.Capitalize(announce)
		for _, e := range room.Contents() {
			if e.Id() != ex.Caller.Id() {
				ex.Notify(e, "%s", announce)
			}
		}
	}

	return handleLook(ctx, &Execution{
		World:  ex.World,
		Caller: ex.Caller,
		Perms:  ex.Perms,
		sink:   ex.sink,
	})
}
