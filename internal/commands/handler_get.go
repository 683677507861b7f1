package commands

import (
	"context"
	"errors"

	"github.com/pixil98/go-realm/internal/search"
)

// GetCommand picks up an item from the caller's location.
func GetCommand() *Command {
	return &Command{
		Key:     "get",
		Aliases: []string{"take"},
		Help:    "get <item> - pick up an item",
		Handler: handleGet,
	}
}

func handleGet(ctx context.Context, ex *Execution) error {
	if ex.Args == "" {
		return NewUserError("Get what?")
	}

	item, err := search.Search(ex.World, ex.Caller, ex.Args, search.ScopeLocation)
	if err != nil {
		return lookupError(err)
	}

	if item.TypeName() == "exit" || item.TypeName() == "character" {
		return NewUserError("You can't pick that up.")
	}

	err = ex.Mutate(func() error {
		item.SetLocation(ex.Caller)
		return nil
	}, item)
	if err != nil {
		return err
	}

	return ex.Respond("You pick up %s.", item.Name())
}

// DropCommand puts a carried item down in the caller's location.
func DropCommand() *Command {
	return &Command{
		Key:     "drop",
		Help:    "drop <item> - put down a carried item",
		Handler: handleDrop,
	}
}

func handleDrop(ctx context.Context, ex *Execution) error {
	if ex.Args == "" {
		return NewUserError("Drop what?")
	}

	item, err := search.Search(ex.World, ex.Caller, ex.Args, search.ScopeInventory)
	if err != nil {
		if errors.Is(err, search.ErrNothingFound) {
			return NewUserError("You aren't carrying that.")
		}
		return lookupError(err)
	}

	loc := ex.Caller.Location()
	if loc == nil {
		return NewUserError("There is nowhere to drop it.")
	}

	err = ex.Mutate(func() error {
		item.SetLocation(loc)
		return nil
	}, item)
	if err != nil {
		return err
	}

	return ex.Respond("You drop %s.", item.Name())
}

// InventoryCommand lists what the caller carries.
func InventoryCommand() *Command {
	return &Command{
		Key:     "inventory",
		Aliases: []string{"i", "inv"},
		Help:    "inventory - list what you are carrying",
		Handler: handleInventory,
	}
}

func handleInventory(ctx context.Context, ex *Execution) error {
	carried := ex.Caller.Contents()
	if len(carried) == 0 {
		return ex.Respond("You aren't carrying anything.")
	}

	out := "You are carrying:"
	for _, item := range carried {
		out += "\n  " + item.Name()
	}
	return ex.Respond("%s", out)
}
