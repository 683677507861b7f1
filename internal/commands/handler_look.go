package commands

import (
	"context"
	"errors"

	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/search"
)

// LookCommand shows the caller their location, or a named target.
func LookCommand() *Command {
	return &Command{
		Key:     "look",
		Aliases: []string{"l", "examine"},
		Help:    "look [target] - describe your surroundings or a target",
		Handler: handleLook,
	}
}

func handleLook(ctx context.Context, ex *Execution) error {
	var target *game.Entity

	if ex.Args == "" {
		target = ex.Caller.Location()
		if target == nil {
			return ex.Respond("You are nowhere.")
		}
	} else {
		found, err := search.Search(ex.World, ex.Caller, ex.Args, search.ScopeLocation|search.ScopeInventory)
		if err != nil {
			return lookupError(err)
		}
		target = found
	}

	desc, err := target.Call(ctx, game.MethodDescribe)
	if err != nil {
		return err
	}
	return ex.Respond("%s", desc)
}

// lookupError converts search failures into caller-visible messages,
// passing anything unexpected through unchanged.
func lookupError(err error) error {
	var ambig *search.AmbiguousError
	switch {
	case errors.As(err, &ambig):
		return NewUserError("Which one? " + ambig.Error())
	case errors.Is(err, search.ErrNothingFound):
		return NewUserError("You don't see that here.")
	default:
		return err
	}
}
