package commands

import (
	"context"
	"fmt"

	"github.com/pixil98/go-realm/internal/display"
)

const (
	sayToRoomTemplate = `{{ .Name }} says, "{{ .Text }}"`
	sayToSelfTemplate = `You say, "{{ .Text }}"`
)

// SayCommand speaks to everyone in the caller's location.
func SayCommand() *Command {
	return &Command{
		Key:     "say",
		Aliases: []string{"'"},
		Help:    "say <text> - speak to everyone here",
		Handler: handleSay,
	}
}

func handleSay(ctx context.Context, ex *Execution) error {
	if ex.Args == "" {
		return NewUserError("Say what?")
	}

	// Names open the room-facing sentence, so they get sentence case.
	data := struct {
		Name string
		Text string
	}{
		Name: display.Capitalize(ex.Caller.Name()),
		Text: ex.Args,
	}

	toRoom, err := ExpandTemplate(sayToRoomTemplate, data)
	if err != nil {
		return fmt.Errorf("expanding room message: %w", err)
	}
	toSelf, err := ExpandTemplate(sayToSelfTemplate, data)
	if err != nil {
		return fmt.Errorf("expanding self message: %w", err)
	}

	if loc := ex.Caller.Location(); loc != nil {
		for _, e := range loc.Contents() {
			if e.Id() == ex.Caller.Id() {
				continue
			}
			ex.Notify(e, "%s", toRoom)
		}
	}

	return ex.Respond("%s", toSelf)
}
