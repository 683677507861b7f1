package commands

import (
	"context"
	"strings"
)

// RenameCommand changes the caller's display name. It is a two-step
// interaction: the handler suspends to confirm before applying, so it
// exercises the dispatcher's saved-continuation path.
func RenameCommand() *Command {
	return &Command{
		Key:     "rename",
		Help:    "rename <new name> - change your name (asks for confirmation)",
		Handler: handleRename,
	}
}

func handleRename(ctx context.Context, ex *Execution) error {
	newName := strings.TrimSpace(ex.Args)
	if newName == "" {
		return NewUserError("Rename yourself to what?")
	}

	return ex.Suspend(
		"Rename yourself to \""+newName+"\"? (yes/no)",
		func(input string) Func {
			return func(ctx context.Context, ex *Execution) error {
				switch strings.ToLower(strings.TrimSpace(input)) {
				case "y", "yes":
					err := ex.Mutate(func() error {
						return ex.Caller.SetAttr("name", newName)
					})
					if err != nil {
						return err
					}
					return ex.Respond("You are now known as %s.", newName)
				default:
					return ex.Respond("Rename cancelled.")
				}
			}
		},
	)
}

// QuitCommand signals the caller's session to end.
func QuitCommand() *Command {
	return &Command{
		Key:     "quit",
		Help:    "quit - leave the game",
		Handler: handleQuit,
	}
}

func handleQuit(ctx context.Context, ex *Execution) error {
	if ex.OnQuit != nil {
		ex.OnQuit()
	}
	return ex.Respond("Goodbye.")
}

// DefaultSet returns the command set every character contributes. Content
// packs extend or override it through typeclass and item sets.
func DefaultSet() *Set {
	return &Set{
		Name:  "default",
		Merge: MergeUnion,
		Commands: []*Command{
			LookCommand(),
			SayCommand(),
			GetCommand(),
			DropCommand(),
			InventoryCommand(),
			MoveCommand(),
			DigCommand(),
			RenameCommand(),
			HelpCommand(),
			QuitCommand(),
		},
	}
}

// HelpCommand lists available commands from the set merged for this very
// dispatch, so it always reflects what the caller can actually run.
func HelpCommand() *Command {
	return &Command{
		Key:     "help",
		Aliases: []string{"?"},
		Help:    "help - list available commands",
		Handler: handleHelp,
	}
}

func handleHelp(ctx context.Context, ex *Execution) error {
	if ex.Merged == nil {
		return ex.Respond("No commands available.")
	}

	out := "Available commands:"
	for _, key := range ex.Merged.Keys() {
		cmd, _ := ex.Merged.Get(key)
		if cmd.Help != "" {
			out += "\n  " + cmd.Help
		} else {
			out += "\n  " + key
		}
	}
	return ex.Respond("%s", out)
}
