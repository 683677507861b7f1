package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixil98/go-realm/internal/typeclass"
)

// Method names implemented by the builtin typeclass library.
const (
	MethodDescribe = "describe"
	MethodOnEnter  = "on_enter"
)

// RegisterBuiltins installs the default behavior classes. Content packs
// register their own classes on top, usually parented to one of these.
//
//	base ─┬─ thing
//	      ├─ character
//	      ├─ room
//	      └─ exit
func RegisterBuiltins(reg *typeclass.Registry) error {
	base := typeclass.NewDefinition(typeclass.BaseTypeName, "").
		Declare("desc", "You see nothing special.").
		On(MethodDescribe, describeBase)

	thing := typeclass.NewDefinition("thing", typeclass.BaseTypeName)

	character := typeclass.NewDefinition("character", typeclass.BaseTypeName).
		Declare("perms", []string{}).
		Declare("cmdset", "default").
		On(MethodDescribe, describeCharacter)

	room := typeclass.NewDefinition("room", typeclass.BaseTypeName).
		On(MethodDescribe, describeRoom).
		On(MethodOnEnter, announceEnter)

	exit := typeclass.NewDefinition("exit", typeclass.BaseTypeName).
		Declare("destination", "")

	for _, def := range []*typeclass.Definition{base, thing, character, room, exit} {
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("registering %q: %w", def.Name, err)
		}
	}

	return reg.Validate()
}

func describeBase(ctx context.Context, call *typeclass.Call) (string, error) {
	var desc string
	if ok, err := call.Self.Attr("desc", &desc); !ok || err != nil {
		desc = "You see nothing special."
	}
	return fmt.Sprintf("%s\n%s", call.Self.Name(), desc), nil
}

func describeCharacter(ctx context.Context, call *typeclass.Call) (string, error) {
	// Reuse the base rendering, then append carried items.
	out, err := call.Super(ctx)
	if err != nil {
		return "", err
	}

	self, ok := call.Self.(*Entity)
	if !ok {
		return out, nil
	}

	carried := self.Contents()
	if len(carried) == 0 {
		return out, nil
	}

	names := make([]string, 0, len(carried))
	for _, item := range carried {
		names = append(names, item.Name())
	}
	return fmt.Sprintf("%s\nCarrying: %s", out, strings.Join(names, ", ")), nil
}

func describeRoom(ctx context.Context, call *typeclass.Call) (string, error) {
	out, err := call.Super(ctx)
	if err != nil {
		return "", err
	}

	self, ok := call.Self.(*Entity)
	if !ok {
		return out, nil
	}

	var here, exits []string
	for _, e := range self.Contents() {
		switch e.TypeName() {
		case "exit":
			exits = append(exits, e.Name())
		default:
			here = append(here, e.Name())
		}
	}

	if len(exits) > 0 {
		out = fmt.Sprintf("%s\nExits: %s", out, strings.Join(exits, ", "))
	}
	if len(here) > 0 {
		out = fmt.Sprintf("%s\nYou see: %s", out, strings.Join(here, ", "))
	}
	return out, nil
}

func announceEnter(ctx context.Context, call *typeclass.Call) (string, error) {
	who := "Someone"
	if len(call.Args) > 0 {
		who = call.Args[0]
	}
	return fmt.Sprintf("%s arrives.", who), nil
}
