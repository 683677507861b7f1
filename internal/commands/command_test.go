package commands

import (
	"testing"

	"github.com/pixil98/go-realm/internal/storage"
	"github.com/pixil98/go-testutil"
)

type fakeLockCaller struct {
	id    storage.Identifier
	perms map[string]bool
}

func (c *fakeLockCaller) Id() storage.Identifier {
	return c.id
}

func (c *fakeLockCaller) HasPerm(perm string) bool {
	return c.perms[perm]
}

func (c *fakeLockCaller) HasTag(tag string) bool {
	return false
}

func TestCommand_Validate(t *testing.T) {
	tests := map[string]struct {
		cmd    Command
		expErr bool
	}{
		"valid command": {
			cmd: Command{Key: "look", Handler: noopHandler},
		},
		"valid command with lock and aliases": {
			cmd: Command{
				Key:     "dig",
				Aliases: []string{"tunnel"},
				Lock:    "perm(builder)",
				Handler: noopHandler,
			},
		},
		"missing key": {
			cmd:    Command{Handler: noopHandler},
			expErr: true,
		},
		"uppercase key": {
			cmd:    Command{Key: "Look", Handler: noopHandler},
			expErr: true,
		},
		"empty alias": {
			cmd:    Command{Key: "look", Aliases: []string{""}, Handler: noopHandler},
			expErr: true,
		},
		"missing handler": {
			cmd:    Command{Key: "look"},
			expErr: true,
		},
		"invalid lock": {
			cmd:    Command{Key: "look", Lock: "perm(", Handler: noopHandler},
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cmd.Validate()

			if tt.expErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCommand_Allowed(t *testing.T) {
	builder := &fakeLockCaller{id: "char-1", perms: map[string]bool{"builder": true}}
	mortal := &fakeLockCaller{id: "char-2"}

	tests := map[string]struct {
		lock       string
		expBuilder bool
		expMortal  bool
	}{
		"empty lock passes everyone": {
			lock:       "",
			expBuilder: true,
			expMortal:  true,
		},
		"perm lock gates": {
			lock:       "perm(builder)",
			expBuilder: true,
			expMortal:  false,
		},
		"invalid lock denies": {
			lock:       "perm(",
			expBuilder: false,
			expMortal:  false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := &Command{Key: "dig", Lock: tt.lock, Handler: noopHandler}

			testutil.AssertEqual(t, "builder", cmd.Allowed(builder), tt.expBuilder)
			testutil.AssertEqual(t, "mortal", cmd.Allowed(mortal), tt.expMortal)
		})
	}
}
