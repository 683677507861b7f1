package session

import (
	"sync/atomic"

	"github.com/pixil98/go-realm/internal/commands"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/storage"
)

// Session is one connected caller: the acting entity reference, its
// permission attributes, and the account-level command set contributed to
// every dispatch. Implements the dispatcher's Session contract.
type Session struct {
	callerId storage.Identifier
	world    *game.World
	set      *commands.Set

	quit atomic.Bool

	// done is closed when another connection takes over this session.
	done chan struct{}
}

func newSession(callerId storage.Identifier, world *game.World, set *commands.Set) *Session {
	return &Session{
		callerId: callerId,
		world:    world,
		set:      set,
		done:     make(chan struct{}),
	}
}

func (s *Session) CallerId() storage.Identifier {
	return s.callerId
}

// Perms reads the caller's permission attributes live from the entity, so
// a grant takes effect on the caller's next command.
func (s *Session) Perms() []string {
	caller, err := s.world.Get(s.callerId)
	if err != nil {
		return nil
	}

	var perms []string
	if ok, err := caller.Attr("perms", &perms); !ok || err != nil {
		return nil
	}
	return perms
}

// CommandSet returns the session/account-level command set, highest in
// merge precedence.
func (s *Session) CommandSet() *commands.Set {
	return s.set
}

// RequestQuit marks the session for shutdown; the connection loop honors
// it after the current command settles.
func (s *Session) RequestQuit() {
	s.quit.Store(true)
}

// QuitRequested reports whether the session should end.
func (s *Session) QuitRequested() bool {
	return s.quit.Load()
}

// Done returns the channel closed when this session is evicted by a
// reconnection.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
