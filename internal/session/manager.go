package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/pixil98/go-realm/internal"
	"github.com/pixil98/go-realm/internal/commands"
	"github.com/pixil98/go-realm/internal/dispatch"
	"github.com/pixil98/go-realm/internal/display"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/storage"
)

// Bus is the message transport sessions deliver output through. The
// embedded NATS server satisfies it.
type Bus interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte)) (unsubscribe func(), err error)
}

// Manager owns all connected sessions. It resolves sessions for the
// dispatcher and delivers command output to callers over the bus.
type Manager struct {
	world      *game.World
	bus        Bus
	accountSet *commands.Set
	startAt    storage.Identifier

	// dispatcher is set once at wiring time; sessions need it for the
	// input loop and disconnect notification.
	dispatcher *dispatch.Dispatcher

	mu       sync.Mutex
	sessions map[storage.Identifier]*Session
}

func NewManager(world *game.World, bus Bus, accountSet *commands.Set) *Manager {
	return &Manager{
		world:      world,
		bus:        bus,
		accountSet: accountSet,
		sessions:   map[storage.Identifier]*Session{},
	}
}

// SetDispatcher wires the dispatcher in after construction; the two
// reference each other.
func (m *Manager) SetDispatcher(d *dispatch.Dispatcher) {
	m.dispatcher = d
}

// SetStart sets the room new characters spawn in. Known only after
// content packs have seeded the world.
func (m *Manager) SetStart(id storage.Identifier) {
	m.startAt = id
}

// Session implements dispatch.SessionResolver.
func (m *Manager) Session(id storage.Identifier) (dispatch.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	return s, ok
}

// Deliver implements commands.Sink by publishing to the caller's subject.
func (m *Manager) Deliver(id storage.Identifier, msg string) error {
	return m.bus.Publish(subjectFor(id), []byte(msg))
}

func subjectFor(id storage.Identifier) string {
	return fmt.Sprintf("caller.%s", id)
}

// RunSession drives one connection from login to disconnect. A second
// connection for the same caller evicts the first.
func (m *Manager) RunSession(ctx context.Context, conn io.ReadWriter) error {
	caller, err := m.login(conn)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	callerId := caller.Id()

	sess := m.attach(callerId)
	defer m.detach(callerId, sess)

	// Forward bus messages for this caller to the connection.
	msgs := make(chan []byte, 16)
	unsubscribe, err := m.bus.Subscribe(subjectFor(callerId), func(data []byte) {
		select {
		case msgs <- data:
		default:
			slog.Warn("dropping message for slow caller", "caller", callerId)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}
	defer unsubscribe()

	// Read input lines into a channel so the select below can also honor
	// eviction and shutdown.
	inputs := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			inputs <- scanner.Text()
		}
		readErr <- scanner.Err()
		close(inputs)
	}()

	// Show the caller where they are.
	_ = m.dispatcher.Process(ctx, callerId, "look")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-sess.Done():
			m.writeLine(conn, "\nAnother connection has taken over your session.")
			return nil

		case msg := <-msgs:
			m.writeLine(conn, string(msg))
			if sess.QuitRequested() {
				return nil
			}

		case line, ok := <-inputs:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			_ = m.dispatcher.Process(ctx, callerId, line)
			if sess.QuitRequested() {
				// Drain anything the final command said before closing.
				for {
					select {
					case msg := <-msgs:
						m.writeLine(conn, string(msg))
						continue
					default:
					}
					break
				}
				return nil
			}
		}
	}
}

func (m *Manager) writeLine(conn io.Writer, msg string) {
	if _, err := fmt.Fprintf(conn, "%s\n", display.Wrap(msg)); err != nil {
		slog.Warn("failed to write to connection", "error", err)
	}
}

// attach registers a session, evicting any existing one for the caller.
func (m *Manager) attach(callerId storage.Identifier) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.sessions[callerId]; ok {
		close(old.done)
	}

	sess := newSession(callerId, m.world, m.accountSet)
	m.sessions[callerId] = sess
	return sess
}

// detach removes the session and cancels its pending interactions. Only
// the session created by this connection is removed; an evicting
// reconnection already replaced it.
func (m *Manager) detach(callerId storage.Identifier, sess *Session) {
	m.mu.Lock()
	current := m.sessions[callerId]
	if current == sess {
		delete(m.sessions, callerId)
	}
	m.mu.Unlock()

	if current == sess && m.dispatcher != nil {
		m.dispatcher.Disconnect(callerId)
	}
}

// login prompts for a character name, resuming the existing character or
// creating a fresh one in the starting location.
func (m *Manager) login(conn io.ReadWriter) (*game.Entity, error) {
	name, err := internal.Prompt(conn, "What is your name? ", internal.WithValidator(
		func(str string) (bool, string) {
			if strings.TrimSpace(str) == "" {
				return false, "A name is required.\n"
			}
			return true, ""
		},
	))
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	if existing := m.findCharacter(name); existing != nil {
		return existing, nil
	}

	caller, err := m.world.Create("character", map[string]any{
		"name": name,
	})
	if err != nil {
		return nil, fmt.Errorf("creating character: %w", err)
	}
	caller.AddTag("character")

	if start, err := m.world.Get(m.startAt); err == nil {
		caller.SetLocation(start)
		caller.SetHome(start)
	}

	if err := m.world.Persist(caller); err != nil {
		return nil, err
	}
	return caller, nil
}

func (m *Manager) findCharacter(name string) *game.Entity {
	lower := strings.ToLower(name)

	ids, err := m.world.Store().Query(func(rec *storage.Record) bool {
		return rec.TypeName == "character" &&
			strings.ToLower(rec.Attrs.GetString(game.AttrName, "")) == lower
	})
	if err != nil || len(ids) == 0 {
		return nil
	}

	caller, err := m.world.Get(ids[0])
	if err != nil {
		return nil
	}
	return caller
}
