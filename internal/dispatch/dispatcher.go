// Package dispatch turns raw caller input into executed commands. One
// dispatch cycle runs ReceiveInput → ResolveCallerContext →
// BuildMergedCommandSet → MatchInput → CheckLocks → Execute → Settle;
// every failure short of a stale caller is reported to the caller and
// leaves the dispatcher healthy for the next input.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-realm/internal/commands"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/storage"
)

var (
	// ErrCommandNotFound is reported when input matches no merged key or
	// alias. Caller-facing, never fatal to the dispatcher.
	ErrCommandNotFound = errors.New("command not found")

	// ErrPermissionDenied is reported when the matched command's lock
	// rejects the caller.
	ErrPermissionDenied = errors.New("permission denied")
)

// Session is the dispatcher's view of one connected caller. The session
// layer owns the transport; the dispatcher only needs the acting entity
// reference, the permission attributes, and the account-level command set.
type Session interface {
	CallerId() storage.Identifier
	Perms() []string
	CommandSet() *commands.Set
	RequestQuit()
}

// SessionResolver finds the session for a caller identity.
type SessionResolver interface {
	Session(id storage.Identifier) (Session, bool)
}

// suspended is a saved continuation for a multi-step command, keyed by
// caller identity. Entity locks are never held while one is pending.
type suspended struct {
	resume func(input string) commands.Func
}

type Dispatcher struct {
	world    *game.World
	sessions SessionResolver
	sink     commands.Sink

	mu        sync.Mutex
	sets      map[string]*commands.Set
	queues    map[storage.Identifier]*callerQueue
	suspended map[storage.Identifier]*suspended
}

func NewDispatcher(world *game.World, sessions SessionResolver, sink commands.Sink) *Dispatcher {
	return &Dispatcher{
		world:     world,
		sessions:  sessions,
		sink:      sink,
		sets:      map[string]*commands.Set{},
		queues:    map[storage.Identifier]*callerQueue{},
		suspended: map[storage.Identifier]*suspended{},
	}
}

// AttrCmdSet is the attribute naming the command set an entity
// contributes. Typeclasses declare it; items and locations override it
// per instance.
const AttrCmdSet = "cmdset"

// RegisterSet makes a named command set available for entities to
// contribute. Registering validates the set.
func (d *Dispatcher) RegisterSet(name string, set *commands.Set) error {
	if name == "" {
		return fmt.Errorf("set name cannot be empty")
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("validating set %q: %w", name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.sets[name]; exists {
		return fmt.Errorf("set %q already registered", name)
	}
	d.sets[name] = set
	return nil
}

// setForEntity resolves the command set an entity contributes, nil if it
// contributes none.
func (d *Dispatcher) setForEntity(e *game.Entity) *commands.Set {
	var name string
	if ok, err := e.Attr(AttrCmdSet, &name); !ok || err != nil || name == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sets[name]
}

// Dispatch queues one input line for a caller. Inputs from one caller are
// processed strictly in order, one in flight at a time; different callers
// proceed concurrently.
func (d *Dispatcher) Dispatch(ctx context.Context, callerId storage.Identifier, input string) {
	d.queueFor(callerId).enqueue(ctx, input)
}

// Process runs one full dispatch cycle synchronously and returns the
// classified error (also already reported to the caller). Exposed for the
// session loop and tests; Dispatch funnels through it.
func (d *Dispatcher) Process(ctx context.Context, callerId storage.Identifier, input string) error {
	err := d.cycle(ctx, callerId, input)
	if err != nil {
		d.report(callerId, err)
	}
	return err
}

func (d *Dispatcher) cycle(ctx context.Context, callerId storage.Identifier, input string) error {
	// ResolveCallerContext
	caller, err := d.world.Get(callerId)
	if err != nil {
		return fmt.Errorf("%w: %v", game.ErrCallerGone, err)
	}

	sess, ok := d.sessions.Session(callerId)
	if !ok {
		return fmt.Errorf("%w: no session for %s", game.ErrCallerGone, callerId)
	}

	// A pending multi-step interaction consumes this input as its answer.
	if cont := d.takeSuspension(callerId); cont != nil {
		ex := d.execution(caller, sess, "", nil)
		return d.execute(ctx, callerId, cont.resume(input), ex)
	}

	// BuildMergedCommandSet - recomputed every dispatch, never cached.
	merged := d.buildSet(sess, caller)
	for _, w := range merged.Warnings() {
		slog.Warn("command set collision", "caller", callerId, "warning", w.String())
	}

	// MatchInput
	cmd, args, ok := merged.Match(input)
	if !ok {
		return fmt.Errorf("%q: %w", input, ErrCommandNotFound)
	}

	// CheckLocks
	ex := d.execution(caller, sess, args, merged)
	if !cmd.Allowed(ex.LockCaller()) {
		return fmt.Errorf("%q: %w", cmd.Key, ErrPermissionDenied)
	}

	// Execute + Settle (persistence and rollback happen inside the
	// handler's mutation batches, under the entity locks).
	return d.execute(ctx, callerId, cmd.Handler, ex)
}

// buildSet collects contributor sets in fixed precedence order: session,
// the acting entity's own set, its location's set, then each carried item.
func (d *Dispatcher) buildSet(sess Session, caller *game.Entity) *commands.Merged {
	var contribs []commands.Contribution

	if set := sess.CommandSet(); set != nil {
		contribs = append(contribs, commands.Contribution{Source: "session", Set: set})
	}

	contribs = append(contribs, commands.Contribution{
		Source: "entity:" + caller.Id().String(),
		Set:    d.setForEntity(caller),
	})

	if loc := caller.Location(); loc != nil {
		contribs = append(contribs, commands.Contribution{
			Source: "location:" + loc.Id().String(),
			Set:    d.setForEntity(loc),
		})
	}

	for _, item := range caller.Contents() {
		contribs = append(contribs, commands.Contribution{
			Source: "item:" + item.Id().String(),
			Set:    d.setForEntity(item),
		})
	}

	return commands.MergeSets(contribs)
}

func (d *Dispatcher) execution(caller *game.Entity, sess Session, args string, merged *commands.Merged) *commands.Execution {
	ex := commands.NewExecution(d.world, caller, sess.Perms(), args, d.sink)
	ex.Merged = merged
	ex.OnQuit = sess.RequestQuit
	return ex
}

func (d *Dispatcher) execute(ctx context.Context, callerId storage.Identifier, fn commands.Func, ex *commands.Execution) error {
	err := fn(ctx, ex)
	if err == nil {
		return nil
	}

	// A suspension is not a failure: save the continuation and prompt.
	var susp *commands.Suspension
	if errors.As(err, &susp) {
		d.mu.Lock()
		d.suspended[callerId] = &suspended{resume: susp.Resume}
		d.mu.Unlock()
		_ = d.sink.Deliver(callerId, susp.Prompt)
		return nil
	}

	return err
}

func (d *Dispatcher) takeSuspension(callerId storage.Identifier) *suspended {
	d.mu.Lock()
	defer d.mu.Unlock()

	cont, ok := d.suspended[callerId]
	if !ok {
		return nil
	}
	delete(d.suspended, callerId)
	return cont
}

// Disconnect cancels the caller's pending multi-step interaction and
// drops any queued input. Mutations already settled stay settled.
func (d *Dispatcher) Disconnect(callerId storage.Identifier) {
	d.mu.Lock()
	delete(d.suspended, callerId)
	q := d.queues[callerId]
	delete(d.queues, callerId)
	d.mu.Unlock()

	if q != nil {
		q.drop()
	}
}

// report converts a dispatch error into a caller-visible message. Only a
// stale caller has no one to report to; that goes to the log.
func (d *Dispatcher) report(callerId storage.Identifier, err error) {
	var userErr *commands.UserError

	var msg string
	switch {
	case errors.As(err, &userErr):
		msg = userErr.Message
	case errors.Is(err, ErrCommandNotFound):
		msg = "Huh? Type \"help\" for a list of commands."
	case errors.Is(err, ErrPermissionDenied):
		msg = "You can't do that."
	case errors.Is(err, storage.ErrPersistence):
		msg = "Something went wrong; nothing happened."
	case errors.Is(err, game.ErrCallerGone):
		slog.Error("dispatch for stale caller", "caller", callerId, "error", err)
		return
	default:
		slog.Error("command failed", "caller", callerId, "error", err)
		msg = "Something went wrong."
	}

	if derr := d.sink.Deliver(callerId, msg); derr != nil {
		slog.Warn("failed to deliver error to caller", "caller", callerId, "error", derr)
	}
}

func (d *Dispatcher) queueFor(callerId storage.Identifier) *callerQueue {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, ok := d.queues[callerId]
	if !ok {
		q = newCallerQueue(func(ctx context.Context, input string) {
			_ = d.Process(ctx, callerId, input)
		})
		d.queues[callerId] = q
	}
	return q
}
