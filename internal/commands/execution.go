package commands

import (
	"fmt"

	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/locks"
	"github.com/pixil98/go-realm/internal/storage"
)

// Sink delivers output lines to callers. The session layer implements it
// over the message bus.
type Sink interface {
	Deliver(id storage.Identifier, msg string) error
}

// Suspension is returned (as an error) by a handler that needs more input
// before it can finish. The dispatcher saves the continuation keyed by
// caller identity and resumes it with the caller's next line. All entity
// locks are released while suspended.
type Suspension struct {
	Prompt string
	Resume func(input string) Func
}

func (s *Suspension) Error() string {
	return fmt.Sprintf("awaiting input: %s", s.Prompt)
}

// Execution carries everything a handler needs for one dispatch cycle.
type Execution struct {
	World  *game.World
	Caller *game.Entity

	// Perms are the caller's permission attributes from the session's
	// account provider, consulted by lock predicates.
	Perms []string

	// Args is the raw argument tail after the matched verb.
	Args string

	// Merged is the command set this dispatch matched against.
	Merged *Merged

	// OnQuit, when set by the session layer, requests session shutdown.
	OnQuit func()

	sink Sink
}

// NewExecution builds the handler context for one dispatch cycle.
func NewExecution(w *game.World, caller *game.Entity, perms []string, args string, sink Sink) *Execution {
	return &Execution{
		World:  w,
		Caller: caller,
		Perms:  perms,
		Args:   args,
		sink:   sink,
	}
}

// Respond sends a formatted line to the acting caller.
func (ex *Execution) Respond(format string, args ...any) error {
	return ex.sink.Deliver(ex.Caller.Id(), fmt.Sprintf(format, args...))
}

// Notify sends a line to another entity's caller, if one is attached.
// Delivery failures to entities without sessions are not errors.
func (ex *Execution) Notify(target *game.Entity, format string, args ...any) {
	_ = ex.sink.Deliver(target.Id(), fmt.Sprintf(format, args...))
}

// Suspend interrupts the command to ask the caller for more input. The
// resume function receives the follow-up line and returns the handler
// continuation to run.
func (ex *Execution) Suspend(prompt string, resume func(input string) Func) error {
	return &Suspension{Prompt: prompt, Resume: resume}
}

// Mutate runs fn with mutation locks held on the caller plus all target
// entities, acquired in canonical identity order. Records are snapshotted
// first and persisted before the locks drop; if persistence fails every
// snapshot is restored in memory and the error (wrapping
// storage.ErrPersistence) is returned, so the effect never half-happens.
func (ex *Execution) Mutate(fn func() error, targets ...*game.Entity) error {
	entities := append([]*game.Entity{ex.Caller}, targets...)

	ids := make([]storage.Identifier, len(entities))
	for i, e := range entities {
		ids[i] = e.Id()
	}

	release := ex.World.Locks().Acquire(ids...)
	defer release()

	snapshots := make([]*storage.Record, len(entities))
	for i, e := range entities {
		snapshots[i] = e.Snapshot()
	}

	rollback := func() {
		for i, e := range entities {
			e.Restore(snapshots[i])
		}
	}

	if err := fn(); err != nil {
		rollback()
		return err
	}

	if err := ex.World.Persist(entities...); err != nil {
		rollback()
		return err
	}

	return nil
}

// execCaller adapts an Execution to the locks.Caller contract.
type execCaller struct {
	ex *Execution
}

func (c execCaller) Id() storage.Identifier { return c.ex.Caller.Id() }
func (c execCaller) HasTag(tag string) bool { return c.ex.Caller.HasTag(tag) }

func (c execCaller) HasPerm(perm string) bool {
	for _, p := range c.ex.Perms {
		if p == perm {
			return true
		}
	}
	return false
}

// LockCaller returns the caller view lock predicates evaluate against.
func (ex *Execution) LockCaller() locks.Caller {
	return execCaller{ex: ex}
}
