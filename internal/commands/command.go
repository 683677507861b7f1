package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-realm/internal/locks"
)

// Func is the signature for command handler functions.
type Func func(ctx context.Context, ex *Execution) error

// Command is a single parsable verb-phrase handler. The key is the primary
// invocation string; aliases are alternatives. The lock string gates who
// may invoke it, and priority decides key collisions during set merging.
type Command struct {
	Key      string
	Aliases  []string
	Lock     string
	Priority int
	Help     string
	Handler  Func

	lock locks.Predicate
}

func (c *Command) Validate() error {
	el := errors.NewErrorList()

	if c.Key == "" {
		el.Add(fmt.Errorf("command key not set"))
	}
	if c.Key != strings.ToLower(c.Key) {
		el.Add(fmt.Errorf("command key %q must be lowercase", c.Key))
	}
	for i, a := range c.Aliases {
		if a == "" {
			el.Add(fmt.Errorf("command %q: alias %d is empty", c.Key, i))
		}
	}
	if c.Handler == nil {
		el.Add(fmt.Errorf("command %q: handler not set", c.Key))
	}

	if _, err := locks.Parse(c.Lock); err != nil {
		el.Add(fmt.Errorf("command %q: %w", c.Key, err))
	}

	return el.Err()
}

// Allowed evaluates the command's lock against a caller. The lock string
// is compiled on first use and cached.
func (c *Command) Allowed(caller locks.Caller) bool {
	if c.lock == nil {
		pred, err := locks.Parse(c.Lock)
		if err != nil {
			// Validate catches bad locks at set-build time; an invalid
			// lock reached at dispatch denies rather than fails open.
			return false
		}
		c.lock = pred
	}
	return c.lock.Eval(caller)
}
