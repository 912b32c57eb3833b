package hook

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Command lifecycle events.
const (
	BeforeCommand = "before_command"
	AfterCommand  = "after_command"
)

// ErrInterrupt signals that a hook wants to stop the command.
var ErrInterrupt = errors.New("hook interrupted")

// Interrupt stops a command with a message for the invoking user.
type Interrupt struct {
	Reason  string
	Message string
}

func (i *Interrupt) Error() string        { return "hook interrupted: " + i.Reason }
func (i *Interrupt) Is(target error) bool { return target == ErrInterrupt }

// CommandEvent describes one command invocation. Outcome, Err and Duration
// are filled in before AfterCommand fires.
type CommandEvent struct {
	TraceID  string
	GuildID  int64
	UserID   int64
	Command  string
	Options  map[string]string
	Outcome  string
	Err      error
	Duration time.Duration
}

// Fn is a hook handler. Returning an error that matches ErrInterrupt from a
// BeforeCommand hook cancels the command; other errors are reported but do
// not stop later hooks.
type Fn func(ctx context.Context, ev *CommandEvent) error

type entry struct {
	priority int
	fn       Fn
	name     string
}

// Center manages hook registrations.
type Center struct {
	mu    sync.RWMutex
	hooks map[string][]*entry
}

func NewCenter() *Center {
	return &Center{hooks: make(map[string][]*entry)}
}

// Register adds fn for event with the given priority (lower runs first).
// name is used for Unregister.
func (c *Center) Register(event string, priority int, name string, fn Fn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := append(c.hooks[event], &entry{priority: priority, fn: fn, name: name})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	c.hooks[event] = entries
}

// Unregister removes all hooks with the given name for the given event.
func (c *Center) Unregister(event, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.hooks[event]
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	c.hooks[event] = entries[:n]
}

// Trigger runs the hooks for event in priority order. It stops at the first
// interrupt and returns it; other hook errors are joined and returned after
// every hook has run.
func (c *Center) Trigger(ctx context.Context, event string, ev *CommandEvent) error {
	c.mu.RLock()
	entries := make([]*entry, len(c.hooks[event]))
	copy(entries, c.hooks[event])
	c.mu.RUnlock()

	var errs []error
	for _, e := range entries {
		if err := e.fn(ctx, ev); err != nil {
			if errors.Is(err, ErrInterrupt) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
