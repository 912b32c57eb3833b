// Package scheduler runs named periodic background tasks and keeps the
// result of their last run for the ops API.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks. The context is
// cancelled when the task is removed or the scheduler stops.
type TaskFn func(ctx context.Context) error

// Status describes a task and its most recent run.
type Status struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Runs     int64         `json:"runs"`
	Failures int64         `json:"failures"`
	LastRun  time.Time     `json:"last_run"`
	LastErr  string        `json:"last_error,omitempty"`
}

// Healthy reports whether the task has run at least once and the last run
// succeeded.
func (s Status) Healthy() bool { return s.Runs > 0 && s.LastErr == "" }

// Scheduler manages periodic tasks.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerEntry
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type tickerEntry struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	status Status
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tickers: make(map[string]*tickerEntry),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddTicker registers a task that runs immediately and then on a fixed
// interval. If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		s.logger.Warn("scheduler stopped, task not registered", zap.String("name", name))
		return
	}
	if old, ok := s.tickers[name]; ok {
		old.cancel()
		delete(s.tickers, name)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	entry := &tickerEntry{
		cancel: cancel,
		status: Status{Name: name, Interval: interval},
	}
	s.tickers[name] = entry

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.run(ctx, entry, fn)
		for {
			select {
			case <-ticker.C:
				s.run(ctx, entry, fn)
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) run(ctx context.Context, entry *tickerEntry, fn TaskFn) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn(ctx)
	}()
	if ctx.Err() != nil {
		return
	}

	entry.mu.Lock()
	entry.status.Runs++
	entry.status.LastRun = time.Now()
	entry.status.LastErr = ""
	if err != nil {
		entry.status.Failures++
		entry.status.LastErr = err.Error()
	}
	name := entry.status.Name
	entry.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduler task failed", zap.String("task", name), zap.Error(err))
	}
}

// Remove stops and removes a task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		entry.cancel()
		delete(s.tickers, name)
	}
}

// Stop stops all tasks and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Status returns the status of the named task.
func (s *Scheduler) Status(name string) (Status, bool) {
	s.mu.Lock()
	entry, ok := s.tickers[name]
	s.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.status, true
}

// Snapshot returns the status of every task, sorted by name.
func (s *Scheduler) Snapshot() []Status {
	s.mu.Lock()
	entries := make([]*tickerEntry, 0, len(s.tickers))
	for _, e := range s.tickers {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]Status, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.status)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Pinger is anything with a connectivity check, such as store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingTask checks p with the given per-run timeout.
func PingTask(p Pinger, timeout time.Duration) TaskFn {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return p.Ping(ctx)
	}
}
