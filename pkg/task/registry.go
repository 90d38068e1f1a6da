package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Registry holds tasks by name and runs them.
// It provides thread-safe registration and lookup.
//
// Example usage:
//
//	reg := task.NewRegistry()
//	reg.Register(&task.Generate{ID: "api_key", ...})
//	reg.Register(&task.Placeholder{})
//
//	err := reg.Run(ctx, "api_key")
type Registry struct {
	mu      sync.RWMutex
	tasks   map[string]Task
	metrics Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]Task),
	}
}

// SetMetrics makes the registry report every task run to m. A nil m turns
// reporting off.
func (r *Registry) SetMetrics(m Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// runTask runs t and reports the run to the configured metrics.
func (r *Registry) runTask(ctx context.Context, t Task) error {
	r.mu.RLock()
	m := r.metrics
	r.mu.RUnlock()

	if m == nil {
		return t.Run(ctx)
	}

	start := time.Now()
	err := t.Run(ctx)
	m.ObserveTask(t.Name(), time.Since(start), err)
	return err
}

// Register adds t under t.Name().
// Returns an error if t is nil, its name is empty, or the name is taken.
func (r *Registry) Register(t Task) error {
	if t == nil {
		return fmt.Errorf("cannot register nil task")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("cannot register task with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[name]; exists {
		return fmt.Errorf("task %q already registered", name)
	}

	r.tasks[name] = t
	return nil
}

// Get returns the task registered under name.
func (r *Registry) Get(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tasks[name]
	if !exists {
		return nil, fmt.Errorf("task %q not found", name)
	}
	return t, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tasks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Run runs the task registered under name.
func (r *Registry) Run(ctx context.Context, name string) error {
	t, err := r.Get(name)
	if err != nil {
		return err
	}
	return r.runTask(ctx, t)
}

// RunAll runs every registered task, at most concurrency at a time.
//
// Tasks start in name order. The first failure cancels the context passed
// to the remaining tasks and is returned; tasks not yet started are skipped.
// If ctx ends before every task has run, its error is returned.
//
// Parameters:
//   - ctx: Context for cancellation
//   - concurrency: Maximum tasks in flight (values below 1 mean 1)
//
// Returns:
//   - error: The first task error, wrapped with the task name
func (r *Registry) RunAll(ctx context.Context, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}

	r.mu.RLock()
	tasks := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.mu.RUnlock()
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name() < tasks[j].Name() })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, t := range tasks {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			// Skip tasks whose slot freed up after a failure or cancellation.
			if gctx.Err() != nil {
				return ctx.Err()
			}
			if err := r.runTask(gctx, t); err != nil {
				return fmt.Errorf("task %s: %w", t.Name(), err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// Cancelled before any task failed: tasks were skipped, not run
	return ctx.Err()
}
