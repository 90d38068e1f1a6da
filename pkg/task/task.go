// Package task defines named units of work over a Storage, chiefly
// generating a secret and storing it, and a registry to run them by name.
package task

import (
	"context"
	"time"
)

// Task is a named, runnable unit of work.
type Task interface {
	// Name is the identifier the task is registered under.
	Name() string

	// Description is a one-line human readable summary.
	Description() string

	// Run executes the task.
	Run(ctx context.Context) error
}

// Metrics receives one observation per task run made through a Registry.
// Implementations must be safe for concurrent use.
type Metrics interface {
	ObserveTask(name string, duration time.Duration, err error)
}
