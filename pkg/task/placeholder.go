package task

import (
	"context"

	"github.com/marmos91/larder/internal/logger"
)

// Placeholder does nothing but log. It is useful for checking that task
// dispatch and logging are wired up.
type Placeholder struct {
	// ID defaults to "placeholder"
	ID string
}

// Name implements Task.
func (p *Placeholder) Name() string {
	if p.ID == "" {
		return "placeholder"
	}
	return p.ID
}

// Description implements Task.
func (p *Placeholder) Description() string {
	return "Create a placeholder secret for testing access."
}

// Run logs a message and returns.
func (p *Placeholder) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("Creating placeholder secret...")
	return nil
}

var _ Task = (*Placeholder)(nil)
