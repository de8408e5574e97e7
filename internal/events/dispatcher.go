package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Dispatcher fans role lifecycle events out to registered hooks. Pre
// hooks run in registration order and the first error aborts the
// operation; post publishers are fire-and-forget.
type Dispatcher struct {
	preHooks   []PreHook
	publishers []PostPublisher
	logger     *zap.Logger
}

// NewDispatcher creates a new instance of Dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) RegisterPreHook(h PreHook) {
	d.preHooks = append(d.preHooks, h)
}

func (d *Dispatcher) RegisterPublisher(p PostPublisher) {
	d.publishers = append(d.publishers, p)
}

// DispatchPre runs every pre hook and returns the first veto.
func (d *Dispatcher) DispatchPre(ctx context.Context, event RoleEvent) error {
	for _, hook := range d.preHooks {
		if err := hook.HandlePre(ctx, event); err != nil {
			return fmt.Errorf("operation %s vetoed: %w", event.Operation, err)
		}
	}
	return nil
}

// DispatchPost notifies every publisher. The mutation has already
// committed, so failures are logged and swallowed.
func (d *Dispatcher) DispatchPost(ctx context.Context, event RoleEvent) {
	for _, publisher := range d.publishers {
		if err := publisher.HandlePost(ctx, event); err != nil {
			d.logger.Error("Post-operation event publication failed",
				zap.String("operation", string(event.Operation)),
				zap.String("role_id", event.RoleID),
				zap.Error(err))
		}
	}
}
