package wallet

import (
	"context"
	"fmt"
	"strings"

	"photo-wallet/internal/logging"
	"photo-wallet/internal/metrics"
)

// Policy decides how an in-memory change and its persistence are sequenced.
// apply mutates the in-memory mirror and must not fail; persist writes the
// change to the record store.
type Policy interface {
	Name() string
	Apply(ctx context.Context, op string, apply func(), persist func(context.Context) error) error
}

// Optimistic applies the change in memory first, then persists it. A
// persistence failure is logged and counted but not returned, and the
// in-memory change is kept. The mirror may drift from the store until the
// next full load.
type Optimistic struct{}

// Name returns "optimistic".
func (Optimistic) Name() string { return "optimistic" }

// Apply implements Policy.
func (Optimistic) Apply(ctx context.Context, op string, apply func(), persist func(context.Context) error) error {
	apply()
	if err := persist(ctx); err != nil {
		metrics.StorePersistFailures.WithLabelValues(op).Inc()
		logging.Error("Failed to persist %s (in-memory state kept): %v", op, err)
	}
	return nil
}

// ConfirmFirst persists first and applies the in-memory change only once the
// store has accepted it. Failures are returned to the caller.
type ConfirmFirst struct{}

// Name returns "confirm".
func (ConfirmFirst) Name() string { return "confirm" }

// Apply implements Policy.
func (ConfirmFirst) Apply(ctx context.Context, op string, apply func(), persist func(context.Context) error) error {
	if err := persist(ctx); err != nil {
		metrics.StorePersistFailures.WithLabelValues(op).Inc()
		return fmt.Errorf("persist %s: %w", op, err)
	}
	apply()
	return nil
}

// PolicyByName maps a configuration value to a Policy.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "optimistic":
		return Optimistic{}, nil
	case "confirm", "confirm-first", "confirmfirst":
		return ConfirmFirst{}, nil
	}
	return nil, fmt.Errorf("unknown persist policy %q (want optimistic or confirm)", name)
}
