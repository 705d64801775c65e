package services

import (
	"context"
	"errors"

	"spendwise/internal/core"
)

// Invalidator is told which rendered views a committed mutation made stale.
type Invalidator interface {
	Invalidate(ctx context.Context, views ...core.View) error
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(ctx context.Context, views ...core.View) error

func (f InvalidatorFunc) Invalidate(ctx context.Context, views ...core.View) error {
	return f(ctx, views...)
}

// Fanout delivers every invalidation to each member. Every member is
// called even when an earlier one fails.
type Fanout []Invalidator

func (f Fanout) Invalidate(ctx context.Context, views ...core.View) error {
	var errs []error
	for _, inv := range f {
		if inv == nil {
			continue
		}
		if err := inv.Invalidate(ctx, views...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
