// Package events distributes committed ledger events: live over Redis
// Pub/Sub, and into ClickHouse for history.
package events

import (
	"context"
	"errors"

	"github.com/aman-zulfiqar/redz-ledger/internal/models"
)

type Sink interface {
	Publish(ctx context.Context, events []models.LedgerEvent) error
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, events []models.LedgerEvent) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
