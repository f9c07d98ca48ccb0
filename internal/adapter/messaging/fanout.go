package messaging

import (
	"context"
	"errors"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"
)

// Fanout delivers each event to every publisher. One failing sink does not
// stop delivery to the others.
type Fanout struct {
	publishers []ports.EventPublisher
}

// NewFanout creates a Fanout. Nil publishers are ignored.
func NewFanout(publishers ...ports.EventPublisher) *Fanout {
	f := &Fanout{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish sends ev to all publishers and joins their errors.
func (f *Fanout) Publish(ctx context.Context, ev domain.WagerEvent) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
