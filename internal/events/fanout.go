package events

import (
	"context"
	"errors"
)

// Fanout delivers every event to each publisher in order. A failing
// publisher does not stop delivery to the others; their errors are joined.
type Fanout []Publisher

var _ Publisher = Fanout(nil)

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
