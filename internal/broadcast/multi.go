package broadcast

import (
	"context"
	"errors"
)

// Multi публикует в каждый из вложенных Broadcaster.
// Ошибка одного не мешает остальным, все ошибки объединяются.
type Multi []Broadcaster

func (m Multi) Publish(ctx context.Context, topic string, payload any) error {
	var errs []error
	for _, b := range m {
		if err := b.Publish(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
