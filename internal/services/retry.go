package services

import (
	"context"
	"errors"
	"time"

	"github.com/agamariel/pixmarket/internal/psp"
	"github.com/sethvargo/go-retry"
)

// pspCall выполняет обращение к провайдеру с ограниченным числом
// повторов и фибоначчиевым backoff. Временными считаются сетевые
// ошибки и rate limit; ErrNotFound не повторяется.
func pspCall(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, psp.ErrNotFound) {
			return err
		}
		return retry.RetryableError(err)
	})
}
