package services

import (
	"context"
	"fmt"
)

// tokenBucket caps concurrent remote inference calls.
type tokenBucket chan struct{}

func newTokenBucket(size int) tokenBucket {
	if size <= 0 {
		size = 1
	}
	b := make(tokenBucket, size)
	for i := 0; i < size; i++ {
		b <- struct{}{}
	}
	return b
}

// acquire blocks until a slot is available or ctx ends.
func (b tokenBucket) acquire(ctx context.Context) error {
	select {
	case <-b:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for inference slot: %w", ctx.Err())
	}
}

func (b tokenBucket) release() {
	b <- struct{}{}
}
