package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandlerFunc handles one message of a subscribed segment. id is the
// trailing topic identifier, empty for segments without one.
type HandlerFunc func(ctx context.Context, id string, payload []byte) error

// TypedHandlerFunc handles a decoded JSON payload.
type TypedHandlerFunc[T any] func(ctx context.Context, id string, msg *T) error

// JSONAdapter decodes the payload into T before calling handler. An empty
// payload decodes to the zero value.
func JSONAdapter[T any](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx context.Context, id string, payload []byte) error {
		msg := new(T)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, msg); err != nil {
				return fmt.Errorf("json unmarshal failed: %w", err)
			}
		}
		return handler(ctx, id, msg)
	}
}
