package query

import (
	"context"
	"fmt"
)

// Fetch is Cache.Fetch for a key holding values of type T.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	val, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrType, key, val)
	}
	return typed, nil
}

// GetData is Cache.GetData for a key holding values of type T.
func GetData[T any](c *Cache, key Key) (T, bool) {
	var zero T

	val, ok := c.GetData(key)
	if !ok {
		return zero, false
	}
	typed, ok := val.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// SetData is Cache.SetData for a key holding values of type T. A value of
// another type is handed to update as absent.
func SetData[T any](c *Cache, key Key, update func(old T, ok bool) (T, bool)) {
	c.SetData(key, func(old any, ok bool) (any, bool) {
		typed, isT := old.(T)
		return update(typed, ok && isT)
	})
}
