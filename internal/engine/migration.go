package engine

import (
	"context"
	"fmt"
)

// Migrate copies every record of src into dst, overwriting records of the same
// name. This works for any pair of drivers, e.g. file -> sqlite when moving a
// deployment onto a database, or redis -> file for an offline backup.
// It returns the names of the records copied.
func Migrate(ctx context.Context, src, dst Backend) ([]string, error) {
	names, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	copied := make([]string, 0, len(names))
	for _, name := range names {
		payload, ok, err := src.Load(ctx, name)
		if err != nil {
			return copied, fmt.Errorf("failed to load record %s: %w", name, err)
		}
		if !ok {
			// Removed between List and Load
			continue
		}

		if err := dst.Save(ctx, name, payload); err != nil {
			return copied, fmt.Errorf("failed to save record %s in destination: %w", name, err)
		}
		copied = append(copied, name)
	}

	return copied, nil
}
