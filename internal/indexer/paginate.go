package indexer

import (
	"context"
	"fmt"
)

// PageFunc fetches one page of at most first items after skipping skip.
type PageFunc[T any] func(ctx context.Context, first, skip int) ([]T, error)

// Paginate fetches pages until one comes back shorter than pageSize and
// returns the in-order concatenation. A full last page costs one extra
// (empty) fetch.
func Paginate[T any](ctx context.Context, pageSize int, fetch PageFunc[T]) ([]T, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	acc := make([]T, 0)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := fetch(ctx, pageSize, len(acc))
		if err != nil {
			return nil, fmt.Errorf("page at %d: %w", len(acc), err)
		}
		acc = append(acc, page...)
		if len(page) < pageSize {
			return acc, nil
		}
	}
}
