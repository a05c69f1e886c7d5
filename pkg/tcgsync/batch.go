package tcgsync

import (
	"context"
	"fmt"

	"github.com/tcgvault/tcgvault/pkg/observability"
)

const defaultBatchSize = 50

// runBatches partitions items into consecutive chunks of at most batchSize
// and issues one write per chunk, strictly in order. A failed chunk is
// recorded as an error string and processing continues with the next chunk;
// earlier successful chunks are never rolled back. Returns the count of
// records in successful chunks and the collected errors.
func runBatches[T any](ctx context.Context, items []T, batchSize int, stage string, write func(context.Context, []T) error, onProgress ProgressFunc) (int, []string) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	total := len(items)
	totalBatches := (total + batchSize - 1) / batchSize

	var (
		processed int
		errs      []string
	)

	for i, batch := 0, 1; i < total; i, batch = i+batchSize, batch+1 {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Sprintf("batch %d/%d: cancelled: %v", batch, totalBatches, err))
			break
		}

		end := i + batchSize
		if end > total {
			end = total
		}

		chunk := items[i:end]

		err := write(ctx, chunk)
		observability.RecordBatch(stage, err != nil)

		if err != nil {
			errs = append(errs, fmt.Sprintf("batch %d/%d: %v", batch, totalBatches, err))
		} else {
			processed += len(chunk)
			observability.SyncItemsTotal.WithLabelValues(stage).Add(float64(len(chunk)))
		}

		if onProgress != nil {
			onProgress(end, total)
		}
	}

	return processed, errs
}
