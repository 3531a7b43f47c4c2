package outbound

import (
	"context"
	"sync"
	"time"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

const (
	defaultBatchSize   = 10
	defaultConcurrency = 4
)

type BatchResult struct {
	Index   int
	Message core.Message
	Err     error
}

// BatchSender fans a set of replies through the dispatcher with bounded
// concurrency, pausing between batches so bulk sends don't trip provider
// rate limits. Each item still carries the full threading contract.
type BatchSender struct {
	Dispatcher  *Dispatcher
	BatchSize   int
	Concurrency int
	Delay       time.Duration
	Observer    core.Observer
}

func NewBatchSender(dispatcher *Dispatcher) *BatchSender {
	return &BatchSender{
		Dispatcher:  dispatcher,
		BatchSize:   defaultBatchSize,
		Concurrency: defaultConcurrency,
	}
}

// SendAll processes items in order of batches; results preserve input order.
// Context cancellation stops scheduling new batches but lets the in-flight
// batch finish.
func (b *BatchSender) SendAll(ctx context.Context, items []SendInput) []BatchResult {
	results := make([]BatchResult, len(items))
	if b == nil || b.Dispatcher == nil || len(items) == 0 {
		return results
	}

	batchSize := b.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	concurrency := b.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	for start := 0; start < len(items); start += batchSize {
		if ctx.Err() != nil {
			for i := start; i < len(items); i++ {
				results[i] = BatchResult{Index: i, Err: ctx.Err()}
			}
			break
		}

		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		b.sendBatch(ctx, items, results, start, end, concurrency)

		if end < len(items) && b.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(b.Delay):
			}
		}
	}
	return results
}

func (b *BatchSender) sendBatch(ctx context.Context, items []SendInput, results []BatchResult, start int, end int, concurrency int) {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i := start; i < end; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(index int) {
			defer wg.Done()
			defer func() { <-sem }()
			message, err := b.Dispatcher.Send(ctx, items[index])
			results[index] = BatchResult{Index: index, Message: message, Err: err}
			if err != nil {
				b.Observer.LogError(ctx, "outbound: batch item failed", map[string]any{
					"index": index,
					"error": err.Error(),
				})
			}
		}(i)
	}
	wg.Wait()
}
