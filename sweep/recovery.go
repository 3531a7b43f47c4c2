package sweep

import (
	"context"
	"time"

	"github.com/copp1723/final-offerlogix-sub004/core"
	"github.com/copp1723/final-offerlogix-sub004/webhook"
)

const (
	defaultStuckAfter = 10 * time.Minute
	defaultBatchSize  = 50
)

// Report summarizes one recovery pass.
type Report struct {
	Scanned   int
	Recovered int
	Failed    int
}

// Sweeper re-enters webhook events that were claimed but never finished,
// typically because the process died between the insert and the final
// mark-processed. Replays are safe: the message-id uniqueness downstream
// keeps a re-run customer-invisible.
type Sweeper struct {
	Events     core.WebhookEventStore
	Processor  *webhook.Processor
	StuckAfter time.Duration
	BatchSize  int
	Observer   core.Observer
	Now        func() time.Time
}

func NewSweeper(events core.WebhookEventStore, processor *webhook.Processor, cfg core.RecoveryConfig) *Sweeper {
	return &Sweeper{
		Events:     events,
		Processor:  processor,
		StuckAfter: cfg.StuckAfter(),
		BatchSize:  cfg.BatchSize,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Run processes one batch of stuck events. A failing event is logged and
// left unprocessed for the next pass; it never stops the batch.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	report := Report{}
	if s == nil || s.Events == nil || s.Processor == nil {
		return report, sweepInternal("sweep: sweeper requires event store and processor")
	}
	startedAt := s.now()

	stuckAfter := s.StuckAfter
	if stuckAfter <= 0 {
		stuckAfter = defaultStuckAfter
	}
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	cutoff := s.now().Add(-stuckAfter)
	events, err := s.Events.ListUnprocessed(ctx, cutoff, batchSize)
	if err != nil {
		return report, err
	}
	report.Scanned = len(events)

	for _, event := range events {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if err := s.Processor.Reprocess(ctx, event); err != nil {
			report.Failed++
			s.Observer.LogError(ctx, "sweep: event recovery failed", map[string]any{
				"event_id":            event.ID,
				"provider_message_id": event.ProviderMessageID,
				"error":               err.Error(),
			})
			continue
		}
		report.Recovered++
	}

	s.Observer.ObserveOperation(ctx, startedAt, "sweep.run", nil, map[string]any{
		"scanned":   report.Scanned,
		"recovered": report.Recovered,
		"failed":    report.Failed,
	})
	return report, nil
}

func (s *Sweeper) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
