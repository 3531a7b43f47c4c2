package gojob

import (
	"context"
	"fmt"
	"time"

	"github.com/copp1723/final-offerlogix-sub004/core"
	"github.com/copp1723/final-offerlogix-sub004/sweep"
)

// NewRecoveryMessage builds the queue message for one recovery sweep pass.
// The idempotency key buckets by hour so re-enqueued schedules collapse.
func NewRecoveryMessage(now time.Time) *core.JobExecutionMessage {
	return &core.JobExecutionMessage{
		JobID:          JobIDEventRecovery,
		IdempotencyKey: fmt.Sprintf("%s:%s", JobIDEventRecovery, now.UTC().Format("2006-01-02T15")),
		DedupPolicy:    "drop",
	}
}

// NewBatchSendMessage builds the queue message for a batch send pass over the
// given conversations. The idempotency key hashes the conversation set into
// the hour bucket so duplicate schedules collapse.
func NewBatchSendMessage(now time.Time, conversationIDs []string) *core.JobExecutionMessage {
	ids := make([]any, 0, len(conversationIDs))
	for _, id := range conversationIDs {
		ids = append(ids, id)
	}
	return &core.JobExecutionMessage{
		JobID: JobIDBatchSend,
		Parameters: map[string]any{
			"conversation_ids": ids,
		},
		IdempotencyKey: fmt.Sprintf("%s:%d:%s", JobIDBatchSend, len(conversationIDs), now.UTC().Format("2006-01-02T15")),
		DedupPolicy:    "drop",
	}
}

// RecoveryWorker drains recovery jobs from the queue and runs the sweeper.
type RecoveryWorker struct {
	Dequeuer core.JobDequeuer
	Sweeper  *sweep.Sweeper
	Logger   core.Logger
}

func NewRecoveryWorker(dequeuer core.JobDequeuer, sweeper *sweep.Sweeper, logger core.Logger) *RecoveryWorker {
	return &RecoveryWorker{
		Dequeuer: dequeuer,
		Sweeper:  sweeper,
		Logger:   logger,
	}
}

// ProcessOne handles a single delivery. Unknown job ids are dead-lettered;
// sweep failures are requeued with a delay.
func (w *RecoveryWorker) ProcessOne(ctx context.Context) error {
	if w == nil || w.Dequeuer == nil || w.Sweeper == nil {
		return fmt.Errorf("gojob: recovery worker requires dequeuer and sweeper")
	}
	delivery, err := w.Dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}

	message := delivery.Message()
	if message == nil || message.JobID != JobIDEventRecovery {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "unexpected job id for recovery worker",
		})
	}

	report, err := w.Sweeper.Run(ctx)
	if err != nil {
		if w.Logger != nil {
			w.Logger.Error("gojob: recovery sweep failed", "error", err)
		}
		return delivery.Nack(ctx, core.JobNackOptions{
			Requeue: true,
			Delay:   time.Minute,
			Reason:  err.Error(),
		})
	}

	if w.Logger != nil {
		w.Logger.Info("gojob: recovery sweep completed",
			"scanned", report.Scanned,
			"recovered", report.Recovered,
			"failed", report.Failed,
		)
	}
	return delivery.Ack(ctx)
}

// Run loops until the context ends, processing one delivery at a time.
func (w *RecoveryWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if w.Logger != nil {
				w.Logger.Error("gojob: recovery worker iteration failed", "error", err)
			}
		}
	}
}
