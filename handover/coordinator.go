package handover

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

const summaryUnavailable = "Summary unavailable; review the conversation history."

const summaryWindow = 10

// Coordinator owns the transition from AI-driven to human-driven conversation.
// Triggering is idempotent: one pending handover per conversation, enforced
// first by a pending-row check and ultimately by the store's uniqueness
// constraint, so concurrent triggers collapse to a single record.
type Coordinator struct {
	Handovers     core.HandoverStore
	Conversations core.ConversationStore
	Messages      core.MessageStore
	Summarizer    core.SummaryGenerator
	Notifier      core.HandoverNotifier
	Observer      core.Observer
	Now           func() time.Time
}

func NewCoordinator(
	handovers core.HandoverStore,
	conversations core.ConversationStore,
	messages core.MessageStore,
	summarizer core.SummaryGenerator,
) *Coordinator {
	return &Coordinator{
		Handovers:     handovers,
		Conversations: conversations,
		Messages:      messages,
		Summarizer:    summarizer,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Trigger records a handover for the conversation and marks it handed over.
// A conversation that already has a pending handover is returned unchanged.
func (c *Coordinator) Trigger(ctx context.Context, conversation core.Conversation, reason string) (core.Handover, error) {
	if c == nil || c.Handovers == nil || c.Conversations == nil {
		return core.Handover{}, goerrors.New("handover: coordinator requires stores", goerrors.CategoryInternal).
			WithTextCode(core.MailErrorInternal)
	}
	startedAt := c.now()

	if existing, err := c.Handovers.FindPending(ctx, conversation.ID); err == nil {
		c.Observer.LogInfo(ctx, "handover: already pending, skipping", map[string]any{
			"conversation_id": conversation.ID,
			"handover_id":     existing.ID,
		})
		return existing, nil
	} else if !core.IsNotFound(err) {
		return core.Handover{}, err
	}

	summary := c.summarize(ctx, conversation.ID)

	created, err := c.Handovers.Create(ctx, core.CreateHandoverInput{
		ConversationID:      conversation.ID,
		TriggerType:         ClassifyTrigger(reason),
		TriggerDetail:       reason,
		ConversationSummary: summary,
	})
	if err != nil {
		if core.IsConflict(err) {
			// A concurrent trigger won the insert race; adopt its record.
			if existing, readErr := c.Handovers.FindPending(ctx, conversation.ID); readErr == nil {
				return existing, nil
			}
		}
		return core.Handover{}, err
	}

	if err := c.Conversations.MarkHandedOver(ctx, conversation.ID, reason, c.now()); err != nil {
		return core.Handover{}, err
	}

	c.notify(ctx, conversation, created)
	c.Observer.ObserveOperation(ctx, startedAt, "handover.trigger", nil, map[string]any{
		"conversation_id": conversation.ID,
		"trigger_type":    string(created.TriggerType),
	})
	return created, nil
}

// summarize builds the last-10-message summary for the human taking over.
// Summarization failure degrades to a placeholder rather than blocking the
// handover.
func (c *Coordinator) summarize(ctx context.Context, conversationID string) string {
	if c.Summarizer == nil || c.Messages == nil {
		return summaryUnavailable
	}
	messages, err := c.Messages.ListRecent(ctx, conversationID, summaryWindow)
	if err != nil {
		c.Observer.LogError(ctx, "handover: summary history load failed", map[string]any{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		return summaryUnavailable
	}
	summary, err := c.Summarizer.Summarize(ctx, messages)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			c.Observer.LogError(ctx, "handover: summarization failed", map[string]any{
				"conversation_id": conversationID,
				"error":           err.Error(),
			})
		}
		return summaryUnavailable
	}
	return strings.TrimSpace(summary)
}

// notify is best effort. A failing notifier never rolls back the handover.
func (c *Coordinator) notify(ctx context.Context, conversation core.Conversation, handover core.Handover) {
	if c.Notifier == nil {
		return
	}
	if err := c.Notifier.NotifyHandover(ctx, conversation, handover); err != nil {
		c.Observer.LogError(ctx, "handover: notification failed", map[string]any{
			"conversation_id": conversation.ID,
			"handover_id":     handover.ID,
			"error":           err.Error(),
		})
	}
}

func (c *Coordinator) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// ClassifyTrigger derives the trigger type from the human-readable reason.
// The first matching rule wins.
func ClassifyTrigger(reason string) core.HandoverTriggerType {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "keyword") || strings.Contains(lower, "mentioned"):
		return core.TriggerKeyword
	case strings.Contains(lower, "message limit") || strings.Contains(lower, "max"):
		return core.TriggerMaxMessages
	case strings.Contains(lower, "confidence"):
		return core.TriggerLowConfidence
	default:
		return core.TriggerManual
	}
}
