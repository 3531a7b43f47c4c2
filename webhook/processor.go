package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

const (
	StatusProcessed = "processed"
	StatusDuplicate = "duplicate"

	eventTypeInboundEmail = "inbound_email"
)

// Handler consumes an authenticated, deduplicated inbound email.
type Handler interface {
	Handle(ctx context.Context, email core.InboundEmail) error
}

type HandlerFunc func(ctx context.Context, email core.InboundEmail) error

func (f HandlerFunc) Handle(ctx context.Context, email core.InboundEmail) error {
	return f(ctx, email)
}

type Result struct {
	Status     string
	StatusCode int
	Metadata   map[string]any
}

// Processor runs the front half of the pipeline: authenticate the call,
// recover the typed payload, claim the idempotency key, and delegate to the
// conversation handler. The event-store insert is the only cross-instance
// synchronization point; everything after it is recoverable via the sweep.
type Processor struct {
	Verifier Verifier
	Extract  Extractor
	Events   core.WebhookEventStore
	Messages core.MessageStore
	Handler  Handler
	Observer core.Observer
	Now      func() time.Time
}

func NewProcessor(
	verifier Verifier,
	events core.WebhookEventStore,
	messages core.MessageStore,
	handler Handler,
) *Processor {
	return &Processor{
		Verifier: verifier,
		Events:   events,
		Messages: messages,
		Handler:  handler,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (p *Processor) Process(ctx context.Context, fields map[string]string) (Result, error) {
	if p == nil || p.Handler == nil || p.Events == nil || p.Messages == nil {
		return Result{}, webhookInternal(nil, "webhook: processor requires handler and stores", nil)
	}
	startedAt := p.now()

	if p.Verifier != nil {
		params := SignatureParams{
			Timestamp: fieldValue(fields, "timestamp"),
			Token:     fieldValue(fields, "token"),
			Signature: fieldValue(fields, "signature"),
		}
		if err := p.Verifier.Verify(ctx, params); err != nil {
			wrapped := webhookUnauthorized(err, nil)
			p.Observer.ObserveOperation(ctx, startedAt, "webhook.rejected", wrapped, nil)
			return Result{
				StatusCode: http.StatusUnauthorized,
				Metadata:   map[string]any{"rejected": true},
			}, wrapped
		}
	}

	email := p.Extract.Extract(fields)
	providerMessageID := email.ProviderMessageID()
	if providerMessageID == "" {
		err := webhookBadInput("webhook: Message-ID is required", nil)
		return Result{StatusCode: http.StatusBadRequest}, err
	}

	obsFields := map[string]any{"provider_message_id": providerMessageID}

	// A prior delivery may have persisted the message without completing the
	// event row, so both tables form the dedupe boundary.
	if _, err := p.Messages.GetByMessageID(ctx, providerMessageID); err == nil {
		p.Observer.LogInfo(ctx, "webhook: duplicate delivery, message already stored", obsFields)
		return duplicateResult(providerMessageID), nil
	} else if !core.IsNotFound(err) {
		return Result{StatusCode: http.StatusInternalServerError},
			webhookInternal(err, "webhook: message lookup failed", obsFields)
	}

	event, duplicate, err := p.Events.Insert(ctx, core.InsertWebhookEventInput{
		ProviderMessageID: providerMessageID,
		EventType:         eventTypeInboundEmail,
		RawPayload:        email.Raw,
	})
	if err != nil {
		return Result{StatusCode: http.StatusInternalServerError},
			webhookInternal(err, "webhook: event insert failed", obsFields)
	}
	if duplicate {
		p.Observer.LogInfo(ctx, "webhook: duplicate delivery, event already claimed", obsFields)
		return duplicateResult(providerMessageID), nil
	}

	if err := p.Handler.Handle(ctx, email); err != nil {
		// The event row stays processed=false so the recovery sweep can
		// re-enter it; the unique key keeps replays customer-invisible.
		p.Observer.ObserveOperation(ctx, startedAt, "webhook.process", err, obsFields)
		return Result{StatusCode: http.StatusInternalServerError},
			webhookInternal(err, "webhook: inbound processing failed", obsFields)
	}

	if err := p.Events.MarkProcessed(ctx, event.ID); err != nil {
		p.Observer.ObserveOperation(ctx, startedAt, "webhook.process", err, obsFields)
		return Result{StatusCode: http.StatusInternalServerError},
			webhookInternal(err, "webhook: mark event processed failed", obsFields)
	}

	p.Observer.ObserveOperation(ctx, startedAt, "webhook.process", nil, obsFields)
	return Result{
		Status:     StatusProcessed,
		StatusCode: http.StatusOK,
		Metadata:   map[string]any{"provider_message_id": providerMessageID},
	}, nil
}

// Reprocess re-enters a previously claimed but unfinished event. Verification
// and dedupe are skipped: the event row is already the claim.
func (p *Processor) Reprocess(ctx context.Context, event core.WebhookEvent) error {
	if p == nil || p.Handler == nil || p.Events == nil {
		return webhookInternal(nil, "webhook: processor requires handler and stores", nil)
	}
	if event.Processed {
		return nil
	}
	fields := make(map[string]string, len(event.RawPayload))
	for key, value := range event.RawPayload {
		if text, ok := value.(string); ok {
			fields[key] = text
		}
	}
	email := p.Extract.Extract(fields)
	if email.ProviderMessageID() == "" {
		return webhookBadInput("webhook: stored event payload has no Message-ID", map[string]any{
			"event_id": event.ID,
		})
	}
	if err := p.Handler.Handle(ctx, email); err != nil {
		return err
	}
	return p.Events.MarkProcessed(ctx, event.ID)
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func duplicateResult(providerMessageID string) Result {
	return Result{
		Status:     StatusDuplicate,
		StatusCode: http.StatusOK,
		Metadata: map[string]any{
			"provider_message_id": providerMessageID,
			"deduped":             true,
		},
	}
}
