package webhook

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

type stubEventStore struct {
	events    map[string]core.WebhookEvent
	processed map[string]bool
	insertErr error
}

func newStubEventStore() *stubEventStore {
	return &stubEventStore{
		events:    map[string]core.WebhookEvent{},
		processed: map[string]bool{},
	}
}

func (s *stubEventStore) Insert(_ context.Context, in core.InsertWebhookEventInput) (core.WebhookEvent, bool, error) {
	if s.insertErr != nil {
		return core.WebhookEvent{}, false, s.insertErr
	}
	if existing, ok := s.events[in.ProviderMessageID]; ok {
		return existing, true, nil
	}
	event := core.WebhookEvent{
		ID:                fmt.Sprintf("event-%d", len(s.events)+1),
		ProviderMessageID: in.ProviderMessageID,
		EventType:         in.EventType,
		RawPayload:        in.RawPayload,
		CreatedAt:         time.Now().UTC(),
	}
	s.events[in.ProviderMessageID] = event
	return event, false, nil
}

func (s *stubEventStore) MarkProcessed(_ context.Context, id string) error {
	s.processed[id] = true
	return nil
}

func (s *stubEventStore) ListUnprocessed(_ context.Context, _ time.Time, _ int) ([]core.WebhookEvent, error) {
	return nil, nil
}

type stubMessageStore struct {
	byMessageID map[string]core.Message
}

func newStubMessageStore() *stubMessageStore {
	return &stubMessageStore{byMessageID: map[string]core.Message{}}
}

func (s *stubMessageStore) Append(_ context.Context, in core.AppendMessageInput) (core.Message, error) {
	message := core.Message{
		ID:             fmt.Sprintf("msg-%d", len(s.byMessageID)+1),
		ConversationID: in.ConversationID,
		MessageID:      in.MessageID,
	}
	s.byMessageID[in.MessageID] = message
	return message, nil
}

func (s *stubMessageStore) GetByMessageID(_ context.Context, messageID string) (core.Message, error) {
	if message, ok := s.byMessageID[messageID]; ok {
		return message, nil
	}
	return core.Message{}, goerrors.New("message not found", goerrors.CategoryNotFound)
}

func (s *stubMessageStore) ListRecent(_ context.Context, _ string, _ int) ([]core.Message, error) {
	return nil, nil
}

func (s *stubMessageStore) LastOutbound(_ context.Context, _ string) (core.Message, error) {
	return core.Message{}, goerrors.New("no outbound", goerrors.CategoryNotFound)
}

func (s *stubMessageStore) CountByConversation(_ context.Context, _ string) (int, int, error) {
	return 0, 0, nil
}

type recordingHandler struct {
	calls []core.InboundEmail
	err   error
}

func (h *recordingHandler) Handle(_ context.Context, email core.InboundEmail) error {
	h.calls = append(h.calls, email)
	return h.err
}

func signedFields(secret string, now time.Time, messageID string) map[string]string {
	timestamp := strconv.FormatInt(now.Unix(), 10)
	return map[string]string{
		"timestamp":  timestamp,
		"token":      "tok-1",
		"signature":  Sign(secret, timestamp, "tok-1"),
		"sender":     "lead@example.com",
		"recipient":  "agent@mail.example.com",
		"subject":    "Hello",
		"body-plain": "Hi there",
		"Message-Id": messageID,
	}
}

func newTestProcessor(events *stubEventStore, messages *stubMessageStore, handler Handler, now time.Time) *Processor {
	verifier := NewSignatureVerifier("secret")
	verifier.Now = func() time.Time { return now }
	processor := NewProcessor(verifier, events, messages, handler)
	processor.Now = func() time.Time { return now }
	return processor
}

func TestProcessorProcessesNewDelivery(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := newStubEventStore()
	messages := newStubMessageStore()
	handler := &recordingHandler{}
	processor := newTestProcessor(events, messages, handler, now)

	result, err := processor.Process(context.Background(), signedFields("secret", now, "<new-1@provider>"))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Status != StatusProcessed || result.StatusCode != http.StatusOK {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(handler.calls) != 1 {
		t.Fatalf("expected handler to be called once, got %d", len(handler.calls))
	}
	if handler.calls[0].ProviderMessageID() != "new-1@provider" {
		t.Fatalf("unexpected provider message id %q", handler.calls[0].ProviderMessageID())
	}
	event := events.events["new-1@provider"]
	if !events.processed[event.ID] {
		t.Fatal("expected event to be marked processed")
	}
}

func TestProcessorRejectsInvalidSignature(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := newStubEventStore()
	messages := newStubMessageStore()
	handler := &recordingHandler{}
	processor := newTestProcessor(events, messages, handler, now)

	fields := signedFields("secret", now, "<new-1@provider>")
	fields["signature"] = Sign("wrong-secret", fields["timestamp"], "tok-1")

	result, err := processor.Process(context.Background(), fields)
	if err == nil {
		t.Fatal("expected invalid signature to fail")
	}
	if result.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", result.StatusCode)
	}
	if len(handler.calls) != 0 {
		t.Fatal("expected handler to never run on rejected delivery")
	}
	if len(events.events) != 0 {
		t.Fatal("expected no event row for rejected delivery")
	}
}

func TestProcessorRequiresMessageID(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := newStubEventStore()
	messages := newStubMessageStore()
	handler := &recordingHandler{}
	processor := newTestProcessor(events, messages, handler, now)

	fields := signedFields("secret", now, "<new-1@provider>")
	delete(fields, "Message-Id")

	result, err := processor.Process(context.Background(), fields)
	if err == nil {
		t.Fatal("expected missing message id to fail")
	}
	if result.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", result.StatusCode)
	}
}

func TestProcessorDedupesOnClaimedEvent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := newStubEventStore()
	messages := newStubMessageStore()
	handler := &recordingHandler{}
	processor := newTestProcessor(events, messages, handler, now)

	fields := signedFields("secret", now, "<dup-1@provider>")
	if _, err := processor.Process(context.Background(), fields); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	// The first pass did not store a message (stub handler), so the second
	// delivery reaches the event-store claim and loses it there.
	result, err := processor.Process(context.Background(), fields)
	if err != nil {
		t.Fatalf("duplicate delivery errored: %v", err)
	}
	if result.Status != StatusDuplicate || result.StatusCode != http.StatusOK {
		t.Fatalf("expected duplicate 200, got %+v", result)
	}
	if len(handler.calls) != 1 {
		t.Fatalf("expected handler to run once, got %d", len(handler.calls))
	}
}

func TestProcessorDedupesOnStoredMessage(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := newStubEventStore()
	messages := newStubMessageStore()
	handler := &recordingHandler{}
	processor := newTestProcessor(events, messages, handler, now)

	messages.byMessageID["dup-2@provider"] = core.Message{ID: "msg-1", MessageID: "dup-2@provider"}

	result, err := processor.Process(context.Background(), signedFields("secret", now, "<dup-2@provider>"))
	if err != nil {
		t.Fatalf("duplicate delivery errored: %v", err)
	}
	if result.Status != StatusDuplicate {
		t.Fatalf("expected duplicate result, got %+v", result)
	}
	if len(handler.calls) != 0 {
		t.Fatal("expected handler to be skipped for an already-stored message")
	}
	if len(events.events) != 0 {
		t.Fatal("expected no new event row for an already-stored message")
	}
}

func TestProcessorLeavesEventUnprocessedOnHandlerFailure(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := newStubEventStore()
	messages := newStubMessageStore()
	handler := &recordingHandler{err: fmt.Errorf("downstream exploded")}
	processor := newTestProcessor(events, messages, handler, now)

	result, err := processor.Process(context.Background(), signedFields("secret", now, "<fail-1@provider>"))
	if err == nil {
		t.Fatal("expected handler failure to surface")
	}
	if result.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", result.StatusCode)
	}
	event := events.events["fail-1@provider"]
	if events.processed[event.ID] {
		t.Fatal("expected event to stay unprocessed for the recovery sweep")
	}
}

func TestProcessorReprocessRunsHandlerAndMarksProcessed(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := newStubEventStore()
	messages := newStubMessageStore()
	handler := &recordingHandler{}
	processor := newTestProcessor(events, messages, handler, now)

	event := core.WebhookEvent{
		ID:                "event-9",
		ProviderMessageID: "stuck-1@provider",
		RawPayload: map[string]any{
			"Message-Id": "<stuck-1@provider>",
			"sender":     "lead@example.com",
			"body-plain": "still here?",
		},
	}
	if err := processor.Reprocess(context.Background(), event); err != nil {
		t.Fatalf("reprocess failed: %v", err)
	}
	if len(handler.calls) != 1 {
		t.Fatalf("expected handler to run once, got %d", len(handler.calls))
	}
	if !events.processed["event-9"] {
		t.Fatal("expected reprocessed event to be marked processed")
	}
}

func TestProcessorReprocessSkipsCompletedEvent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := newStubEventStore()
	messages := newStubMessageStore()
	handler := &recordingHandler{}
	processor := newTestProcessor(events, messages, handler, now)

	if err := processor.Reprocess(context.Background(), core.WebhookEvent{ID: "done", Processed: true}); err != nil {
		t.Fatalf("reprocess of completed event errored: %v", err)
	}
	if len(handler.calls) != 0 {
		t.Fatal("expected completed event to be skipped")
	}
}
