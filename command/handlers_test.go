package command

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/copp1723/final-offerlogix-sub004/core"
	"github.com/copp1723/final-offerlogix-sub004/sweep"
	"github.com/copp1723/final-offerlogix-sub004/webhook"
)

type stubPipelineService struct {
	inboundFields   map[string]string
	inboundResult   webhook.Result
	inboundErr      error
	recoverReport   sweep.Report
	recoverCalls    int
	handoverID      string
	handoverReasons []string
	handoverErr     error
}

func (s *stubPipelineService) ProcessInbound(_ context.Context, fields map[string]string) (webhook.Result, error) {
	s.inboundFields = fields
	return s.inboundResult, s.inboundErr
}

func (s *stubPipelineService) RecoverStuckEvents(_ context.Context) (sweep.Report, error) {
	s.recoverCalls++
	return s.recoverReport, nil
}

func (s *stubPipelineService) TriggerManualHandover(_ context.Context, conversationID string, reason string) (core.Handover, error) {
	s.handoverID = conversationID
	s.handoverReasons = append(s.handoverReasons, reason)
	if s.handoverErr != nil {
		return core.Handover{}, s.handoverErr
	}
	return core.Handover{ID: "handover-1", ConversationID: conversationID, TriggerDetail: reason}, nil
}

func TestProcessInboundCommandDelegates(t *testing.T) {
	service := &stubPipelineService{
		inboundResult: webhook.Result{Status: webhook.StatusProcessed, StatusCode: http.StatusOK},
	}
	cmd := NewProcessInboundCommand(service)

	fields := map[string]string{"Message-Id": "<m@x>"}
	if err := cmd.Execute(context.Background(), ProcessInboundMessage{Fields: fields}); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if service.inboundFields["Message-Id"] != "<m@x>" {
		t.Fatalf("unexpected fields %v", service.inboundFields)
	}
}

func TestProcessInboundCommandSurfacesServiceError(t *testing.T) {
	service := &stubPipelineService{inboundErr: fmt.Errorf("pipeline down")}
	cmd := NewProcessInboundCommand(service)
	if err := cmd.Execute(context.Background(), ProcessInboundMessage{Fields: map[string]string{"a": "b"}}); err == nil {
		t.Fatal("expected the service error to surface")
	}
}

func TestProcessInboundMessageValidation(t *testing.T) {
	if err := (ProcessInboundMessage{}).Validate(); err == nil {
		t.Fatal("expected empty fields to fail validation")
	}
	if err := (ProcessInboundMessage{Fields: map[string]string{"a": "b"}}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestCommandsRejectInvalidInput(t *testing.T) {
	service := &stubPipelineService{}

	err := NewProcessInboundCommand(service).Execute(context.Background(), ProcessInboundMessage{})
	if err == nil {
		t.Fatal("expected empty webhook fields to be rejected")
	}
	assertBadInput(t, err)
	if service.inboundFields != nil {
		t.Fatal("expected the service to stay untouched on invalid input")
	}

	err = NewManualHandoverCommand(service).Execute(context.Background(), ManualHandoverMessage{Reason: "vip"})
	if err == nil {
		t.Fatal("expected a missing conversation id to be rejected")
	}
	assertBadInput(t, err)
	if len(service.handoverReasons) != 0 {
		t.Fatal("expected no handover call on invalid input")
	}
}

func assertBadInput(t *testing.T, err error) {
	t.Helper()
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected a rich error, got %T", err)
	}
	if rich.TextCode != core.MailErrorBadInput {
		t.Fatalf("expected text code %q, got %q", core.MailErrorBadInput, rich.TextCode)
	}
}

func TestRecoverEventsCommandDelegates(t *testing.T) {
	service := &stubPipelineService{recoverReport: sweep.Report{Scanned: 3, Recovered: 2, Failed: 1}}
	cmd := NewRecoverEventsCommand(service)
	if err := cmd.Execute(context.Background(), RecoverEventsMessage{}); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if service.recoverCalls != 1 {
		t.Fatalf("expected one recovery pass, got %d", service.recoverCalls)
	}
}

func TestManualHandoverCommandDefaultsReason(t *testing.T) {
	service := &stubPipelineService{}
	cmd := NewManualHandoverCommand(service)

	if err := cmd.Execute(context.Background(), ManualHandoverMessage{ConversationID: "conv-1"}); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if service.handoverID != "conv-1" {
		t.Fatalf("unexpected conversation id %q", service.handoverID)
	}
	if len(service.handoverReasons) != 1 || service.handoverReasons[0] != "manually requested by agent" {
		t.Fatalf("expected the default reason, got %v", service.handoverReasons)
	}

	if err := cmd.Execute(context.Background(), ManualHandoverMessage{ConversationID: "conv-1", Reason: "  vip customer  "}); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if service.handoverReasons[1] != "vip customer" {
		t.Fatalf("expected the trimmed explicit reason, got %q", service.handoverReasons[1])
	}
}

func TestManualHandoverMessageValidation(t *testing.T) {
	if err := (ManualHandoverMessage{}).Validate(); err == nil {
		t.Fatal("expected missing conversation id to fail validation")
	}
	if err := (ManualHandoverMessage{ConversationID: "conv-1"}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestMessageTypes(t *testing.T) {
	if got := (ProcessInboundMessage{}).Type(); got != TypeProcessInbound {
		t.Fatalf("unexpected type %q", got)
	}
	if got := (RecoverEventsMessage{}).Type(); got != TypeRecoverEvents {
		t.Fatalf("unexpected type %q", got)
	}
	if got := (ManualHandoverMessage{}).Type(); got != TypeManualHandover {
		t.Fatalf("unexpected type %q", got)
	}
}

func TestCommandsRequireService(t *testing.T) {
	if err := NewProcessInboundCommand(nil).Execute(context.Background(), ProcessInboundMessage{Fields: map[string]string{"a": "b"}}); err == nil {
		t.Fatal("expected a missing service to fail")
	}
	if err := NewRecoverEventsCommand(nil).Execute(context.Background(), RecoverEventsMessage{}); err == nil {
		t.Fatal("expected a missing service to fail")
	}
	if err := NewManualHandoverCommand(nil).Execute(context.Background(), ManualHandoverMessage{ConversationID: "c"}); err == nil {
		t.Fatal("expected a missing service to fail")
	}
}
