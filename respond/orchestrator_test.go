package respond

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, _ core.GenerateRequest) (core.GeneratedReply, error) {
	g.calls++
	if g.err != nil {
		return core.GeneratedReply{}, g.err
	}
	return core.GeneratedReply{Text: g.text}, nil
}

func newTestOrchestrator(generator core.ResponseGenerator) *Orchestrator {
	return NewOrchestrator(generator, core.RespondConfig{
		GenerateTimeoutSeconds: 10,
		ContextWindow:          5,
	})
}

func TestOrchestratorKeywordTriggerShortCircuits(t *testing.T) {
	generator := &stubGenerator{text: "should never be used"}
	orchestrator := newTestOrchestrator(generator)

	outcome := orchestrator.Respond(context.Background(), Input{
		Agent: core.AgentProfile{HandoverTriggers: []string{"pricing"}},
		Email: core.InboundEmail{Body: "What is your PRICING for the premium tier?"},
	})

	if !outcome.ShouldHandover {
		t.Fatal("expected keyword trigger to force a handover")
	}
	if outcome.Reply != keywordAckReply {
		t.Fatalf("expected canned acknowledgement, got %q", outcome.Reply)
	}
	if outcome.Confidence != nil {
		t.Fatal("expected no confidence score for a canned reply")
	}
	if !strings.Contains(outcome.Reason, `"pricing"`) || !strings.Contains(outcome.Reason, "mentioned") {
		t.Fatalf("unexpected reason %q", outcome.Reason)
	}
	if generator.calls != 0 {
		t.Fatal("expected generation to be skipped on a keyword trigger")
	}
}

func TestOrchestratorMessageLimitReached(t *testing.T) {
	generator := &stubGenerator{text: "should never be used"}
	orchestrator := newTestOrchestrator(generator)

	outcome := orchestrator.Respond(context.Background(), Input{
		Agent:        core.AgentProfile{MaxMessages: 5},
		Conversation: core.Conversation{AIMessageCount: 5},
		Email:        core.InboundEmail{Body: "One more question."},
	})

	if !outcome.ShouldHandover {
		t.Fatal("expected the reply budget to force a handover")
	}
	if outcome.Reply != limitReply {
		t.Fatalf("expected canned limit reply, got %q", outcome.Reply)
	}
	if !strings.Contains(outcome.Reason, "message limit (5)") {
		t.Fatalf("unexpected reason %q", outcome.Reason)
	}
	if generator.calls != 0 {
		t.Fatal("expected generation to be skipped once the limit is reached")
	}
}

func TestOrchestratorGeneratesConfidentReply(t *testing.T) {
	generator := &stubGenerator{text: "Our premium tier includes unlimited seats and priority support."}
	orchestrator := newTestOrchestrator(generator)

	outcome := orchestrator.Respond(context.Background(), Input{
		Agent: core.AgentProfile{Name: "Riley"},
		Email: core.InboundEmail{Body: "What does premium include?"},
	})

	if outcome.ShouldHandover {
		t.Fatalf("did not expect a handover, reason %q", outcome.Reason)
	}
	if outcome.Reply != generator.text {
		t.Fatalf("unexpected reply %q", outcome.Reply)
	}
	if outcome.Confidence == nil || !almostEqual(*outcome.Confidence, 0.8) {
		t.Fatalf("unexpected confidence %v", outcome.Confidence)
	}
}

func TestOrchestratorSentinelForcesHandover(t *testing.T) {
	generator := &stubGenerator{text: "Let me loop in a specialist for that. " + SentinelToken}
	orchestrator := newTestOrchestrator(generator)

	outcome := orchestrator.Respond(context.Background(), Input{
		Agent: core.AgentProfile{Name: "Riley"},
		Email: core.InboundEmail{Body: "I need custom contract terms."},
	})

	if !outcome.ShouldHandover {
		t.Fatal("expected sentinel to force a handover")
	}
	if strings.Contains(outcome.Reply, SentinelToken) {
		t.Fatalf("expected sentinel to be stripped from the reply, got %q", outcome.Reply)
	}
	if outcome.Reason != "assistant requested human handover" {
		t.Fatalf("unexpected reason %q", outcome.Reason)
	}
}

func TestOrchestratorLowConfidenceBelowThreshold(t *testing.T) {
	// Two uncertainty markers drop the score to 0.6, under the 0.7 threshold.
	generator := &stubGenerator{text: "I think the upgrade is included, but maybe check with billing to confirm."}
	orchestrator := newTestOrchestrator(generator)

	threshold := 0.7
	outcome := orchestrator.Respond(context.Background(), Input{
		Agent: core.AgentProfile{Name: "Riley", ConfidenceThreshold: &threshold},
		Email: core.InboundEmail{Body: "Is the upgrade included?"},
	})

	if !outcome.ShouldHandover {
		t.Fatal("expected low confidence to force a handover")
	}
	if !strings.Contains(outcome.Reason, "confidence 0.60 below threshold 0.70") {
		t.Fatalf("unexpected reason %q", outcome.Reason)
	}
	if outcome.Reply != generator.text {
		t.Fatalf("expected the generated reply to be kept, got %q", outcome.Reply)
	}
}

func TestOrchestratorConfidentReplyAboveThreshold(t *testing.T) {
	generator := &stubGenerator{text: "The upgrade is included in every premium subscription at no extra cost."}
	orchestrator := newTestOrchestrator(generator)

	threshold := 0.7
	outcome := orchestrator.Respond(context.Background(), Input{
		Agent: core.AgentProfile{Name: "Riley", ConfidenceThreshold: &threshold},
		Email: core.InboundEmail{Body: "Is the upgrade included?"},
	})

	if outcome.ShouldHandover {
		t.Fatalf("did not expect a handover, reason %q", outcome.Reason)
	}
}

func TestOrchestratorGenerationFailureUsesFailSafe(t *testing.T) {
	generator := &stubGenerator{err: fmt.Errorf("model unavailable")}
	orchestrator := newTestOrchestrator(generator)

	outcome := orchestrator.Respond(context.Background(), Input{
		Agent: core.AgentProfile{Name: "Riley"},
		Email: core.InboundEmail{Body: "Hello?"},
	})

	if !outcome.FailSafe {
		t.Fatal("expected fail-safe outcome")
	}
	if outcome.Reply != failSafeReply {
		t.Fatalf("unexpected reply %q", outcome.Reply)
	}
	if outcome.Confidence == nil || *outcome.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", outcome.Confidence)
	}
	if !outcome.ShouldHandover {
		t.Fatal("expected a forced handover after generation failure")
	}
	if generator.calls != 1 {
		t.Fatalf("expected exactly one generation attempt, got %d", generator.calls)
	}
}

func TestOrchestratorEmptyReplyUsesFailSafe(t *testing.T) {
	generator := &stubGenerator{text: "   "}
	orchestrator := newTestOrchestrator(generator)

	outcome := orchestrator.Respond(context.Background(), Input{
		Agent: core.AgentProfile{Name: "Riley"},
		Email: core.InboundEmail{Body: "Hello?"},
	})

	if !outcome.FailSafe || outcome.Reply != failSafeReply {
		t.Fatalf("expected fail-safe outcome for an empty reply, got %+v", outcome)
	}
}
