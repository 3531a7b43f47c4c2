package respond

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

// State names the steps of the response decision machine. Every inbound email
// walks the same path: trigger scan, reply-budget check, generation, and the
// final handover decision.
type State string

const (
	StateCheckTrigger   State = "check_trigger"
	StateCheckLimit     State = "check_limit"
	StateGenerate       State = "generate"
	StateDecideHandover State = "decide_handover"
	StateDone           State = "done"
)

const (
	keywordAckReply = "Thanks for reaching out. A member of our team will review your question and follow up with you shortly."
	limitReply      = "Thanks for the great conversation so far. One of our specialists will take it from here and follow up with you directly."
	failSafeReply   = "Apologies, we're having trouble generating a response right now. A member of our team will follow up with you shortly."
)

const defaultGenerateTimeout = 10 * time.Second

// Input is everything the orchestrator needs to decide on one inbound email.
// History is the stored conversation tail, oldest first, already including the
// inbound message being answered.
type Input struct {
	Agent        core.AgentProfile
	Conversation core.Conversation
	Email        core.InboundEmail
	History      []core.Message
}

// Outcome is the orchestrator's decision. Reply is always non-empty: even the
// failure path produces a customer-visible message. Confidence is nil for
// canned replies that never went through generation.
type Outcome struct {
	State          State
	Reply          string
	Confidence     *float64
	ShouldHandover bool
	Reason         string
	FailSafe       bool
}

// Orchestrator drives the response state machine. Generation failures never
// surface as errors: the machine falls back to a canned apology with zero
// confidence and a forced handover so the customer always hears back.
type Orchestrator struct {
	Generator       core.ResponseGenerator
	GenerateTimeout time.Duration
	ContextWindow   int
	Observer        core.Observer
}

func NewOrchestrator(generator core.ResponseGenerator, cfg core.RespondConfig) *Orchestrator {
	return &Orchestrator{
		Generator:       generator,
		GenerateTimeout: cfg.GenerateTimeout(),
		ContextWindow:   cfg.ContextWindow,
	}
}

func (o *Orchestrator) Respond(ctx context.Context, in Input) Outcome {
	state := StateCheckTrigger
	for {
		switch state {
		case StateCheckTrigger:
			if trigger, hit := matchTrigger(in.Agent.HandoverTriggers, in.Email.Body); hit {
				return Outcome{
					State:          StateDone,
					Reply:          keywordAckReply,
					ShouldHandover: true,
					Reason:         fmt.Sprintf("handover keyword %q mentioned by customer", trigger),
				}
			}
			state = StateCheckLimit

		case StateCheckLimit:
			if in.Agent.MaxMessages > 0 && in.Conversation.AIMessageCount >= in.Agent.MaxMessages {
				return Outcome{
					State:          StateDone,
					Reply:          limitReply,
					ShouldHandover: true,
					Reason:         fmt.Sprintf("conversation reached the message limit (%d)", in.Agent.MaxMessages),
				}
			}
			state = StateGenerate

		case StateGenerate:
			outcome, ok := o.generate(ctx, in)
			if !ok {
				return outcome
			}
			return o.decideHandover(in, outcome)

		default:
			return Outcome{
				State:    StateDone,
				Reply:    failSafeReply,
				FailSafe: true,
			}
		}
	}
}

// generate runs the model under the configured deadline. The second return is
// false when the fail-safe outcome should be returned as-is.
func (o *Orchestrator) generate(ctx context.Context, in Input) (Outcome, bool) {
	if o.Generator == nil {
		return o.failSafe(ctx, fmt.Errorf("respond: no response generator configured")), false
	}

	timeout := o.GenerateTimeout
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := core.GenerateRequest{
		SystemPrompt: BuildSystemPrompt(in.Agent, in.Conversation),
		Context:      BuildContext(in.History, o.contextWindow()),
		UserMessage:  in.Email.Body,
	}
	generated, err := o.Generator.Generate(genCtx, req)
	if err != nil {
		return o.failSafe(ctx, err), false
	}
	reply := strings.TrimSpace(generated.Text)
	if reply == "" {
		return o.failSafe(ctx, fmt.Errorf("respond: generator returned an empty reply")), false
	}

	cleaned, sentinel := StripSentinel(reply)
	score := ScoreConfidence(cleaned)
	outcome := Outcome{
		State:      StateDecideHandover,
		Reply:      cleaned,
		Confidence: &score,
	}
	if sentinel {
		outcome.ShouldHandover = true
		outcome.Reason = "assistant requested human handover"
	}
	return outcome, true
}

func (o *Orchestrator) decideHandover(in Input, outcome Outcome) Outcome {
	outcome.State = StateDone
	if outcome.ShouldHandover {
		return outcome
	}
	threshold := in.Agent.ConfidenceThreshold
	if threshold != nil && outcome.Confidence != nil && *outcome.Confidence < *threshold {
		outcome.ShouldHandover = true
		outcome.Reason = fmt.Sprintf("reply confidence %.2f below threshold %.2f", *outcome.Confidence, *threshold)
	}
	return outcome
}

// failSafe is the single exit for every generation failure: canned apology,
// zero confidence, forced handover. No retry.
func (o *Orchestrator) failSafe(ctx context.Context, cause error) Outcome {
	o.Observer.LogError(ctx, "respond: generation failed, using fail-safe reply", map[string]any{
		"error": cause.Error(),
	})
	zero := 0.0
	return Outcome{
		State:          StateDone,
		Reply:          failSafeReply,
		Confidence:     &zero,
		ShouldHandover: true,
		Reason:         "response generation failed; manual follow-up required",
		FailSafe:       true,
	}
}

func (o *Orchestrator) contextWindow() int {
	if o != nil && o.ContextWindow > 0 {
		return o.ContextWindow
	}
	return 5
}

// matchTrigger scans the customer's message for configured handover keywords,
// case-insensitively, returning the first hit.
func matchTrigger(triggers []string, body string) (string, bool) {
	lower := strings.ToLower(body)
	for _, trigger := range triggers {
		cleaned := strings.ToLower(strings.TrimSpace(trigger))
		if cleaned == "" {
			continue
		}
		if strings.Contains(lower, cleaned) {
			return strings.TrimSpace(trigger), true
		}
	}
	return "", false
}
