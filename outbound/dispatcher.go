package outbound

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

const (
	defaultMaxReferences = 10
	defaultSendTimeout   = 10 * time.Second
)

// SendInput describes one reply to put on the wire. Inbound is the stored
// customer message being answered; its reference chain seeds the outbound
// References header.
type SendInput struct {
	Conversation core.Conversation
	Agent        core.AgentProfile
	Inbound      core.Message
	ReplyText    string
	Subject      string
	To           string
	Confidence   *float64
}

// Dispatcher sends AI replies through the email transport with threading
// headers that keep provider-side conversation views intact. Sends are
// at-most-once: a transport failure is logged and surfaced, never retried.
type Dispatcher struct {
	Transport     core.EmailTransport
	Messages      core.MessageStore
	Observer      core.Observer
	BaseDomain    string
	Subdomain     string
	MaxReferences int
	SendTimeout   time.Duration
	Now           func() time.Time
}

func NewDispatcher(transport core.EmailTransport, messages core.MessageStore, cfg core.OutboundConfig) *Dispatcher {
	return &Dispatcher{
		Transport:     transport,
		Messages:      messages,
		BaseDomain:    cfg.BaseDomain,
		Subdomain:     cfg.Subdomain,
		MaxReferences: cfg.MaxReferences,
		SendTimeout:   cfg.SendTimeout(),
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Send builds the threading headers, pushes the reply through the transport,
// and records the outbound message. The returned message carries the
// normalized message id so later inbound replies can be threaded back.
func (d *Dispatcher) Send(ctx context.Context, in SendInput) (core.Message, error) {
	if d == nil || d.Transport == nil || d.Messages == nil {
		return core.Message{}, dispatchInternal(nil, "outbound: dispatcher requires transport and message store")
	}
	startedAt := d.now()

	headers, err := d.buildThreading(ctx, in)
	if err != nil {
		return core.Message{}, err
	}

	subject := replySubject(in.Subject, in.Inbound.Subject)
	to := strings.TrimSpace(in.To)
	if to == "" {
		return core.Message{}, goerrors.NewValidation("outbound: recipient address is required").
			WithTextCode(core.MailErrorBadInput)
	}
	from := strings.TrimSpace(in.Agent.FromEmail)

	timeout := d.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := d.Transport.Send(sendCtx, core.SendRequest{
		To:        to,
		From:      from,
		Subject:   subject,
		Content:   in.ReplyText,
		Threading: headers,
	})
	if err != nil {
		wrapped := goerrors.Wrap(err, goerrors.CategoryOperation, "outbound: transport send failed").
			WithTextCode(core.MailErrorTransportFailed)
		d.Observer.ObserveOperation(ctx, startedAt, "outbound.send", wrapped, map[string]any{
			"conversation_id": in.Conversation.ID,
		})
		return core.Message{}, wrapped
	}

	stored, err := d.Messages.Append(ctx, core.AppendMessageInput{
		ConversationID: in.Conversation.ID,
		Direction:      core.DirectionOutbound,
		SenderType:     core.SenderAgent,
		MessageID:      core.NormalizeMessageID(headers.MessageID),
		InReplyTo:      core.NormalizeMessageID(headers.InReplyTo),
		References:     headers.References,
		Subject:        subject,
		Content:        in.ReplyText,
		Status:         core.MessageSent,
		AIConfidence:   in.Confidence,
	})
	if err != nil {
		return core.Message{}, dispatchInternal(err, "outbound: record sent message failed")
	}

	d.Observer.ObserveOperation(ctx, startedAt, "outbound.send", nil, map[string]any{
		"conversation_id":     in.Conversation.ID,
		"provider_message_id": result.ProviderMessageID,
	})
	return stored, nil
}

// buildThreading computes Message-ID, In-Reply-To, and References.
//
// In-Reply-To points at this system's previous outbound message in the
// conversation, falling back to whatever the inbound itself replied to when
// no outbound exists yet. It never points at the inbound message being
// answered: provider clients collapse the thread correctly only when the
// chain alternates through our own ids.
func (d *Dispatcher) buildThreading(ctx context.Context, in SendInput) (core.ThreadingHeaders, error) {
	replyParent := ""
	last, err := d.Messages.LastOutbound(ctx, in.Conversation.ID)
	switch {
	case err == nil:
		replyParent = last.MessageID
	case core.IsNotFound(err):
		replyParent = in.Inbound.InReplyTo
	default:
		return core.ThreadingHeaders{}, dispatchInternal(err, "outbound: last outbound lookup failed")
	}

	baseDomain := strings.TrimSpace(in.Agent.BaseDomain)
	subdomain := strings.TrimSpace(in.Agent.Subdomain)
	if baseDomain == "" {
		baseDomain = d.BaseDomain
		subdomain = d.Subdomain
	}

	maxRefs := d.MaxReferences
	if maxRefs <= 0 {
		maxRefs = defaultMaxReferences
	}
	references := truncateReferences(in.Inbound.References, maxRefs)
	if replyParent != "" && !containsReference(references, replyParent) {
		references = append(references, replyParent)
	}

	return core.ThreadingHeaders{
		MessageID:  core.NewMessageID(d.now(), subdomain, baseDomain),
		InReplyTo:  replyParent,
		References: references,
		ThreadID:   in.Conversation.ThreadID,
	}, nil
}

func (d *Dispatcher) now() time.Time {
	if d != nil && d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// truncateReferences keeps the newest ids when the chain exceeds the cap.
func truncateReferences(refs []string, max int) []string {
	cleaned := make([]string, 0, len(refs))
	for _, ref := range refs {
		if normalized := core.NormalizeMessageID(ref); normalized != "" {
			cleaned = append(cleaned, normalized)
		}
	}
	if len(cleaned) > max {
		cleaned = cleaned[len(cleaned)-max:]
	}
	return cleaned
}

func containsReference(refs []string, candidate string) bool {
	normalized := core.NormalizeMessageID(candidate)
	for _, ref := range refs {
		if ref == normalized {
			return true
		}
	}
	return false
}

// replySubject prefers the explicit subject, then derives "Re: <inbound>".
func replySubject(explicit string, inbound string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	trimmed := strings.TrimSpace(inbound)
	if trimmed == "" {
		return "Re: your message"
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}

func dispatchInternal(cause error, message string) error {
	if cause != nil {
		return goerrors.Wrap(cause, goerrors.CategoryInternal, message).
			WithTextCode(core.MailErrorInternal)
	}
	return goerrors.New(message, goerrors.CategoryInternal).
		WithTextCode(core.MailErrorInternal)
}
