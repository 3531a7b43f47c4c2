package conversation

import (
	"context"
	"time"

	"github.com/copp1723/final-offerlogix-sub004/core"
	"github.com/copp1723/final-offerlogix-sub004/handover"
	"github.com/copp1723/final-offerlogix-sub004/outbound"
	"github.com/copp1723/final-offerlogix-sub004/respond"
)

// Service is the back half of the pipeline: once the webhook layer has
// authenticated and claimed an inbound email, the service attributes it to a
// conversation, stores it, lets the orchestrator decide on a reply, and runs
// handover and dispatch. It implements the webhook handler contract.
type Service struct {
	Identities    core.IdentityResolver
	Resolver      *Resolver
	Conversations core.ConversationStore
	Messages      core.MessageStore
	Orchestrator  *respond.Orchestrator
	Handover      *handover.Coordinator
	Dispatcher    *outbound.Dispatcher
	Observer      core.Observer
	ContextWindow int
	Now           func() time.Time
}

func NewService(
	identities core.IdentityResolver,
	resolver *Resolver,
	conversations core.ConversationStore,
	messages core.MessageStore,
	orchestrator *respond.Orchestrator,
	coordinator *handover.Coordinator,
	dispatcher *outbound.Dispatcher,
) *Service {
	return &Service{
		Identities:    identities,
		Resolver:      resolver,
		Conversations: conversations,
		Messages:      messages,
		Orchestrator:  orchestrator,
		Handover:      coordinator,
		Dispatcher:    dispatcher,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *Service) Handle(ctx context.Context, email core.InboundEmail) error {
	if s == nil || s.Identities == nil || s.Resolver == nil || s.Conversations == nil || s.Messages == nil {
		return resolverInternal("conversation: service requires identity resolver and stores")
	}
	startedAt := s.now()

	identity, err := s.Identities.Resolve(ctx, email)
	if err != nil {
		return serviceWrap(err, "conversation: identity resolution failed")
	}

	conv, err := s.Resolver.Resolve(ctx, ResolveInput{
		AgentID:    identity.AgentID,
		LeadID:     identity.LeadID,
		CampaignID: identity.CampaignID,
		ThreadID:   email.ThreadID,
		InReplyTo:  email.InReplyTo,
		References: email.References,
	})
	if err != nil {
		return serviceWrap(err, "conversation: resolve conversation failed")
	}

	obsFields := map[string]any{
		"conversation_id": conv.ID,
		"agent_id":        identity.AgentID,
	}

	inbound, appended, err := s.appendInbound(ctx, conv, email)
	if err != nil {
		return err
	}
	if !appended {
		// The inbound was stored by an earlier attempt. Re-running the
		// response path could double-send, so stop after refreshing counters.
		s.Observer.LogInfo(ctx, "conversation: inbound already stored, skipping response", obsFields)
		return s.refreshCounters(ctx, conv.ID, s.messageTime(email))
	}

	if err := s.refreshCounters(ctx, conv.ID, inbound.CreatedAt); err != nil {
		return err
	}
	conv, err = s.Conversations.Get(ctx, conv.ID)
	if err != nil {
		return serviceWrap(err, "conversation: reload conversation failed")
	}

	if !conv.IsActive() {
		s.Observer.LogInfo(ctx, "conversation: not active, message stored without response", obsFields)
		return nil
	}

	history, err := s.Messages.ListRecent(ctx, conv.ID, s.contextWindow())
	if err != nil {
		return serviceWrap(err, "conversation: load history failed")
	}

	outcome := s.Orchestrator.Respond(ctx, respond.Input{
		Agent:        identity.Agent,
		Conversation: conv,
		Email:        email,
		History:      history,
	})

	s.dispatchReply(ctx, conv, identity, email, inbound, outcome)

	if outcome.ShouldHandover && s.Handover != nil {
		if _, err := s.Handover.Trigger(ctx, conv, outcome.Reason); err != nil {
			return serviceWrap(err, "conversation: handover trigger failed")
		}
	}

	s.Observer.ObserveOperation(ctx, startedAt, "conversation.handle", nil, obsFields)
	return nil
}

// appendInbound stores the customer message. A conflict on the message id
// means an earlier delivery got here first; appended is false in that case.
func (s *Service) appendInbound(ctx context.Context, conv core.Conversation, email core.InboundEmail) (core.Message, bool, error) {
	message, err := s.Messages.Append(ctx, core.AppendMessageInput{
		ConversationID: conv.ID,
		Direction:      core.DirectionInbound,
		SenderType:     core.SenderLead,
		MessageID:      email.ProviderMessageID(),
		InReplyTo:      email.InReplyTo,
		References:     email.References,
		Subject:        email.Subject,
		Content:        email.Body,
		Status:         core.MessageDelivered,
	})
	if err == nil {
		return message, true, nil
	}
	if core.IsConflict(err) {
		return core.Message{}, false, nil
	}
	return core.Message{}, false, serviceWrap(err, "conversation: store inbound message failed")
}

// dispatchReply sends the decided reply. Transport failure is logged and
// absorbed: the conversation state is already consistent, the handover (if
// any) still proceeds, and there is no retry.
func (s *Service) dispatchReply(ctx context.Context, conv core.Conversation, identity core.Identity, email core.InboundEmail, inbound core.Message, outcome respond.Outcome) {
	if s.Dispatcher == nil || outcome.Reply == "" {
		return
	}
	_, err := s.Dispatcher.Send(ctx, outbound.SendInput{
		Conversation: conv,
		Agent:        identity.Agent,
		Inbound:      inbound,
		ReplyText:    outcome.Reply,
		To:           email.Sender,
		Confidence:   outcome.Confidence,
	})
	if err != nil {
		s.Observer.LogError(ctx, "conversation: reply send failed", map[string]any{
			"conversation_id": conv.ID,
			"error":           err.Error(),
		})
		return
	}
	if err := s.refreshCounters(ctx, conv.ID, s.now()); err != nil {
		s.Observer.LogError(ctx, "conversation: counter refresh after send failed", map[string]any{
			"conversation_id": conv.ID,
			"error":           err.Error(),
		})
	}
}

// refreshCounters recomputes message counters from stored rows. Counting is
// always derived, never incremented, so replays cannot drift the totals.
func (s *Service) refreshCounters(ctx context.Context, conversationID string, lastMessageAt time.Time) error {
	total, ai, err := s.Messages.CountByConversation(ctx, conversationID)
	if err != nil {
		return serviceWrap(err, "conversation: count messages failed")
	}
	if err := s.Conversations.UpdateCounters(ctx, conversationID, total, ai, lastMessageAt); err != nil {
		return serviceWrap(err, "conversation: update counters failed")
	}
	return nil
}

func (s *Service) messageTime(email core.InboundEmail) time.Time {
	if !email.Timestamp.IsZero() {
		return email.Timestamp
	}
	return s.now()
}

func (s *Service) contextWindow() int {
	if s.ContextWindow > 0 {
		return s.ContextWindow
	}
	if s.Orchestrator != nil && s.Orchestrator.ContextWindow > 0 {
		return s.Orchestrator.ContextWindow
	}
	return 5
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
