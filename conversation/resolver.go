package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

// ResolveInput carries every correlation signal an inbound email offers.
type ResolveInput struct {
	AgentID    string
	LeadID     string
	CampaignID string
	ThreadID   string
	InReplyTo  string
	References []string
}

// Resolver finds or creates the conversation an inbound email belongs to.
//
// Resolution precedence: a round-tripped threading header (In-Reply-To or
// References pointing at a message this system stored) always wins, then an
// exact thread-token match, then the (agent, lead, active) identity triple
// narrowed by campaign when present. Only a full miss creates a conversation.
type Resolver struct {
	Conversations core.ConversationStore
	Messages      core.MessageStore
	Now           func() time.Time
}

func NewResolver(conversations core.ConversationStore, messages core.MessageStore) *Resolver {
	return &Resolver{
		Conversations: conversations,
		Messages:      messages,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (core.Conversation, error) {
	if r == nil || r.Conversations == nil || r.Messages == nil {
		return core.Conversation{}, resolverInternal("conversation: resolver requires stores")
	}
	in.AgentID = strings.TrimSpace(in.AgentID)
	in.LeadID = strings.TrimSpace(in.LeadID)
	in.CampaignID = strings.TrimSpace(in.CampaignID)
	in.ThreadID = strings.TrimSpace(in.ThreadID)
	if in.AgentID == "" || in.LeadID == "" {
		return core.Conversation{}, resolverBadInput("conversation: agent id and lead id are required")
	}

	if conv, ok, err := r.resolveByMessageRef(ctx, in); err != nil {
		return core.Conversation{}, err
	} else if ok {
		return conv, nil
	}

	if in.ThreadID != "" {
		conv, err := r.Conversations.GetByThreadID(ctx, in.ThreadID)
		if err == nil {
			return conv, nil
		}
		if !core.IsNotFound(err) {
			return core.Conversation{}, err
		}
	}

	conv, err := r.Conversations.FindActive(ctx, in.AgentID, in.LeadID, in.CampaignID)
	if err == nil {
		return conv, nil
	}
	if !core.IsNotFound(err) {
		return core.Conversation{}, err
	}

	return r.create(ctx, in)
}

// resolveByMessageRef follows In-Reply-To first, then the reference chain
// newest-first. A hit means the provider round-tripped one of our own ids.
func (r *Resolver) resolveByMessageRef(ctx context.Context, in ResolveInput) (core.Conversation, bool, error) {
	candidates := make([]string, 0, len(in.References)+1)
	if id := core.NormalizeMessageID(in.InReplyTo); id != "" {
		candidates = append(candidates, id)
	}
	for i := len(in.References) - 1; i >= 0; i-- {
		if id := core.NormalizeMessageID(in.References[i]); id != "" {
			candidates = append(candidates, id)
		}
	}
	for _, candidate := range candidates {
		message, err := r.Messages.GetByMessageID(ctx, candidate)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return core.Conversation{}, false, err
		}
		conv, err := r.Conversations.Get(ctx, message.ConversationID)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return core.Conversation{}, false, err
		}
		return conv, true, nil
	}
	return core.Conversation{}, false, nil
}

func (r *Resolver) create(ctx context.Context, in ResolveInput) (core.Conversation, error) {
	threadID := in.ThreadID
	if threadID == "" {
		threadID = core.NewThreadID(r.now())
	}
	conv, err := r.Conversations.Create(ctx, core.CreateConversationInput{
		AgentID:    in.AgentID,
		LeadID:     in.LeadID,
		CampaignID: in.CampaignID,
		ThreadID:   threadID,
	})
	if err == nil {
		return conv, nil
	}
	if !core.IsConflict(err) {
		return core.Conversation{}, err
	}

	// First writer won a concurrent create; re-read and reuse.
	if in.ThreadID != "" {
		if existing, readErr := r.Conversations.GetByThreadID(ctx, in.ThreadID); readErr == nil {
			return existing, nil
		}
	}
	existing, readErr := r.Conversations.FindActive(ctx, in.AgentID, in.LeadID, in.CampaignID)
	if readErr != nil {
		return core.Conversation{}, err
	}
	return existing, nil
}

func (r *Resolver) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
