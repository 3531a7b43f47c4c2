package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

func notFoundErr() error {
	return goerrors.New("not found", goerrors.CategoryNotFound).WithTextCode(core.MailErrorNotFound)
}

func conflictErr() error {
	return goerrors.New("conflict", goerrors.CategoryConflict).WithTextCode(core.MailErrorConflict)
}

type fakeConversationStore struct {
	byID             map[string]core.Conversation
	created          []core.CreateConversationInput
	createConflict   bool
	findActiveMisses int
	counterUpdates   int
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{byID: map[string]core.Conversation{}}
}

func (s *fakeConversationStore) put(conv core.Conversation) core.Conversation {
	if conv.Status == "" {
		conv.Status = core.ConversationActive
	}
	s.byID[conv.ID] = conv
	return conv
}

func (s *fakeConversationStore) Create(_ context.Context, in core.CreateConversationInput) (core.Conversation, error) {
	s.created = append(s.created, in)
	if s.createConflict {
		return core.Conversation{}, conflictErr()
	}
	for _, conv := range s.byID {
		if conv.ThreadID == in.ThreadID {
			return core.Conversation{}, conflictErr()
		}
	}
	return s.put(core.Conversation{
		ID:         fmt.Sprintf("conv-%d", len(s.byID)+1),
		AgentID:    in.AgentID,
		LeadID:     in.LeadID,
		CampaignID: in.CampaignID,
		ThreadID:   in.ThreadID,
		Status:     core.ConversationActive,
	}), nil
}

func (s *fakeConversationStore) Get(_ context.Context, id string) (core.Conversation, error) {
	if conv, ok := s.byID[id]; ok {
		return conv, nil
	}
	return core.Conversation{}, notFoundErr()
}

func (s *fakeConversationStore) GetByThreadID(_ context.Context, threadID string) (core.Conversation, error) {
	for _, conv := range s.byID {
		if conv.ThreadID == threadID {
			return conv, nil
		}
	}
	return core.Conversation{}, notFoundErr()
}

func (s *fakeConversationStore) FindActive(_ context.Context, agentID, leadID, campaignID string) (core.Conversation, error) {
	if s.findActiveMisses > 0 {
		s.findActiveMisses--
		return core.Conversation{}, notFoundErr()
	}
	for _, conv := range s.byID {
		if conv.AgentID != agentID || conv.LeadID != leadID || conv.Status != core.ConversationActive {
			continue
		}
		if campaignID != "" && conv.CampaignID != campaignID {
			continue
		}
		return conv, nil
	}
	return core.Conversation{}, notFoundErr()
}

func (s *fakeConversationStore) UpdateCounters(_ context.Context, id string, messageCount, aiMessageCount int, lastMessageAt time.Time) error {
	conv, ok := s.byID[id]
	if !ok {
		return notFoundErr()
	}
	conv.MessageCount = messageCount
	conv.AIMessageCount = aiMessageCount
	conv.LastMessageAt = &lastMessageAt
	s.byID[id] = conv
	s.counterUpdates++
	return nil
}

func (s *fakeConversationStore) MarkHandedOver(_ context.Context, id string, reason string, at time.Time) error {
	conv, ok := s.byID[id]
	if !ok || conv.Status != core.ConversationActive {
		return notFoundErr()
	}
	conv.Status = core.ConversationHandedOver
	conv.HandoverReason = reason
	conv.HandedOverAt = &at
	s.byID[id] = conv
	return nil
}

type fakeMessageStore struct {
	messages []core.Message
	appended []core.AppendMessageInput
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{}
}

func (s *fakeMessageStore) Append(_ context.Context, in core.AppendMessageInput) (core.Message, error) {
	s.appended = append(s.appended, in)
	for _, message := range s.messages {
		if message.MessageID == in.MessageID {
			return core.Message{}, conflictErr()
		}
	}
	message := core.Message{
		ID:             fmt.Sprintf("msg-%d", len(s.messages)+1),
		ConversationID: in.ConversationID,
		Direction:      in.Direction,
		SenderType:     in.SenderType,
		MessageID:      in.MessageID,
		InReplyTo:      in.InReplyTo,
		References:     in.References,
		Subject:        in.Subject,
		Content:        in.Content,
		Status:         in.Status,
		AIConfidence:   in.AIConfidence,
		CreatedAt:      time.Now().UTC(),
	}
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *fakeMessageStore) GetByMessageID(_ context.Context, messageID string) (core.Message, error) {
	for _, message := range s.messages {
		if message.MessageID == messageID {
			return message, nil
		}
	}
	return core.Message{}, notFoundErr()
}

func (s *fakeMessageStore) ListRecent(_ context.Context, conversationID string, limit int) ([]core.Message, error) {
	var history []core.Message
	for _, message := range s.messages {
		if message.ConversationID == conversationID {
			history = append(history, message)
		}
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (s *fakeMessageStore) LastOutbound(_ context.Context, conversationID string) (core.Message, error) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		message := s.messages[i]
		if message.ConversationID == conversationID && message.Direction == core.DirectionOutbound {
			return message, nil
		}
	}
	return core.Message{}, notFoundErr()
}

func (s *fakeMessageStore) CountByConversation(_ context.Context, conversationID string) (int, int, error) {
	total, ai := 0, 0
	for _, message := range s.messages {
		if message.ConversationID != conversationID {
			continue
		}
		total++
		if message.Direction == core.DirectionOutbound && message.SenderType == core.SenderAgent {
			ai++
		}
	}
	return total, ai, nil
}

func newTestResolver(conversations *fakeConversationStore, messages *fakeMessageStore, now time.Time) *Resolver {
	resolver := NewResolver(conversations, messages)
	resolver.Now = func() time.Time { return now }
	return resolver
}

func TestResolverInReplyToWinsOverThreadID(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	conversations := newFakeConversationStore()
	messages := newFakeMessageStore()

	byRef := conversations.put(core.Conversation{ID: "conv-ref", AgentID: "a1", LeadID: "l1", ThreadID: "t-ref"})
	conversations.put(core.Conversation{ID: "conv-thread", AgentID: "a1", LeadID: "l1", ThreadID: "t-other"})
	messages.messages = append(messages.messages, core.Message{
		ID: "msg-1", ConversationID: byRef.ID, MessageID: "prev@mail.example.com",
	})

	resolver := newTestResolver(conversations, messages, now)
	conv, err := resolver.Resolve(context.Background(), ResolveInput{
		AgentID:   "a1",
		LeadID:    "l1",
		ThreadID:  "t-other",
		InReplyTo: "<prev@mail.example.com>",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if conv.ID != byRef.ID {
		t.Fatalf("expected the In-Reply-To match to win, got %q", conv.ID)
	}
}

func TestResolverFollowsReferencesNewestFirst(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	conversations := newFakeConversationStore()
	messages := newFakeMessageStore()

	byRef := conversations.put(core.Conversation{ID: "conv-ref", AgentID: "a1", LeadID: "l1", ThreadID: "t-ref"})
	messages.messages = append(messages.messages, core.Message{
		ID: "msg-1", ConversationID: byRef.ID, MessageID: "newest@mail.example.com",
	})

	resolver := newTestResolver(conversations, messages, now)
	conv, err := resolver.Resolve(context.Background(), ResolveInput{
		AgentID:    "a1",
		LeadID:     "l1",
		References: []string{"<unknown@mail.example.com>", "<newest@mail.example.com>"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if conv.ID != byRef.ID {
		t.Fatalf("expected the newest reference to resolve, got %q", conv.ID)
	}
}

func TestResolverMatchesThreadID(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	conversations := newFakeConversationStore()
	messages := newFakeMessageStore()

	byThread := conversations.put(core.Conversation{ID: "conv-thread", AgentID: "a1", LeadID: "l1", ThreadID: "t-123"})

	resolver := newTestResolver(conversations, messages, now)
	conv, err := resolver.Resolve(context.Background(), ResolveInput{
		AgentID:  "a1",
		LeadID:   "l1",
		ThreadID: "t-123",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if conv.ID != byThread.ID {
		t.Fatalf("expected the thread match, got %q", conv.ID)
	}
}

func TestResolverFallsBackToActiveIdentityMatch(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	conversations := newFakeConversationStore()
	messages := newFakeMessageStore()

	active := conversations.put(core.Conversation{ID: "conv-active", AgentID: "a1", LeadID: "l1", ThreadID: "t-active"})

	resolver := newTestResolver(conversations, messages, now)
	conv, err := resolver.Resolve(context.Background(), ResolveInput{AgentID: "a1", LeadID: "l1"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if conv.ID != active.ID {
		t.Fatalf("expected the active conversation for the identity, got %q", conv.ID)
	}
	if len(conversations.created) != 0 {
		t.Fatal("did not expect a new conversation")
	}
}

func TestResolverCreatesWhenNothingMatches(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	conversations := newFakeConversationStore()
	messages := newFakeMessageStore()

	resolver := newTestResolver(conversations, messages, now)
	conv, err := resolver.Resolve(context.Background(), ResolveInput{
		AgentID:    "a1",
		LeadID:     "l1",
		CampaignID: "c1",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(conversations.created) != 1 {
		t.Fatalf("expected one create, got %d", len(conversations.created))
	}
	prefix := fmt.Sprintf("thread-%d-", now.UnixMilli())
	if !strings.HasPrefix(conv.ThreadID, prefix) {
		t.Fatalf("expected generated thread token with prefix %q, got %q", prefix, conv.ThreadID)
	}
	if conv.CampaignID != "c1" {
		t.Fatalf("expected campaign to carry over, got %q", conv.CampaignID)
	}
}

func TestResolverConcurrentCreateReusesWinner(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	conversations := newFakeConversationStore()
	messages := newFakeMessageStore()

	// A concurrent writer creates the conversation between our lookup miss
	// and our insert, so the insert hits the uniqueness constraint.
	winner := conversations.put(core.Conversation{ID: "conv-winner", AgentID: "a1", LeadID: "l1", ThreadID: "t-race"})
	conversations.createConflict = true
	conversations.findActiveMisses = 1

	resolver := newTestResolver(conversations, messages, now)
	conv, err := resolver.Resolve(context.Background(), ResolveInput{AgentID: "a1", LeadID: "l1"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if conv.ID != winner.ID {
		t.Fatalf("expected the race winner to be reused, got %q", conv.ID)
	}
}

func TestResolverRequiresAgentAndLead(t *testing.T) {
	resolver := newTestResolver(newFakeConversationStore(), newFakeMessageStore(), time.Now())
	if _, err := resolver.Resolve(context.Background(), ResolveInput{AgentID: "a1"}); err == nil {
		t.Fatal("expected missing lead id to fail")
	}
	if _, err := resolver.Resolve(context.Background(), ResolveInput{LeadID: "l1"}); err == nil {
		t.Fatal("expected missing agent id to fail")
	}
}
