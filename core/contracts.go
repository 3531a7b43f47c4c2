package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type CreateConversationInput struct {
	AgentID    string
	LeadID     string
	CampaignID string
	ThreadID   string
}

type ConversationStore interface {
	Create(ctx context.Context, in CreateConversationInput) (Conversation, error)
	Get(ctx context.Context, id string) (Conversation, error)
	GetByThreadID(ctx context.Context, threadID string) (Conversation, error)
	FindActive(ctx context.Context, agentID string, leadID string, campaignID string) (Conversation, error)
	UpdateCounters(ctx context.Context, id string, messageCount int, aiMessageCount int, lastMessageAt time.Time) error
	MarkHandedOver(ctx context.Context, id string, reason string, at time.Time) error
}

type AppendMessageInput struct {
	ConversationID string
	Direction      MessageDirection
	SenderType     SenderType
	MessageID      string
	InReplyTo      string
	References     []string
	Subject        string
	Content        string
	Status         MessageStatus
	AIConfidence   *float64
}

type MessageStore interface {
	Append(ctx context.Context, in AppendMessageInput) (Message, error)
	GetByMessageID(ctx context.Context, messageID string) (Message, error)
	ListRecent(ctx context.Context, conversationID string, limit int) ([]Message, error)
	LastOutbound(ctx context.Context, conversationID string) (Message, error)
	CountByConversation(ctx context.Context, conversationID string) (total int, ai int, err error)
}

type InsertWebhookEventInput struct {
	ProviderMessageID string
	EventType         string
	RawPayload        map[string]any
}

// WebhookEventStore is the dedupe boundary. Insert must be backed by a
// storage-level uniqueness constraint on the provider message id so that
// concurrent deliveries racing on the same id resolve to a single winner.
type WebhookEventStore interface {
	Insert(ctx context.Context, in InsertWebhookEventInput) (event WebhookEvent, duplicate bool, err error)
	MarkProcessed(ctx context.Context, id string) error
	ListUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]WebhookEvent, error)
}

type CreateHandoverInput struct {
	ConversationID      string
	TriggerType         HandoverTriggerType
	TriggerDetail       string
	ConversationSummary string
}

type HandoverStore interface {
	Create(ctx context.Context, in CreateHandoverInput) (Handover, error)
	FindPending(ctx context.Context, conversationID string) (Handover, error)
}

// IdentityResolver maps an inbound email to the owning agent/lead pair. The
// campaign collaborator owns the implementation; the pipeline only consumes it.
type IdentityResolver interface {
	Resolve(ctx context.Context, email InboundEmail) (Identity, error)
}

// Prompt roles label context turns for the model, independent of the stored
// sender types.
const (
	RoleAssistant = "Assistant"
	RoleCustomer  = "Customer"
)

type PromptMessage struct {
	Role    string
	Content string
}

type GenerateRequest struct {
	SystemPrompt string
	Context      []PromptMessage
	UserMessage  string
}

type GeneratedReply struct {
	Text string
}

type ResponseGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (GeneratedReply, error)
}

type SummaryGenerator interface {
	Summarize(ctx context.Context, messages []Message) (string, error)
}

type ThreadingHeaders struct {
	MessageID  string
	InReplyTo  string
	References []string
	ThreadID   string
}

type SendRequest struct {
	To        string
	From      string
	Subject   string
	Content   string
	Threading ThreadingHeaders
}

type SendResult struct {
	ProviderMessageID string
}

type EmailTransport interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// HandoverNotifier is the extension hook invoked after a conversation is
// handed to a human. Notification is best effort; pipeline correctness never
// depends on it.
type HandoverNotifier interface {
	NotifyHandover(ctx context.Context, conversation Conversation, handover Handover) error
}
