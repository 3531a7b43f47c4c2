package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

type ConversationStatus string

const (
	ConversationActive     ConversationStatus = "active"
	ConversationHandedOver ConversationStatus = "handed_over"
	ConversationCompleted  ConversationStatus = "completed"
)

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

type SenderType string

const (
	SenderLead  SenderType = "lead"
	SenderAgent SenderType = "agent"
)

type MessageStatus string

const (
	MessageDelivered MessageStatus = "delivered"
	MessageSent      MessageStatus = "sent"
	MessageFailed    MessageStatus = "failed"
)

type HandoverTriggerType string

const (
	TriggerKeyword       HandoverTriggerType = "keyword"
	TriggerMaxMessages   HandoverTriggerType = "max_messages"
	TriggerLowConfidence HandoverTriggerType = "low_confidence"
	TriggerManual        HandoverTriggerType = "manual"
)

type HandoverStatus string

const (
	HandoverPending  HandoverStatus = "pending"
	HandoverResolved HandoverStatus = "resolved"
)

type Conversation struct {
	ID             string
	AgentID        string
	LeadID         string
	CampaignID     string
	ThreadID       string
	Status         ConversationStatus
	MessageCount   int
	AIMessageCount int
	LastMessageAt  *time.Time
	HandoverReason string
	HandedOverAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c Conversation) IsActive() bool {
	return c.Status == ConversationActive
}

type Message struct {
	ID             string
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
	CreatedAt      time.Time
}

type WebhookEvent struct {
	ID                string
	ProviderMessageID string
	EventType         string
	RawPayload        map[string]any
	Processed         bool
	ProcessedAt       *time.Time
	CreatedAt         time.Time
}

type Handover struct {
	ID                  string
	ConversationID      string
	TriggerType         HandoverTriggerType
	TriggerDetail       string
	Status              HandoverStatus
	ConversationSummary string
	CreatedAt           time.Time
}

// AgentProfile carries the per-agent settings the response pipeline needs.
// Agent CRUD lives with the campaign collaborator; callers supply the profile.
type AgentProfile struct {
	ID                  string
	Name                string
	BaseDomain          string
	Subdomain           string
	FromEmail           string
	HandoverTriggers    []string
	MaxMessages         int
	ConfidenceThreshold *float64
	PromptTemplate      string
	Variables           map[string]string
}

// InboundEmail is the validated, typed view of a provider webhook payload.
// Unknown or malformed payload shapes fail closed into zero-valued fields.
type InboundEmail struct {
	Sender     string
	Recipient  string
	Subject    string
	Body       string
	MessageID  string
	InReplyTo  string
	References []string
	ThreadID   string
	Timestamp  time.Time
	Raw        map[string]any
}

// ProviderMessageID returns the normalized idempotency key for the event.
func (e InboundEmail) ProviderMessageID() string {
	return NormalizeMessageID(e.MessageID)
}

// Identity correlates an inbound email with the owning agent and lead.
type Identity struct {
	AgentID    string
	LeadID     string
	CampaignID string
	Agent      AgentProfile
}

// NormalizeMessageID strips angle brackets and surrounding whitespace from a
// provider message id so dedupe keys compare equal across payload shapes.
func NormalizeMessageID(value string) string {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(trimmed, "<")
	trimmed = strings.TrimSuffix(trimmed, ">")
	return strings.TrimSpace(trimmed)
}

// NewThreadID generates a conversation thread token: thread-<epochMs>-<8hex>.
func NewThreadID(now time.Time) string {
	return fmt.Sprintf("thread-%d-%s", now.UnixMilli(), randomHex8())
}

// NewMessageID generates an outbound message id of the form
// <epochMs.8hex@subdomain.baseDomain>. An empty subdomain collapses to the
// bare base domain.
func NewMessageID(now time.Time, subdomain string, baseDomain string) string {
	domain := strings.TrimSpace(baseDomain)
	if sub := strings.TrimSpace(subdomain); sub != "" {
		domain = sub + "." + domain
	}
	return fmt.Sprintf("<%d.%s@%s>", now.UnixMilli(), randomHex8(), domain)
}

func randomHex8() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xffffffff)
	}
	return hex.EncodeToString(buf)
}
