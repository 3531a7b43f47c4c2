package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type conversationRecord struct {
	bun.BaseModel `bun:"table:mailroom_conversations,alias:mc"`

	ID             string     `bun:"id,pk"`
	AgentID        string     `bun:"agent_id,notnull"`
	LeadID         string     `bun:"lead_id,notnull"`
	CampaignID     *string    `bun:"campaign_id"`
	ThreadID       string     `bun:"thread_id,notnull"`
	Status         string     `bun:"status,notnull"`
	MessageCount   int        `bun:"message_count,notnull"`
	AIMessageCount int        `bun:"ai_message_count,notnull"`
	LastMessageAt  *time.Time `bun:"last_message_at,nullzero"`
	HandoverReason string     `bun:"handover_reason"`
	HandedOverAt   *time.Time `bun:"handed_over_at,nullzero"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type messageRecord struct {
	bun.BaseModel `bun:"table:mailroom_messages,alias:mm"`

	ID             string    `bun:"id,pk"`
	ConversationID string    `bun:"conversation_id,notnull"`
	Direction      string    `bun:"direction,notnull"`
	SenderType     string    `bun:"sender_type,notnull"`
	MessageID      string    `bun:"message_id,notnull"`
	InReplyTo      string    `bun:"in_reply_to"`
	References     []string  `bun:"email_references,type:jsonb"`
	Subject        string    `bun:"subject"`
	Content        string    `bun:"content,notnull"`
	Status         string    `bun:"status,notnull"`
	AIConfidence   *float64  `bun:"ai_confidence,nullzero"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type webhookEventRecord struct {
	bun.BaseModel `bun:"table:mailroom_webhook_events,alias:mwe"`

	ID                string         `bun:"id,pk"`
	ProviderMessageID string         `bun:"provider_message_id,notnull"`
	EventType         string         `bun:"event_type,notnull"`
	RawPayload        map[string]any `bun:"raw_payload,type:jsonb,notnull"`
	Processed         bool           `bun:"processed,notnull"`
	ProcessedAt       *time.Time     `bun:"processed_at,nullzero"`
	CreatedAt         time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type handoverRecord struct {
	bun.BaseModel `bun:"table:mailroom_handovers,alias:mh"`

	ID                  string    `bun:"id,pk"`
	ConversationID      string    `bun:"conversation_id,notnull"`
	TriggerType         string    `bun:"trigger_type,notnull"`
	TriggerDetail       string    `bun:"trigger_detail"`
	Status              string    `bun:"status,notnull"`
	ConversationSummary string    `bun:"conversation_summary"`
	CreatedAt           time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
