package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

type ConversationStore struct {
	db   *bun.DB
	repo repository.Repository[*conversationRecord]
}

func NewConversationStore(db *bun.DB) (*ConversationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*conversationRecord](db, conversationHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid conversation repository wiring: %w", err)
		}
	}
	return &ConversationStore{
		db:   db,
		repo: repo,
	}, nil
}

// Create inserts a new active conversation. Unique violations on the thread
// token or the active identity index surface as conflict errors so callers
// can re-read the winner.
func (s *ConversationStore) Create(ctx context.Context, in core.CreateConversationInput) (core.Conversation, error) {
	if s == nil || s.db == nil {
		return core.Conversation{}, fmt.Errorf("sqlstore: conversation store is not configured")
	}
	agentID := strings.TrimSpace(in.AgentID)
	leadID := strings.TrimSpace(in.LeadID)
	threadID := strings.TrimSpace(in.ThreadID)
	if agentID == "" || leadID == "" || threadID == "" {
		return core.Conversation{}, fmt.Errorf("sqlstore: agent id, lead id, and thread id are required")
	}

	now := time.Now().UTC()
	record := &conversationRecord{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		LeadID:    leadID,
		ThreadID:  threadID,
		Status:    string(core.ConversationActive),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if campaignID := strings.TrimSpace(in.CampaignID); campaignID != "" {
		record.CampaignID = &campaignID
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return core.Conversation{}, conflictError(
				fmt.Sprintf("sqlstore: conversation already exists for thread %q", threadID))
		}
		return core.Conversation{}, err
	}
	return conversationToDomain(record), nil
}

func (s *ConversationStore) Get(ctx context.Context, id string) (core.Conversation, error) {
	if s == nil || s.db == nil {
		return core.Conversation{}, fmt.Errorf("sqlstore: conversation store is not configured")
	}
	record := &conversationRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Conversation{}, notFoundError(
				fmt.Sprintf("sqlstore: conversation %q not found", id))
		}
		return core.Conversation{}, err
	}
	return conversationToDomain(record), nil
}

func (s *ConversationStore) GetByThreadID(ctx context.Context, threadID string) (core.Conversation, error) {
	if s == nil || s.db == nil {
		return core.Conversation{}, fmt.Errorf("sqlstore: conversation store is not configured")
	}
	record := &conversationRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.thread_id = ?", strings.TrimSpace(threadID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Conversation{}, notFoundError(
				fmt.Sprintf("sqlstore: conversation not found for thread %q", threadID))
		}
		return core.Conversation{}, err
	}
	return conversationToDomain(record), nil
}

// FindActive resolves the (agent, lead) identity to its single active
// conversation, narrowed by campaign when one is supplied.
func (s *ConversationStore) FindActive(ctx context.Context, agentID string, leadID string, campaignID string) (core.Conversation, error) {
	if s == nil || s.db == nil {
		return core.Conversation{}, fmt.Errorf("sqlstore: conversation store is not configured")
	}
	record := &conversationRecord{}
	query := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.agent_id = ?", strings.TrimSpace(agentID)).
		Where("?TableAlias.lead_id = ?", strings.TrimSpace(leadID)).
		Where("?TableAlias.status = ?", string(core.ConversationActive))
	if campaign := strings.TrimSpace(campaignID); campaign != "" {
		query = query.Where("?TableAlias.campaign_id = ?", campaign)
	}
	err := query.
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Conversation{}, notFoundError(
				fmt.Sprintf("sqlstore: no active conversation for agent %q lead %q", agentID, leadID))
		}
		return core.Conversation{}, err
	}
	return conversationToDomain(record), nil
}

func (s *ConversationStore) UpdateCounters(ctx context.Context, id string, messageCount int, aiMessageCount int, lastMessageAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: conversation store is not configured")
	}
	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*conversationRecord)(nil)).
		Set("message_count = ?", messageCount).
		Set("ai_message_count = ?", aiMessageCount).
		Set("last_message_at = ?", lastMessageAt.UTC()).
		Set("updated_at = ?", now).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	return err
}

// MarkHandedOver transitions the conversation out of active exactly once.
// The status guard makes concurrent triggers idempotent: the second writer
// matches zero rows.
func (s *ConversationStore) MarkHandedOver(ctx context.Context, id string, reason string, at time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: conversation store is not configured")
	}
	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*conversationRecord)(nil)).
		Set("status = ?", string(core.ConversationHandedOver)).
		Set("handover_reason = ?", reason).
		Set("handed_over_at = ?", at.UTC()).
		Set("updated_at = ?", now).
		Where("id = ?", strings.TrimSpace(id)).
		Where("status = ?", string(core.ConversationActive)).
		Exec(ctx)
	return err
}

var _ core.ConversationStore = (*ConversationStore)(nil)
