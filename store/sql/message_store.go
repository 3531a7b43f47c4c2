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

type MessageStore struct {
	db   *bun.DB
	repo repository.Repository[*messageRecord]
}

func NewMessageStore(db *bun.DB) (*MessageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*messageRecord](db, messageHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid message repository wiring: %w", err)
		}
	}
	return &MessageStore{
		db:   db,
		repo: repo,
	}, nil
}

// Append stores a message. The unique index on message_id makes this the
// durable half of the dedupe boundary: a second insert with the same id
// yields a conflict error.
func (s *MessageStore) Append(ctx context.Context, in core.AppendMessageInput) (core.Message, error) {
	if s == nil || s.db == nil {
		return core.Message{}, fmt.Errorf("sqlstore: message store is not configured")
	}
	conversationID := strings.TrimSpace(in.ConversationID)
	messageID := core.NormalizeMessageID(in.MessageID)
	if conversationID == "" || messageID == "" {
		return core.Message{}, fmt.Errorf("sqlstore: conversation id and message id are required")
	}

	record := &messageRecord{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Direction:      string(in.Direction),
		SenderType:     string(in.SenderType),
		MessageID:      messageID,
		InReplyTo:      core.NormalizeMessageID(in.InReplyTo),
		References:     normalizeReferences(in.References),
		Subject:        in.Subject,
		Content:        in.Content,
		Status:         string(in.Status),
		CreatedAt:      time.Now().UTC(),
	}
	if in.AIConfidence != nil {
		value := *in.AIConfidence
		record.AIConfidence = &value
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return core.Message{}, conflictError(
				fmt.Sprintf("sqlstore: message %q already stored", messageID))
		}
		return core.Message{}, err
	}
	return messageToDomain(record), nil
}

func (s *MessageStore) GetByMessageID(ctx context.Context, messageID string) (core.Message, error) {
	if s == nil || s.db == nil {
		return core.Message{}, fmt.Errorf("sqlstore: message store is not configured")
	}
	record := &messageRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.message_id = ?", core.NormalizeMessageID(messageID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Message{}, notFoundError(
				fmt.Sprintf("sqlstore: message %q not found", messageID))
		}
		return core.Message{}, err
	}
	return messageToDomain(record), nil
}

// ListRecent returns the newest messages of the conversation in chronological
// order, oldest first.
func (s *MessageStore) ListRecent(ctx context.Context, conversationID string, limit int) ([]core.Message, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: message store is not configured")
	}
	if limit <= 0 {
		return nil, nil
	}
	var records []*messageRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.conversation_id = ?", strings.TrimSpace(conversationID)).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	messages := make([]core.Message, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		messages = append(messages, messageToDomain(records[i]))
	}
	return messages, nil
}

func (s *MessageStore) LastOutbound(ctx context.Context, conversationID string) (core.Message, error) {
	if s == nil || s.db == nil {
		return core.Message{}, fmt.Errorf("sqlstore: message store is not configured")
	}
	record := &messageRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.conversation_id = ?", strings.TrimSpace(conversationID)).
		Where("?TableAlias.direction = ?", string(core.DirectionOutbound)).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Message{}, notFoundError(
				fmt.Sprintf("sqlstore: no outbound message for conversation %q", conversationID))
		}
		return core.Message{}, err
	}
	return messageToDomain(record), nil
}

// CountByConversation recounts stored rows so conversation counters are
// always derived state.
func (s *MessageStore) CountByConversation(ctx context.Context, conversationID string) (int, int, error) {
	if s == nil || s.db == nil {
		return 0, 0, fmt.Errorf("sqlstore: message store is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)

	total, err := s.db.NewSelect().
		Model((*messageRecord)(nil)).
		Where("?TableAlias.conversation_id = ?", conversationID).
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}

	ai, err := s.db.NewSelect().
		Model((*messageRecord)(nil)).
		Where("?TableAlias.conversation_id = ?", conversationID).
		Where("?TableAlias.direction = ?", string(core.DirectionOutbound)).
		Where("?TableAlias.sender_type = ?", string(core.SenderAgent)).
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	return total, ai, nil
}

// maxStoredReferences caps the persisted chain the same way the outbound
// header does: keep the newest ids, drop the oldest.
const maxStoredReferences = 10

func normalizeReferences(refs []string) []string {
	if len(refs) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(refs))
	for _, ref := range refs {
		if cleaned := core.NormalizeMessageID(ref); cleaned != "" {
			normalized = append(normalized, cleaned)
		}
	}
	if len(normalized) == 0 {
		return nil
	}
	if len(normalized) > maxStoredReferences {
		normalized = normalized[len(normalized)-maxStoredReferences:]
	}
	return normalized
}

var _ core.MessageStore = (*MessageStore)(nil)
