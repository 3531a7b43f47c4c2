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

type HandoverStore struct {
	db   *bun.DB
	repo repository.Repository[*handoverRecord]
}

func NewHandoverStore(db *bun.DB) (*HandoverStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*handoverRecord](db, handoverHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid handover repository wiring: %w", err)
		}
	}
	return &HandoverStore{
		db:   db,
		repo: repo,
	}, nil
}

// Create inserts a pending handover. The partial unique index on
// (conversation_id) WHERE status = 'pending' rejects a second pending row,
// which surfaces as a conflict error.
func (s *HandoverStore) Create(ctx context.Context, in core.CreateHandoverInput) (core.Handover, error) {
	if s == nil || s.db == nil {
		return core.Handover{}, fmt.Errorf("sqlstore: handover store is not configured")
	}
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return core.Handover{}, fmt.Errorf("sqlstore: conversation id is required")
	}

	record := &handoverRecord{
		ID:                  uuid.NewString(),
		ConversationID:      conversationID,
		TriggerType:         string(in.TriggerType),
		TriggerDetail:       in.TriggerDetail,
		Status:              string(core.HandoverPending),
		ConversationSummary: in.ConversationSummary,
		CreatedAt:           time.Now().UTC(),
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return core.Handover{}, conflictError(
				fmt.Sprintf("sqlstore: pending handover already exists for conversation %q", conversationID))
		}
		return core.Handover{}, err
	}
	return handoverToDomain(record), nil
}

func (s *HandoverStore) FindPending(ctx context.Context, conversationID string) (core.Handover, error) {
	if s == nil || s.db == nil {
		return core.Handover{}, fmt.Errorf("sqlstore: handover store is not configured")
	}
	record := &handoverRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.conversation_id = ?", strings.TrimSpace(conversationID)).
		Where("?TableAlias.status = ?", string(core.HandoverPending)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Handover{}, notFoundError(
				fmt.Sprintf("sqlstore: no pending handover for conversation %q", conversationID))
		}
		return core.Handover{}, err
	}
	return handoverToDomain(record), nil
}

var _ core.HandoverStore = (*HandoverStore)(nil)
