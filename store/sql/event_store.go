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

type WebhookEventStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookEventRecord]
}

func NewWebhookEventStore(db *bun.DB) (*WebhookEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookEventRecord](db, webhookEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook event repository wiring: %w", err)
		}
	}
	return &WebhookEventStore{
		db:   db,
		repo: repo,
	}, nil
}

// Insert claims the provider message id. The unique index on
// provider_message_id is the linearization point for concurrent deliveries:
// exactly one caller gets duplicate=false, everyone else re-reads the winner.
func (s *WebhookEventStore) Insert(ctx context.Context, in core.InsertWebhookEventInput) (core.WebhookEvent, bool, error) {
	if s == nil || s.db == nil {
		return core.WebhookEvent{}, false, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	providerMessageID := core.NormalizeMessageID(in.ProviderMessageID)
	if providerMessageID == "" {
		return core.WebhookEvent{}, false, fmt.Errorf("sqlstore: provider message id is required")
	}

	payload := in.RawPayload
	if payload == nil {
		payload = map[string]any{}
	}
	record := &webhookEventRecord{
		ID:                uuid.NewString(),
		ProviderMessageID: providerMessageID,
		EventType:         strings.TrimSpace(in.EventType),
		RawPayload:        payload,
		Processed:         false,
		CreatedAt:         time.Now().UTC(),
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			existing, getErr := s.getByProviderMessageID(ctx, providerMessageID)
			if getErr != nil {
				return core.WebhookEvent{}, false, getErr
			}
			return existing, true, nil
		}
		return core.WebhookEvent{}, false, err
	}
	return webhookEventToDomain(record), false, nil
}

func (s *WebhookEventStore) MarkProcessed(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*webhookEventRecord)(nil)).
		Set("processed = ?", true).
		Set("processed_at = ?", now).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	return err
}

// ListUnprocessed returns claimed but unfinished events older than the
// cutoff, oldest first, for the recovery sweep.
func (s *WebhookEventStore) ListUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]core.WebhookEvent, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	var records []*webhookEventRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.processed = ?", false).
		Where("?TableAlias.created_at < ?", olderThan.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]core.WebhookEvent, 0, len(records))
	for _, record := range records {
		events = append(events, webhookEventToDomain(record))
	}
	return events, nil
}

func (s *WebhookEventStore) getByProviderMessageID(ctx context.Context, providerMessageID string) (core.WebhookEvent, error) {
	record := &webhookEventRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider_message_id = ?", providerMessageID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.WebhookEvent{}, notFoundError(
				fmt.Sprintf("sqlstore: webhook event not found for message %q", providerMessageID))
		}
		return core.WebhookEvent{}, err
	}
	return webhookEventToDomain(record), nil
}

var _ core.WebhookEventStore = (*WebhookEventStore)(nil)
