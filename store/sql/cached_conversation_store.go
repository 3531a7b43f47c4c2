package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

const conversationCacheKeyPrefix = "mailroom::conversation::v1"

// CachedConversationStore layers a read cache over thread-token lookups, the
// hottest read in the pipeline: every inbound email resolves its conversation
// at least once. Writes invalidate through the base store.
type CachedConversationStore struct {
	base  core.ConversationStore
	cache repositorycache.CacheService
}

func NewCachedConversationStore(
	base core.ConversationStore,
	cacheService repositorycache.CacheService,
) (*CachedConversationStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base conversation store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: conversation cache service is required")
	}
	return &CachedConversationStore{base: base, cache: cacheService}, nil
}

// ConversationThreadCacheKey returns the deterministic cache key for a
// thread-token lookup: mailroom::conversation::v1::thread::<thread_id> with
// the token URL-path escaped.
func ConversationThreadCacheKey(threadID string) (string, error) {
	trimmed := strings.TrimSpace(threadID)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: thread id is required for cache key")
	}
	return strings.Join([]string{conversationCacheKeyPrefix, "thread", url.PathEscape(trimmed)}, "::"), nil
}

func (s *CachedConversationStore) Create(ctx context.Context, in core.CreateConversationInput) (core.Conversation, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Conversation{}, fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	created, err := s.base.Create(ctx, in)
	if err != nil {
		return core.Conversation{}, err
	}
	if err := s.invalidateThread(ctx, created.ThreadID); err != nil {
		return core.Conversation{}, err
	}
	return created, nil
}

func (s *CachedConversationStore) Get(ctx context.Context, id string) (core.Conversation, error) {
	if s == nil || s.base == nil {
		return core.Conversation{}, fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	return s.base.Get(ctx, id)
}

func (s *CachedConversationStore) GetByThreadID(ctx context.Context, threadID string) (core.Conversation, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Conversation{}, fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	cacheKey, err := ConversationThreadCacheKey(threadID)
	if err != nil {
		return core.Conversation{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Conversation, error) {
		return s.base.GetByThreadID(ctx, threadID)
	})
}

func (s *CachedConversationStore) FindActive(ctx context.Context, agentID string, leadID string, campaignID string) (core.Conversation, error) {
	if s == nil || s.base == nil {
		return core.Conversation{}, fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	return s.base.FindActive(ctx, agentID, leadID, campaignID)
}

func (s *CachedConversationStore) UpdateCounters(ctx context.Context, id string, messageCount int, aiMessageCount int, lastMessageAt time.Time) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	if err := s.base.UpdateCounters(ctx, id, messageCount, aiMessageCount, lastMessageAt); err != nil {
		return err
	}
	return s.invalidateByID(ctx, id)
}

func (s *CachedConversationStore) MarkHandedOver(ctx context.Context, id string, reason string, at time.Time) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	if err := s.base.MarkHandedOver(ctx, id, reason, at); err != nil {
		return err
	}
	return s.invalidateByID(ctx, id)
}

func (s *CachedConversationStore) invalidateByID(ctx context.Context, id string) error {
	conversation, err := s.base.Get(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.invalidateThread(ctx, conversation.ThreadID)
}

func (s *CachedConversationStore) invalidateThread(ctx context.Context, threadID string) error {
	cacheKey, err := ConversationThreadCacheKey(threadID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.ConversationStore = (*CachedConversationStore)(nil)
