package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

// RepositoryFactory wires every pipeline store off one bun handle. An
// optional cache service upgrades conversation reads to the cached store.
type RepositoryFactory struct {
	db    *bun.DB
	cache repositorycache.CacheService

	conversationStore core.ConversationStore
	messageStore      *MessageStore
	eventStore        *WebhookEventStore
	handoverStore     *HandoverStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// WithCache enables the cached conversation store. Must be called before
// BuildStores.
func (f *RepositoryFactory) WithCache(cacheService repositorycache.CacheService) *RepositoryFactory {
	if f != nil {
		f.cache = cacheService
	}
	return f
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.conversationStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) ConversationStore() core.ConversationStore {
	if f == nil {
		return nil
	}
	return f.conversationStore
}

func (f *RepositoryFactory) MessageStore() core.MessageStore {
	if f == nil {
		return nil
	}
	return f.messageStore
}

func (f *RepositoryFactory) WebhookEventStore() core.WebhookEventStore {
	if f == nil {
		return nil
	}
	return f.eventStore
}

func (f *RepositoryFactory) HandoverStore() core.HandoverStore {
	if f == nil {
		return nil
	}
	return f.handoverStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	conversationStore, err := NewConversationStore(f.db)
	if err != nil {
		return err
	}
	if f.cache != nil {
		cached, cacheErr := NewCachedConversationStore(conversationStore, f.cache)
		if cacheErr != nil {
			return cacheErr
		}
		f.conversationStore = cached
	} else {
		f.conversationStore = conversationStore
	}

	messageStore, err := NewMessageStore(f.db)
	if err != nil {
		return err
	}
	f.messageStore = messageStore

	eventStore, err := NewWebhookEventStore(f.db)
	if err != nil {
		return err
	}
	f.eventStore = eventStore

	handoverStore, err := NewHandoverStore(f.db)
	if err != nil {
		return err
	}
	f.handoverStore = handoverStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
