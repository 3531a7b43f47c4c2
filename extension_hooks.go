package mailroom

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

// NotifierHooks is the extension point for downstream handover consumers.
// Deployments register named notifiers (AMQP publisher, CRM webhook, Slack
// bridge) and hand the registry to the coordinator as a single notifier.
// Delivery is best effort and failures are isolated per notifier.
type NotifierHooks struct {
	mu sync.RWMutex

	notifiers map[string]core.HandoverNotifier
	observer  core.Observer
}

func NewNotifierHooks() *NotifierHooks {
	return &NotifierHooks{
		notifiers: map[string]core.HandoverNotifier{},
	}
}

// WithObserver sets the observer used to report per-notifier failures.
func (h *NotifierHooks) WithObserver(observer core.Observer) *NotifierHooks {
	if h != nil {
		h.observer = observer
	}
	return h
}

func (h *NotifierHooks) Register(name string, notifier core.HandoverNotifier) error {
	if h == nil {
		return fmt.Errorf("mailroom: notifier hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("mailroom: notifier name is required")
	}
	if notifier == nil {
		return fmt.Errorf("mailroom: notifier %q is nil", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.notifiers[name]; exists {
		return fmt.Errorf("mailroom: notifier %q already registered", name)
	}
	h.notifiers[name] = notifier
	return nil
}

func (h *NotifierHooks) Names() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.notifiers))
	for name := range h.notifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NotifyHandover fans the event to every registered notifier. One notifier
// failing never blocks the others; the first error is returned after all
// have run.
func (h *NotifierHooks) NotifyHandover(ctx context.Context, conversation core.Conversation, handover core.Handover) error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	names := make([]string, 0, len(h.notifiers))
	for name := range h.notifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	notifiers := make([]core.HandoverNotifier, 0, len(names))
	for _, name := range names {
		notifiers = append(notifiers, h.notifiers[name])
	}
	h.mu.RUnlock()

	var firstErr error
	for i, notifier := range notifiers {
		if err := notifier.NotifyHandover(ctx, conversation, handover); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			h.observer.LogError(ctx, "mailroom: handover notifier failed", map[string]any{
				"notifier":    names[i],
				"handover_id": handover.ID,
				"error":       err.Error(),
			})
		}
	}
	return firstErr
}

var _ core.HandoverNotifier = (*NotifierHooks)(nil)
