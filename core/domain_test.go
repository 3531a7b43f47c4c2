package core

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNormalizeMessageID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"<abc-123@provider.example>", "abc-123@provider.example"},
		{"  <abc-123@provider.example>  ", "abc-123@provider.example"},
		{"abc-123@provider.example", "abc-123@provider.example"},
		{"<>", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeMessageID(tc.in); got != tc.want {
			t.Fatalf("NormalizeMessageID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewThreadID(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	id := NewThreadID(now)
	prefix := fmt.Sprintf("thread-%d-", now.UnixMilli())
	if !strings.HasPrefix(id, prefix) {
		t.Fatalf("unexpected thread id %q", id)
	}
	if suffix := strings.TrimPrefix(id, prefix); len(suffix) != 8 {
		t.Fatalf("expected an 8-hex suffix, got %q", suffix)
	}
	if NewThreadID(now) == id {
		t.Fatal("expected thread ids to be unique per call")
	}
}

func TestNewMessageID(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	id := NewMessageID(now, "mail", "example.com")
	if !strings.HasPrefix(id, fmt.Sprintf("<%d.", now.UnixMilli())) {
		t.Fatalf("unexpected message id prefix %q", id)
	}
	if !strings.HasSuffix(id, "@mail.example.com>") {
		t.Fatalf("unexpected message id domain %q", id)
	}

	bare := NewMessageID(now, "", "example.com")
	if !strings.HasSuffix(bare, "@example.com>") {
		t.Fatalf("expected the bare base domain, got %q", bare)
	}
}

func TestInboundEmailProviderMessageID(t *testing.T) {
	email := InboundEmail{MessageID: "<abc@x>"}
	if email.ProviderMessageID() != "abc@x" {
		t.Fatalf("unexpected provider message id %q", email.ProviderMessageID())
	}
}

func TestConversationIsActive(t *testing.T) {
	if !(Conversation{Status: ConversationActive}).IsActive() {
		t.Fatal("expected an active conversation")
	}
	if (Conversation{Status: ConversationHandedOver}).IsActive() {
		t.Fatal("expected a handed-over conversation to be inactive")
	}
}
