package webhook

import (
	"testing"
	"time"
)

func TestExtractorReadsTopLevelFields(t *testing.T) {
	extractor := Extractor{}
	email := extractor.Extract(map[string]string{
		"sender":      "lead@example.com",
		"recipient":   "agent@mail.example.com",
		"subject":     "Question about pricing",
		"body-plain":  "How much does it cost?",
		"Message-Id":  "<abc-123@provider.example>",
		"In-Reply-To": "<prev-456@mail.example.com>",
		"References":  "<root-1@mail.example.com> <prev-456@mail.example.com>",
		"timestamp":   "1741608000",
	})

	if email.Sender != "lead@example.com" {
		t.Fatalf("unexpected sender %q", email.Sender)
	}
	if email.MessageID != "abc-123@provider.example" {
		t.Fatalf("expected normalized message id, got %q", email.MessageID)
	}
	if email.InReplyTo != "prev-456@mail.example.com" {
		t.Fatalf("expected normalized in-reply-to, got %q", email.InReplyTo)
	}
	if len(email.References) != 2 || email.References[0] != "root-1@mail.example.com" {
		t.Fatalf("unexpected references %v", email.References)
	}
	if email.Timestamp != time.Unix(1741608000, 0).UTC() {
		t.Fatalf("unexpected timestamp %v", email.Timestamp)
	}
}

func TestExtractorPrefersStrippedTextWhenBodyPlainMissing(t *testing.T) {
	extractor := Extractor{}
	email := extractor.Extract(map[string]string{
		"stripped-text": "just the reply",
	})
	if email.Body != "just the reply" {
		t.Fatalf("unexpected body %q", email.Body)
	}
}

func TestExtractorHeaderBlobFillsOnlyGaps(t *testing.T) {
	extractor := Extractor{}
	blob := `[["Message-Id","<blob-id@x>"],["In-Reply-To","<blob-parent@x>"],["Subject","Blob subject"]]`
	email := extractor.Extract(map[string]string{
		"Message-Id":      "<top-id@x>",
		"message-headers": blob,
	})

	// Top-level wins for the id; the blob fills the missing fields.
	if email.MessageID != "top-id@x" {
		t.Fatalf("expected top-level message id to win, got %q", email.MessageID)
	}
	if email.InReplyTo != "blob-parent@x" {
		t.Fatalf("expected blob to fill in-reply-to, got %q", email.InReplyTo)
	}
	if email.Subject != "Blob subject" {
		t.Fatalf("expected blob to fill subject, got %q", email.Subject)
	}
}

func TestExtractorIgnoresMalformedHeaderBlob(t *testing.T) {
	extractor := Extractor{}
	email := extractor.Extract(map[string]string{
		"Message-Id":      "<top-id@x>",
		"message-headers": "{not json",
	})
	if email.MessageID != "top-id@x" {
		t.Fatalf("expected extraction to survive a malformed blob, got %q", email.MessageID)
	}
	if email.InReplyTo != "" {
		t.Fatalf("expected no in-reply-to, got %q", email.InReplyTo)
	}
}

func TestExtractorFieldLookupIsCaseInsensitive(t *testing.T) {
	extractor := Extractor{}
	email := extractor.Extract(map[string]string{
		"MESSAGE-ID": "<shouting@x>",
		"From":       "caps@example.com",
	})
	if email.MessageID != "shouting@x" {
		t.Fatalf("expected case-insensitive match, got %q", email.MessageID)
	}
	if email.Sender != "caps@example.com" {
		t.Fatalf("expected from alias to resolve sender, got %q", email.Sender)
	}
}

func TestSplitReferencesDropsEmptyTokens(t *testing.T) {
	refs := splitReferences("  <a@x>   <b@x> <> ")
	if len(refs) != 2 || refs[0] != "a@x" || refs[1] != "b@x" {
		t.Fatalf("unexpected references %v", refs)
	}
	if splitReferences("   ") != nil {
		t.Fatal("expected blank references to return nil")
	}
}
