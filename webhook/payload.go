package webhook

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

var (
	messageIDAliases = []string{"Message-Id", "Message-ID", "message-id"}
	inReplyToAliases = []string{"In-Reply-To", "in-reply-to"}
	referenceAliases = []string{"References", "references"}
	threadIDAliases  = []string{"X-Thread-ID", "X-Thread-Id", "x-thread-id"}
	bodyAliases      = []string{"body-plain", "stripped-text"}
	senderAliases    = []string{"sender", "from"}
	recipientAliases = []string{"recipient", "to"}
)

// Extractor recovers threading metadata from heterogeneous payload shapes.
// Top-level fields win; the bundled message-headers blob only fills gaps.
type Extractor struct {
	Logger core.Logger
}

func (e Extractor) Extract(fields map[string]string) core.InboundEmail {
	email := core.InboundEmail{
		Sender:    fieldValue(fields, senderAliases...),
		Recipient: fieldValue(fields, recipientAliases...),
		Subject:   fieldValue(fields, "subject"),
		Body:      fieldValue(fields, bodyAliases...),
		MessageID: core.NormalizeMessageID(fieldValue(fields, messageIDAliases...)),
		InReplyTo: core.NormalizeMessageID(fieldValue(fields, inReplyToAliases...)),
		ThreadID:  fieldValue(fields, threadIDAliases...),
	}
	email.References = splitReferences(fieldValue(fields, referenceAliases...))

	if timestamp := fieldValue(fields, "timestamp"); timestamp != "" {
		if epoch, err := strconv.ParseInt(timestamp, 10, 64); err == nil {
			email.Timestamp = time.Unix(epoch, 0).UTC()
		}
	}

	if blob := fieldValue(fields, "message-headers"); blob != "" {
		e.fillFromHeaderBlob(&email, blob)
	}

	email.Raw = make(map[string]any, len(fields))
	for key, value := range fields {
		email.Raw[key] = value
	}
	return email
}

// fillFromHeaderBlob parses the provider's bundled [[key, value], ...] header
// array. Malformed JSON is logged and ignored.
func (e Extractor) fillFromHeaderBlob(email *core.InboundEmail, blob string) {
	var pairs [][]any
	if err := json.Unmarshal([]byte(blob), &pairs); err != nil {
		if e.Logger != nil {
			e.Logger.Error("webhook: ignoring malformed message-headers blob", "error", err)
		}
		return
	}
	headers := map[string]string{}
	for _, pair := range pairs {
		if len(pair) < 2 {
			continue
		}
		key, keyOK := pair[0].(string)
		value, valueOK := pair[1].(string)
		if !keyOK || !valueOK {
			continue
		}
		headers[key] = value
	}

	if email.MessageID == "" {
		email.MessageID = core.NormalizeMessageID(fieldValue(headers, messageIDAliases...))
	}
	if email.InReplyTo == "" {
		email.InReplyTo = core.NormalizeMessageID(fieldValue(headers, inReplyToAliases...))
	}
	if len(email.References) == 0 {
		email.References = splitReferences(fieldValue(headers, referenceAliases...))
	}
	if email.ThreadID == "" {
		email.ThreadID = fieldValue(headers, threadIDAliases...)
	}
	if email.Subject == "" {
		email.Subject = fieldValue(headers, "Subject", "subject")
	}
}

func splitReferences(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Fields(raw)
	refs := make([]string, 0, len(parts))
	for _, part := range parts {
		if normalized := core.NormalizeMessageID(part); normalized != "" {
			refs = append(refs, normalized)
		}
	}
	if len(refs) == 0 {
		return nil
	}
	return refs
}

func fieldValue(fields map[string]string, keys ...string) string {
	if len(fields) == 0 {
		return ""
	}
	for _, key := range keys {
		for existing, value := range fields {
			if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}
