package sqlstore

import (
	"github.com/copp1723/final-offerlogix-sub004/core"
)

func conversationToDomain(record *conversationRecord) core.Conversation {
	if record == nil {
		return core.Conversation{}
	}
	result := core.Conversation{
		ID:             record.ID,
		AgentID:        record.AgentID,
		LeadID:         record.LeadID,
		ThreadID:       record.ThreadID,
		Status:         core.ConversationStatus(record.Status),
		MessageCount:   record.MessageCount,
		AIMessageCount: record.AIMessageCount,
		HandoverReason: record.HandoverReason,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
	if record.CampaignID != nil {
		result.CampaignID = *record.CampaignID
	}
	if record.LastMessageAt != nil {
		value := *record.LastMessageAt
		result.LastMessageAt = &value
	}
	if record.HandedOverAt != nil {
		value := *record.HandedOverAt
		result.HandedOverAt = &value
	}
	return result
}

func messageToDomain(record *messageRecord) core.Message {
	if record == nil {
		return core.Message{}
	}
	result := core.Message{
		ID:             record.ID,
		ConversationID: record.ConversationID,
		Direction:      core.MessageDirection(record.Direction),
		SenderType:     core.SenderType(record.SenderType),
		MessageID:      record.MessageID,
		InReplyTo:      record.InReplyTo,
		References:     append([]string(nil), record.References...),
		Subject:        record.Subject,
		Content:        record.Content,
		Status:         core.MessageStatus(record.Status),
		CreatedAt:      record.CreatedAt,
	}
	if record.AIConfidence != nil {
		value := *record.AIConfidence
		result.AIConfidence = &value
	}
	return result
}

func webhookEventToDomain(record *webhookEventRecord) core.WebhookEvent {
	if record == nil {
		return core.WebhookEvent{}
	}
	result := core.WebhookEvent{
		ID:                record.ID,
		ProviderMessageID: record.ProviderMessageID,
		EventType:         record.EventType,
		RawPayload:        record.RawPayload,
		Processed:         record.Processed,
		CreatedAt:         record.CreatedAt,
	}
	if record.ProcessedAt != nil {
		value := *record.ProcessedAt
		result.ProcessedAt = &value
	}
	return result
}

func handoverToDomain(record *handoverRecord) core.Handover {
	if record == nil {
		return core.Handover{}
	}
	return core.Handover{
		ID:                  record.ID,
		ConversationID:      record.ConversationID,
		TriggerType:         core.HandoverTriggerType(record.TriggerType),
		TriggerDetail:       record.TriggerDetail,
		Status:              core.HandoverStatus(record.Status),
		ConversationSummary: record.ConversationSummary,
		CreatedAt:           record.CreatedAt,
	}
}
