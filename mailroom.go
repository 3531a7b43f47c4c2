package mailroom

import "github.com/copp1723/final-offerlogix-sub004/core"

type Config = core.Config

type SigningConfig = core.SigningConfig
type OutboundConfig = core.OutboundConfig
type RespondConfig = core.RespondConfig
type RecoveryConfig = core.RecoveryConfig

type Conversation = core.Conversation
type Message = core.Message
type WebhookEvent = core.WebhookEvent
type Handover = core.Handover
type AgentProfile = core.AgentProfile
type InboundEmail = core.InboundEmail
type Identity = core.Identity

type ConversationStore = core.ConversationStore
type MessageStore = core.MessageStore
type WebhookEventStore = core.WebhookEventStore
type HandoverStore = core.HandoverStore
type IdentityResolver = core.IdentityResolver
type ResponseGenerator = core.ResponseGenerator
type SummaryGenerator = core.SummaryGenerator
type EmailTransport = core.EmailTransport
type HandoverNotifier = core.HandoverNotifier
type MetricsRecorder = core.MetricsRecorder

type Logger = core.Logger
type LoggerProvider = core.LoggerProvider

func DefaultConfig() Config {
	return core.DefaultConfig()
}
