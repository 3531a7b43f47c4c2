package mailroom

import (
	"context"
	"net/http"
	"strings"

	"github.com/copp1723/final-offerlogix-sub004/command"
	"github.com/copp1723/final-offerlogix-sub004/conversation"
	"github.com/copp1723/final-offerlogix-sub004/core"
	"github.com/copp1723/final-offerlogix-sub004/handover"
	"github.com/copp1723/final-offerlogix-sub004/outbound"
	"github.com/copp1723/final-offerlogix-sub004/respond"
	"github.com/copp1723/final-offerlogix-sub004/sweep"
	"github.com/copp1723/final-offerlogix-sub004/webhook"
)

// Dependencies are the collaborators the pipeline is assembled from. Stores
// usually come from a sqlstore.RepositoryFactory; identity resolution, reply
// generation, summarization, and the email transport are owned by the caller.
type Dependencies struct {
	Config core.Config

	Logger  core.Logger
	Metrics core.MetricsRecorder

	Conversations core.ConversationStore
	Messages      core.MessageStore
	Events        core.WebhookEventStore
	Handovers     core.HandoverStore

	Identities core.IdentityResolver
	Generator  core.ResponseGenerator
	Summarizer core.SummaryGenerator
	Transport  core.EmailTransport
	Notifier   core.HandoverNotifier
}

// Pipeline is the assembled inbound-email system: webhook ingestion through
// response, handover, and outbound dispatch, plus the recovery sweep.
type Pipeline struct {
	config   core.Config
	observer core.Observer

	processor   *webhook.Processor
	httpHandler *webhook.HTTPHandler
	service     *conversation.Service
	coordinator *handover.Coordinator
	dispatcher  *outbound.Dispatcher
	sweeper     *sweep.Sweeper

	conversations core.ConversationStore
}

func New(deps Dependencies) (*Pipeline, error) {
	if deps.Conversations == nil || deps.Messages == nil || deps.Events == nil || deps.Handovers == nil {
		return nil, facadeConfigError("mailroom: conversation, message, event, and handover stores are required")
	}
	if deps.Identities == nil {
		return nil, facadeConfigError("mailroom: identity resolver is required")
	}
	if deps.Transport == nil {
		return nil, facadeConfigError("mailroom: email transport is required")
	}
	if strings.TrimSpace(deps.Config.Signing.Key) == "" {
		return nil, facadeConfigError("mailroom: signing key is required")
	}

	observer := core.Observer{
		Logger:  core.ResolveLogger(deps.Config.ServiceName, nil, deps.Logger),
		Metrics: deps.Metrics,
	}

	verifier := webhook.NewSignatureVerifier(deps.Config.Signing.Key)
	verifier.ReplayWindow = deps.Config.Signing.ReplayWindow()

	dispatcher := outbound.NewDispatcher(deps.Transport, deps.Messages, deps.Config.Outbound)
	dispatcher.Observer = observer

	orchestrator := respond.NewOrchestrator(deps.Generator, deps.Config.Respond)
	orchestrator.Observer = observer

	coordinator := handover.NewCoordinator(deps.Handovers, deps.Conversations, deps.Messages, deps.Summarizer)
	coordinator.Notifier = deps.Notifier
	coordinator.Observer = observer

	resolver := conversation.NewResolver(deps.Conversations, deps.Messages)

	service := conversation.NewService(
		deps.Identities,
		resolver,
		deps.Conversations,
		deps.Messages,
		orchestrator,
		coordinator,
		dispatcher,
	)
	service.Observer = observer

	processor := webhook.NewProcessor(verifier, deps.Events, deps.Messages, service)
	processor.Extract = webhook.Extractor{Logger: observer.Logger}
	processor.Observer = observer

	sweeper := sweep.NewSweeper(deps.Events, processor, deps.Config.Recovery)
	sweeper.Observer = observer

	return &Pipeline{
		config:        deps.Config,
		observer:      observer,
		processor:     processor,
		httpHandler:   webhook.NewHTTPHandler(processor),
		service:       service,
		coordinator:   coordinator,
		dispatcher:    dispatcher,
		sweeper:       sweeper,
		conversations: deps.Conversations,
	}, nil
}

// ProcessInbound runs one webhook delivery through the full pipeline.
func (p *Pipeline) ProcessInbound(ctx context.Context, fields map[string]string) (webhook.Result, error) {
	if p == nil || p.processor == nil {
		return webhook.Result{}, facadeConfigError("mailroom: pipeline is not assembled")
	}
	return p.processor.Process(ctx, fields)
}

// RecoverStuckEvents runs one recovery sweep pass.
func (p *Pipeline) RecoverStuckEvents(ctx context.Context) (sweep.Report, error) {
	if p == nil || p.sweeper == nil {
		return sweep.Report{}, facadeConfigError("mailroom: pipeline is not assembled")
	}
	return p.sweeper.Run(ctx)
}

// TriggerManualHandover escalates a conversation to a human outside the
// automated decision path.
func (p *Pipeline) TriggerManualHandover(ctx context.Context, conversationID string, reason string) (core.Handover, error) {
	if p == nil || p.coordinator == nil {
		return core.Handover{}, facadeConfigError("mailroom: pipeline is not assembled")
	}
	conv, err := p.conversations.Get(ctx, conversationID)
	if err != nil {
		return core.Handover{}, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "manually requested by agent"
	}
	return p.coordinator.Trigger(ctx, conv, reason)
}

// HTTPHandler returns the provider-facing webhook endpoint.
func (p *Pipeline) HTTPHandler() http.Handler {
	if p == nil {
		return nil
	}
	return p.httpHandler
}

// Sweeper exposes the recovery sweeper for schedulers.
func (p *Pipeline) Sweeper() *sweep.Sweeper {
	if p == nil {
		return nil
	}
	return p.sweeper
}

var _ command.PipelineService = (*Pipeline)(nil)
