package command

import (
	"context"
	"strings"

	gocmd "github.com/goliatone/go-command"

	"github.com/copp1723/final-offerlogix-sub004/core"
	"github.com/copp1723/final-offerlogix-sub004/sweep"
	"github.com/copp1723/final-offerlogix-sub004/webhook"
)

// PipelineService is the mutating surface the commands delegate to.
type PipelineService interface {
	ProcessInbound(ctx context.Context, fields map[string]string) (webhook.Result, error)
	RecoverStuckEvents(ctx context.Context) (sweep.Report, error)
	TriggerManualHandover(ctx context.Context, conversationID string, reason string) (core.Handover, error)
}

type ProcessInboundCommand struct {
	service PipelineService
}

func NewProcessInboundCommand(service PipelineService) *ProcessInboundCommand {
	return &ProcessInboundCommand{service: service}
}

func (c *ProcessInboundCommand) Execute(ctx context.Context, msg ProcessInboundMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: inbound service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandInvalidInputError(err.Error())
	}
	out, err := c.service.ProcessInbound(ctx, msg.Fields)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RecoverEventsCommand struct {
	service PipelineService
}

func NewRecoverEventsCommand(service PipelineService) *RecoverEventsCommand {
	return &RecoverEventsCommand{service: service}
}

func (c *RecoverEventsCommand) Execute(ctx context.Context, msg RecoverEventsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: recovery service is required")
	}
	out, err := c.service.RecoverStuckEvents(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ManualHandoverCommand struct {
	service PipelineService
}

func NewManualHandoverCommand(service PipelineService) *ManualHandoverCommand {
	return &ManualHandoverCommand{service: service}
}

func (c *ManualHandoverCommand) Execute(ctx context.Context, msg ManualHandoverMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: handover service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandInvalidInputError(err.Error())
	}
	reason := strings.TrimSpace(msg.Reason)
	if reason == "" {
		reason = "manually requested by agent"
	}
	out, err := c.service.TriggerManualHandover(ctx, msg.ConversationID, reason)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
