package command

import (
	"fmt"
	"strings"
)

const (
	TypeProcessInbound = "mailroom.command.inbound.process"
	TypeRecoverEvents  = "mailroom.command.events.recover"
	TypeManualHandover = "mailroom.command.handover.manual"
)

// ProcessInboundMessage carries the raw provider fields of one webhook
// delivery through the command bus.
type ProcessInboundMessage struct {
	Fields map[string]string
}

func (ProcessInboundMessage) Type() string { return TypeProcessInbound }

func (m ProcessInboundMessage) Validate() error {
	if len(m.Fields) == 0 {
		return fmt.Errorf("command: webhook fields are required")
	}
	return nil
}

// RecoverEventsMessage requests one recovery sweep pass over stuck events.
type RecoverEventsMessage struct{}

func (RecoverEventsMessage) Type() string { return TypeRecoverEvents }

func (RecoverEventsMessage) Validate() error { return nil }

// ManualHandoverMessage escalates a conversation to a human on request.
type ManualHandoverMessage struct {
	ConversationID string
	Reason         string
}

func (ManualHandoverMessage) Type() string { return TypeManualHandover }

func (m ManualHandoverMessage) Validate() error {
	if strings.TrimSpace(m.ConversationID) == "" {
		return fmt.Errorf("command: conversation id is required")
	}
	return nil
}
