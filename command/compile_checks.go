package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessInboundMessage] = (*ProcessInboundCommand)(nil)
	_ gocmd.Commander[RecoverEventsMessage]  = (*RecoverEventsCommand)(nil)
	_ gocmd.Commander[ManualHandoverMessage] = (*ManualHandoverCommand)(nil)
)
