package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

const (
	defaultExchange    = "mailroom.events"
	handoverRoutingKey = "mailroom.handover.created"
)

// HandoverEvent is the wire envelope published when a conversation is handed
// to a human.
type HandoverEvent struct {
	Meta         EventMeta         `json:"meta"`
	Conversation ConversationBrief `json:"conversation"`
	Handover     HandoverBrief     `json:"handover"`
}

type EventMeta struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ConversationBrief struct {
	ID         string `json:"id"`
	AgentID    string `json:"agent_id"`
	LeadID     string `json:"lead_id"`
	CampaignID string `json:"campaign_id,omitempty"`
	ThreadID   string `json:"thread_id"`
}

type HandoverBrief struct {
	ID            string `json:"id"`
	TriggerType   string `json:"trigger_type"`
	TriggerDetail string `json:"trigger_detail"`
	Summary       string `json:"summary"`
}

// AMQPNotifier publishes handover events to a topic exchange so downstream
// consumers (CRM, dashboards, alerting) learn about escalations without the
// pipeline knowing who they are.
type AMQPNotifier struct {
	conn     *amqp091.Connection
	exchange string
	logger   core.Logger
}

func NewAMQPNotifier(url string, exchange string, logger core.Logger) (*AMQPNotifier, error) {
	if exchange == "" {
		exchange = defaultExchange
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, err
	}

	return &AMQPNotifier{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (n *AMQPNotifier) NotifyHandover(ctx context.Context, conversation core.Conversation, handover core.Handover) error {
	ch, err := n.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	event := HandoverEvent{
		Meta: EventMeta{
			ID:         uuid.NewString(),
			OccurredAt: time.Now().UTC(),
		},
		Conversation: ConversationBrief{
			ID:         conversation.ID,
			AgentID:    conversation.AgentID,
			LeadID:     conversation.LeadID,
			CampaignID: conversation.CampaignID,
			ThreadID:   conversation.ThreadID,
		},
		Handover: HandoverBrief{
			ID:            handover.ID,
			TriggerType:   string(handover.TriggerType),
			TriggerDetail: handover.TriggerDetail,
			Summary:       handover.ConversationSummary,
		},
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, n.exchange, handoverRoutingKey, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     event.Meta.ID,
			CorrelationId: handover.ID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err == nil && n.logger != nil {
		n.logger.Info("notify: handover event published",
			"exchange", n.exchange,
			"routing_key", handoverRoutingKey,
			"handover_id", handover.ID,
		)
	}
	return err
}

func (n *AMQPNotifier) Close() error {
	return n.conn.Close()
}

var _ core.HandoverNotifier = (*AMQPNotifier)(nil)
