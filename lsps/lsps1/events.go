package lsps1

import "github.com/flokiorg/lspd/lsps/events"

const (
	EventTypeOrderCreated   = "lsps1_order_created"
	EventTypeOrderPaid      = "lsps1_order_paid"
	EventTypeOrderCompleted = "lsps1_order_completed"
	EventTypeOrderFailed    = "lsps1_order_failed"
)

type OrderCreatedEvent struct {
	OrderID       string
	ClientPubkey  string
	LspBalanceSat uint64
	OrderTotalSat uint64
}

func (e *OrderCreatedEvent) EventType() string {
	return EventTypeOrderCreated
}

type OrderPaidEvent struct {
	OrderID      string
	ClientPubkey string
	PaymentHash  string
}

func (e *OrderPaidEvent) EventType() string {
	return EventTypeOrderPaid
}

type OrderCompletedEvent struct {
	OrderID         string
	ClientPubkey    string
	FundingOutpoint string
}

func (e *OrderCompletedEvent) EventType() string {
	return EventTypeOrderCompleted
}

type OrderFailedEvent struct {
	OrderID      string
	ClientPubkey string
	Reason       string
}

func (e *OrderFailedEvent) EventType() string {
	return EventTypeOrderFailed
}

// Ensure events implement Event interface
var _ events.Event = (*OrderCreatedEvent)(nil)
var _ events.Event = (*OrderPaidEvent)(nil)
var _ events.Event = (*OrderCompletedEvent)(nil)
var _ events.Event = (*OrderFailedEvent)(nil)
