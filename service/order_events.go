package service

import (
	"context"

	"github.com/flokiorg/lspd/logger"
	"github.com/flokiorg/lspd/lsps/lsps1"
)

// consumeEvents drains the order event queue and turns lifecycle transitions
// into operator-facing log lines. Later consumers (webhooks, dashboards) hang
// off the same queue.
func (svc *service) consumeEvents(ctx context.Context) {
	for {
		event, err := svc.eventQueue.NextEvent(ctx)
		if err != nil {
			return
		}

		switch e := event.(type) {
		case *lsps1.OrderCreatedEvent:
			logger.Logger.Info().
				Str("order_id", e.OrderID).
				Str("client", e.ClientPubkey).
				Uint64("lsp_balance_sat", e.LspBalanceSat).
				Uint64("order_total_sat", e.OrderTotalSat).
				Msg("Channel order created")
		case *lsps1.OrderPaidEvent:
			logger.Logger.Info().
				Str("order_id", e.OrderID).
				Str("client", e.ClientPubkey).
				Str("payment_hash", e.PaymentHash).
				Msg("Channel order paid")
		case *lsps1.OrderCompletedEvent:
			logger.Logger.Info().
				Str("order_id", e.OrderID).
				Str("client", e.ClientPubkey).
				Str("channel_point", e.FundingOutpoint).
				Msg("Channel order completed")
		case *lsps1.OrderFailedEvent:
			logger.Logger.Error().
				Str("order_id", e.OrderID).
				Str("client", e.ClientPubkey).
				Str("error", e.Reason).
				Msg("Channel order failed terminal status")
		default:
			logger.Logger.Debug().
				Str("event_type", event.EventType()).
				Msg("Unhandled order event")
		}
	}
}
