package lsps1

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flokiorg/lspd/constants"
	"github.com/flokiorg/lspd/lnclient"
	"github.com/flokiorg/lspd/logger"
	"github.com/flokiorg/lspd/lsps/events"
	"github.com/flokiorg/lspd/lsps/persist"
)

const pendingOpenKeyPrefix = "lsps1_pending_open_"

// pendingOpen is the KV breadcrumb written before a channel open starts, so
// a restart can tell which orders were cut off mid-flight.
type pendingOpen struct {
	OrderID   string    `json:"order_id"`
	StartedAt time.Time `json:"started_at"`
}

// Tracker drives paid orders through channel open to completion, and refunds
// them when the open fails.
type Tracker struct {
	store       *persist.OrderStore
	kv          persist.KVStore
	lnClient    lnclient.LNClient
	openTimeout time.Duration
	eventQueue  *events.EventQueue
	locks       *orderLocks
}

type TrackerConfig struct {
	Store              *persist.OrderStore
	KV                 persist.KVStore
	LNClient           lnclient.LNClient
	ChannelOpenTimeout time.Duration
	EventQueue         *events.EventQueue
	Locks              *orderLocks
}

func NewTracker(cfg *TrackerConfig) *Tracker {
	return &Tracker{
		store:       cfg.Store,
		kv:          cfg.KV,
		lnClient:    cfg.LNClient,
		openTimeout: cfg.ChannelOpenTimeout,
		eventQueue:  cfg.EventQueue,
		locks:       cfg.Locks,
	}
}

// Start recovers orders interrupted by a restart, then consumes invoice
// acceptance notifications until ctx is cancelled.
func (t *Tracker) Start(ctx context.Context) error {
	if err := t.recoverInFlight(ctx); err != nil {
		return fmt.Errorf("failed to recover in-flight orders: %w", err)
	}

	go t.processInvoiceEvents(ctx)

	return nil
}

func (t *Tracker) processInvoiceEvents(ctx context.Context) {
	accepted := t.lnClient.SubscribeInvoiceAccepted()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-accepted:
			if !ok {
				return
			}
			go t.handleInvoiceAccepted(ctx, ev)
		}
	}
}

func (t *Tracker) handleInvoiceAccepted(ctx context.Context, ev lnclient.InvoiceAccepted) {
	order, err := t.store.GetByPaymentHash(ev.PaymentHash)
	if err != nil {
		if err == persist.ErrOrderNotFound {
			// Hold invoices can exist for reasons other than orders.
			logger.Logger.Debug().
				Str("payment_hash", ev.PaymentHash).
				Msg("Accepted invoice matches no order")
			return
		}
		logger.Logger.Error().Err(err).
			Str("payment_hash", ev.PaymentHash).
			Msg("Failed to look up order for accepted invoice")
		return
	}

	unlock := t.locks.lock(order.OrderID)

	// Re-read under the lock; another event may have advanced the order.
	order, err = t.store.Get(order.OrderID)
	if err != nil {
		unlock()
		logger.Logger.Error().Err(err).
			Str("order_id", order.OrderID).
			Msg("Failed to re-read order")
		return
	}

	log := logger.Logger.With().
		Str("order_id", order.OrderID).
		Str("peer_pubkey", order.ClientPubkey).
		Logger()

	if order.OrderState != constants.ORDER_STATE_CREATED || order.PaymentState != constants.PAYMENT_STATE_EXPECT_PAYMENT {
		unlock()
		log.Warn().
			Str("order_state", order.OrderState).
			Str("payment_state", order.PaymentState).
			Msg("Ignoring duplicate or late invoice acceptance")
		return
	}

	t.writeBreadcrumb(order.OrderID)

	if err := t.store.MarkPaid(order.OrderID); err != nil {
		unlock()
		log.Error().Err(err).Msg("Failed to mark order paid")
		return
	}
	unlock()
	log.Info().Msg("Order payment held, opening channel")

	t.eventQueue.Enqueue(&OrderPaidEvent{
		OrderID:      order.OrderID,
		ClientPubkey: order.ClientPubkey,
		PaymentHash:  order.PaymentHash,
	})

	t.openChannel(ctx, order)
}

// openChannel opens the purchased channel and settles or refunds the held
// payment depending on the outcome. The open can wait for many blocks, so
// the order lock is taken only around the resulting state transition.
func (t *Tracker) openChannel(ctx context.Context, order *persist.Order) {
	log := logger.Logger.With().
		Str("order_id", order.OrderID).
		Str("peer_pubkey", order.ClientPubkey).
		Logger()

	openCtx, cancel := context.WithTimeout(ctx, t.openDeadline(order))
	defer cancel()

	response, openErr := t.lnClient.OpenChannel(openCtx, &lnclient.OpenChannelRequest{
		Pubkey:      order.ClientPubkey,
		CapacitySat: order.LspBalanceSat + order.ClientBalanceSat,
		PushSat:     order.ClientBalanceSat,
		Announce:    order.AnnounceChannel,
	})

	unlock := t.locks.lock(order.OrderID)
	defer unlock()

	// Re-read: restart recovery may have transitioned the order while the
	// open was in flight.
	order, err := t.store.Get(order.OrderID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to re-read order after channel open")
		return
	}
	if order.OrderState != constants.ORDER_STATE_CREATED || order.PaymentState != constants.PAYMENT_STATE_PAID {
		log.Warn().
			Str("order_state", order.OrderState).
			Str("payment_state", order.PaymentState).
			Msg("Order transitioned while channel open was in flight")
		return
	}

	if openErr != nil {
		log.Error().Err(openErr).Msg("Channel open failed, refunding order")
		t.refund(ctx, order, openErr.Error())
		return
	}

	if err := t.lnClient.SettleHoldInvoice(ctx, order.Preimage); err != nil {
		// The channel is open but the payment is still held. Leave the
		// order PAID so the settle can be retried by recovery.
		log.Error().Err(err).Msg("Failed to settle hold invoice after channel open")
		return
	}

	fundingOutpoint := fmt.Sprintf("%s:%d", response.FundingTxId, response.FundingTxVout)
	if err := t.store.MarkCompleted(order.OrderID, fundingOutpoint, time.Now().UTC()); err != nil {
		log.Error().Err(err).Msg("Failed to mark order completed")
		return
	}
	t.deleteBreadcrumb(order.OrderID)

	log.Info().
		Str("funding_outpoint", fundingOutpoint).
		Msg("Order completed")

	t.eventQueue.Enqueue(&OrderCompletedEvent{
		OrderID:         order.OrderID,
		ClientPubkey:    order.ClientPubkey,
		FundingOutpoint: fundingOutpoint,
	})
}

// openDeadline bounds the channel open wait. Orders asking for funding
// within N blocks get N block intervals; otherwise the configured timeout
// applies.
func (t *Tracker) openDeadline(order *persist.Order) time.Duration {
	if order.FundingConfirmsWithinBlocks > 0 {
		return time.Duration(order.FundingConfirmsWithinBlocks) * 10 * time.Minute
	}
	return t.openTimeout
}

// refund cancels the hold invoice, returning the held payment to the client,
// and fails the order. Must run under the order lock.
func (t *Tracker) refund(ctx context.Context, order *persist.Order, reason string) {
	log := logger.Logger.With().
		Str("order_id", order.OrderID).
		Str("peer_pubkey", order.ClientPubkey).
		Logger()

	if err := t.lnClient.CancelHoldInvoice(ctx, order.PaymentHash); err != nil {
		// Keep the order PAID; recovery will retry the refund.
		log.Error().Err(err).Msg("Failed to cancel hold invoice for refund")
		return
	}

	if err := t.store.MarkFailed(order.OrderID, true); err != nil {
		log.Error().Err(err).Msg("Failed to mark order failed")
		return
	}
	t.deleteBreadcrumb(order.OrderID)

	log.Info().Str("reason", reason).Msg("Order failed, payment refunded")

	t.eventQueue.Enqueue(&OrderFailedEvent{
		OrderID:      order.OrderID,
		ClientPubkey: order.ClientPubkey,
		Reason:       reason,
	})
}

// recoverInFlight refunds orders whose payment was held when the process
// stopped. The channel open outcome is unknown at this point, so the safe
// path is to cancel the held payment and fail the order.
func (t *Tracker) recoverInFlight(ctx context.Context) error {
	orders, err := t.store.ListInFlight()
	if err != nil {
		return err
	}

	for i := range orders {
		order := &orders[i]
		unlock := t.locks.lock(order.OrderID)

		logger.Logger.Warn().
			Str("order_id", order.OrderID).
			Msg("Refunding order interrupted by restart")
		t.refund(ctx, order, "interrupted by restart")

		unlock()
	}

	return nil
}

func (t *Tracker) writeBreadcrumb(orderID string) {
	data, err := json.Marshal(&pendingOpen{
		OrderID:   orderID,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := t.kv.Write(pendingOpenKeyPrefix+orderID, data); err != nil {
		logger.Logger.Error().Err(err).
			Str("order_id", orderID).
			Msg("Failed to write pending open marker")
	}
}

func (t *Tracker) deleteBreadcrumb(orderID string) {
	if err := t.kv.Delete(pendingOpenKeyPrefix + orderID); err != nil {
		logger.Logger.Error().Err(err).
			Str("order_id", orderID).
			Msg("Failed to delete pending open marker")
	}
}
