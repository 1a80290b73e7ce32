package lsps1

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flokiorg/lspd/constants"
	"github.com/flokiorg/lspd/lnclient"
	"github.com/flokiorg/lspd/lsps/events"
	"github.com/flokiorg/lspd/lsps/persist"
)

func setupTracker(t *testing.T) (*Tracker, *persist.OrderStore, *persist.GormKVStore, *mockLNClient) {
	t.Helper()
	db := setupTestDB(t)
	store := persist.NewOrderStore(db)
	kv := persist.NewGormKVStore(db)
	mock := newMockLNClient()

	tracker := NewTracker(&TrackerConfig{
		Store:              store,
		KV:                 kv,
		LNClient:           mock,
		ChannelOpenTimeout: time.Minute,
		EventQueue:         events.NewEventQueue(10),
		Locks:              newOrderLocks(),
	})
	return tracker, store, kv, mock
}

func storeTestOrder(t *testing.T, store *persist.OrderStore, orderID string) *persist.Order {
	t.Helper()
	order := &persist.Order{
		OrderID:                      orderID,
		ClientPubkey:                 "03client",
		LspBalanceSat:                100_000,
		ClientBalanceSat:             50_000,
		FundingConfirmsWithinBlocks:  6,
		RequiredChannelConfirmations: 6,
		ChannelExpiryBlocks:          144,
		OrderState:                   constants.ORDER_STATE_CREATED,
		PaymentState:                 constants.PAYMENT_STATE_EXPECT_PAYMENT,
		FeeTotalSat:                  3009,
		OrderTotalSat:                53_009,
		PaymentHash:                  "hash_" + orderID,
		Preimage:                     "preimage_" + orderID,
		ExpiresAt:                    time.Now().Add(6 * time.Hour),
	}
	require.NoError(t, store.Create(order))
	return order
}

func TestInvoiceAcceptedCompletesOrder(t *testing.T) {
	tracker, store, kv, mock := setupTracker(t)
	order := storeTestOrder(t, store, "order-1")

	tracker.handleInvoiceAccepted(context.Background(), lnclient.InvoiceAccepted{
		PaymentHash: order.PaymentHash,
		AmountMsat:  53_009_000,
	})

	got, err := store.Get("order-1")
	require.NoError(t, err)
	assert.Equal(t, constants.ORDER_STATE_COMPLETED, got.OrderState)
	assert.Equal(t, constants.PAYMENT_STATE_PAID, got.PaymentState)
	assert.Equal(t, "deadbeef:1", got.FundingOutpoint)
	require.NotNil(t, got.FundedAt)

	// Channel opened with the purchased balances
	opens := mock.channelOpens()
	require.Len(t, opens, 1)
	assert.Equal(t, "03client", opens[0].Pubkey)
	assert.Equal(t, uint64(150_000), opens[0].CapacitySat)
	assert.Equal(t, uint64(50_000), opens[0].PushSat)
	assert.False(t, opens[0].Announce)

	// Payment settled with the order preimage
	assert.Equal(t, []string{order.Preimage}, mock.settledPreimages())
	assert.Empty(t, mock.cancelledHashes())

	// Breadcrumb cleared
	val, err := kv.Read(pendingOpenKeyPrefix + "order-1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestInvoiceAcceptedOpenFailureRefunds(t *testing.T) {
	tracker, store, kv, mock := setupTracker(t)
	order := storeTestOrder(t, store, "order-1")
	mock.openErr = errors.New("peer not connected")

	tracker.handleInvoiceAccepted(context.Background(), lnclient.InvoiceAccepted{
		PaymentHash: order.PaymentHash,
	})

	got, err := store.Get("order-1")
	require.NoError(t, err)
	assert.Equal(t, constants.ORDER_STATE_FAILED, got.OrderState)
	assert.Equal(t, constants.PAYMENT_STATE_REFUNDED, got.PaymentState)
	assert.Empty(t, got.FundingOutpoint)

	assert.Equal(t, []string{order.PaymentHash}, mock.cancelledHashes())
	assert.Empty(t, mock.settledPreimages())

	val, err := kv.Read(pendingOpenKeyPrefix + "order-1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestInvoiceAcceptedUnknownHashIgnored(t *testing.T) {
	tracker, _, _, mock := setupTracker(t)

	tracker.handleInvoiceAccepted(context.Background(), lnclient.InvoiceAccepted{
		PaymentHash: "not_an_order",
	})

	assert.Empty(t, mock.channelOpens())
	assert.Empty(t, mock.settledPreimages())
	assert.Empty(t, mock.cancelledHashes())
}

func TestInvoiceAcceptedDuplicateIgnored(t *testing.T) {
	tracker, store, _, mock := setupTracker(t)
	order := storeTestOrder(t, store, "order-1")

	tracker.handleInvoiceAccepted(context.Background(), lnclient.InvoiceAccepted{
		PaymentHash: order.PaymentHash,
	})
	require.Len(t, mock.channelOpens(), 1)

	// A second acceptance for the same order must not reopen the channel
	tracker.handleInvoiceAccepted(context.Background(), lnclient.InvoiceAccepted{
		PaymentHash: order.PaymentHash,
	})
	assert.Len(t, mock.channelOpens(), 1)
	assert.Len(t, mock.settledPreimages(), 1)
}

func TestInvoiceAcceptedAfterFailureIgnored(t *testing.T) {
	tracker, store, _, mock := setupTracker(t)
	order := storeTestOrder(t, store, "order-1")
	require.NoError(t, store.MarkFailed("order-1", false))

	tracker.handleInvoiceAccepted(context.Background(), lnclient.InvoiceAccepted{
		PaymentHash: order.PaymentHash,
	})

	assert.Empty(t, mock.channelOpens())
}

func TestRecoverInFlightRefunds(t *testing.T) {
	tracker, store, _, mock := setupTracker(t)
	order := storeTestOrder(t, store, "order-1")
	require.NoError(t, store.MarkPaid("order-1"))

	// A completed order must be left alone
	completed := storeTestOrder(t, store, "order-2")
	require.NoError(t, store.MarkPaid("order-2"))
	require.NoError(t, store.MarkCompleted("order-2", "feed:0", time.Now()))

	require.NoError(t, tracker.recoverInFlight(context.Background()))

	got, err := store.Get("order-1")
	require.NoError(t, err)
	assert.Equal(t, constants.ORDER_STATE_FAILED, got.OrderState)
	assert.Equal(t, constants.PAYMENT_STATE_REFUNDED, got.PaymentState)
	assert.Equal(t, []string{order.PaymentHash}, mock.cancelledHashes())

	got, err = store.Get("order-2")
	require.NoError(t, err)
	assert.Equal(t, constants.ORDER_STATE_COMPLETED, got.OrderState)
	_ = completed
}

func TestRecoverInFlightNothingToDo(t *testing.T) {
	tracker, store, _, mock := setupTracker(t)
	storeTestOrder(t, store, "order-1")

	require.NoError(t, tracker.recoverInFlight(context.Background()))

	assert.Empty(t, mock.cancelledHashes())
	got, err := store.Get("order-1")
	require.NoError(t, err)
	assert.Equal(t, constants.ORDER_STATE_CREATED, got.OrderState)
}

func TestRefundCancelFailureKeepsOrderPaid(t *testing.T) {
	tracker, store, _, mock := setupTracker(t)
	order := storeTestOrder(t, store, "order-1")
	mock.openErr = errors.New("open failed")
	mock.cancelErr = errors.New("node unavailable")

	tracker.handleInvoiceAccepted(context.Background(), lnclient.InvoiceAccepted{
		PaymentHash: order.PaymentHash,
	})

	// Refund could not run; the order stays PAID for recovery to retry.
	got, err := store.Get("order-1")
	require.NoError(t, err)
	assert.Equal(t, constants.ORDER_STATE_CREATED, got.OrderState)
	assert.Equal(t, constants.PAYMENT_STATE_PAID, got.PaymentState)
}

func TestGetOrderRespondsWhileChannelOpenInFlight(t *testing.T) {
	db := setupTestDB(t)
	store := persist.NewOrderStore(db)
	mock := newMockLNClient()
	mock.openGate = make(chan struct{})

	svc := NewOrderService(&OrderServiceConfig{
		Store:                       store,
		LNClient:                    mock,
		Limits:                      testLimits(),
		Website:                     "https://lsp.example.com",
		MinimumChannelConfirmations: 6,
		Fees:                        NewFeeCalculator(testSchedule()),
		OrderLifetime:               6 * time.Hour,
		EventQueue:                  events.NewEventQueue(10),
	})
	tracker := NewTracker(&TrackerConfig{
		Store:              store,
		KV:                 persist.NewGormKVStore(db),
		LNClient:           mock,
		ChannelOpenTimeout: time.Minute,
		EventQueue:         events.NewEventQueue(10),
		Locks:              svc.Locks(),
	})

	order := storeTestOrder(t, store, "order-1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		tracker.handleInvoiceAccepted(context.Background(), lnclient.InvoiceAccepted{
			PaymentHash: order.PaymentHash,
			AmountMsat:  53_009_000,
		})
	}()

	require.Eventually(t, func() bool {
		return len(mock.channelOpens()) == 1
	}, time.Second, 5*time.Millisecond)

	raw, err := json.Marshal(&GetOrderRequest{OrderID: order.OrderID})
	require.NoError(t, err)

	// The order lock must not be held across the open wait, so get_order
	// answers immediately with the PAID snapshot.
	got := make(chan *OrderView, 1)
	go func() {
		result, rpcErr := svc.handleGetOrder(context.Background(), "03client", raw)
		require.Nil(t, rpcErr)
		view, ok := result.(*OrderView)
		require.True(t, ok)
		got <- view
	}()

	select {
	case view := <-got:
		assert.Equal(t, constants.ORDER_STATE_CREATED, view.OrderState)
		assert.Equal(t, constants.PAYMENT_STATE_PAID, view.Payment.State)
	case <-time.After(time.Second):
		t.Fatal("get_order did not respond while the channel open was in flight")
	}

	close(mock.openGate)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("channel open did not finish after the gate was released")
	}

	final, err := store.Get(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, constants.ORDER_STATE_COMPLETED, final.OrderState)
	assert.Equal(t, []string{order.Preimage}, mock.settledPreimages())
}
