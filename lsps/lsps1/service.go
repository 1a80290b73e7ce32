package lsps1

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flokiorg/lspd/config"
	"github.com/flokiorg/lspd/constants"
	"github.com/flokiorg/lspd/lnclient"
	"github.com/flokiorg/lspd/logger"
	"github.com/flokiorg/lspd/lsps/common"
	"github.com/flokiorg/lspd/lsps/events"
	"github.com/flokiorg/lspd/lsps/persist"
	"github.com/flokiorg/lspd/lsps/server"
)

// OrderService answers LSPS1 get_info, create_order and get_order requests.
type OrderService struct {
	store      *persist.OrderStore
	lnClient   lnclient.LNClient
	limits     *config.Limits
	website    string
	minConfs   uint32
	zeroReserve bool
	fees       *FeeCalculator
	lifetime   time.Duration
	eventQueue *events.EventQueue
	locks      *orderLocks
}

type OrderServiceConfig struct {
	Store                      *persist.OrderStore
	LNClient                   lnclient.LNClient
	Limits                     *config.Limits
	Website                    string
	MinimumChannelConfirmations uint32
	SupportsZeroChannelReserve bool
	Fees                       *FeeCalculator
	OrderLifetime              time.Duration
	EventQueue                 *events.EventQueue
}

func NewOrderService(cfg *OrderServiceConfig) *OrderService {
	return &OrderService{
		store:       cfg.Store,
		lnClient:    cfg.LNClient,
		limits:      cfg.Limits,
		website:     cfg.Website,
		minConfs:    cfg.MinimumChannelConfirmations,
		zeroReserve: cfg.SupportsZeroChannelReserve,
		fees:        cfg.Fees,
		lifetime:    cfg.OrderLifetime,
		eventQueue:  cfg.EventQueue,
		locks:       newOrderLocks(),
	}
}

// Register attaches the LSPS1 methods to the server.
func (s *OrderService) Register(srv *server.Server) {
	srv.Register(MethodGetInfo, GetInfoSchema, s.handleGetInfo)
	srv.Register(MethodCreateOrder, CreateOrderSchema, s.handleCreateOrder)
	srv.Register(MethodGetOrder, GetOrderSchema, s.handleGetOrder)
}

func (s *OrderService) options() Options {
	return Options{
		MinRequiredChannelConfirmations: s.minConfs,
		MinFundingConfirmsWithinBlocks:  s.minConfs,
		SupportsZeroChannelReserve:      s.zeroReserve,
		MaxChannelExpiryBlocks:          s.limits.MaxChannelExpiryBlocks,
		MinInitialClientBalanceSat:      common.Amount(s.limits.MinInitialClientBalanceSat),
		MaxInitialClientBalanceSat:      common.Amount(s.limits.MaxInitialClientBalanceSat),
		MinInitialLspBalanceSat:         common.Amount(s.limits.MinInitialLspBalanceSat),
		MaxInitialLspBalanceSat:         common.Amount(s.limits.MaxInitialLspBalanceSat),
		MinChannelBalanceSat:            common.Amount(s.limits.MinChannelBalanceSat),
		MaxChannelBalanceSat:            common.Amount(s.limits.MaxChannelBalanceSat),
	}
}

func (s *OrderService) handleGetInfo(ctx context.Context, peerPubkey string, params json.RawMessage) (interface{}, *common.JsonRpcError) {
	return &GetInfoResponse{
		Website: s.website,
		Options: s.options(),
	}, nil
}

// validateOptions checks the order against the advertised limits. The check
// order is fixed; the first violated limit is the one reported.
func (s *OrderService) validateOptions(req *CreateOrderRequest) *common.JsonRpcError {
	clientBalance := uint64(req.ClientBalanceSat)
	lspBalance := uint64(req.LspBalanceSat)
	capacity := clientBalance + lspBalance

	if clientBalance < s.limits.MinInitialClientBalanceSat {
		return common.NewOptionMismatchError("min_initial_client_balance_sat")
	}
	if clientBalance > s.limits.MaxInitialClientBalanceSat {
		return common.NewOptionMismatchError("max_initial_client_balance_sat")
	}
	if lspBalance < s.limits.MinInitialLspBalanceSat {
		return common.NewOptionMismatchError("min_initial_lsp_balance_sat")
	}
	if lspBalance > s.limits.MaxInitialLspBalanceSat {
		return common.NewOptionMismatchError("max_initial_lsp_balance_sat")
	}
	if capacity < s.limits.MinChannelBalanceSat {
		return common.NewOptionMismatchError("min_channel_balance_sat")
	}
	if capacity > s.limits.MaxChannelBalanceSat {
		return common.NewOptionMismatchError("max_channel_balance_sat")
	}
	if req.ChannelExpiryBlocks > s.limits.MaxChannelExpiryBlocks {
		return common.NewOptionMismatchError("max_channel_expiry_blocks")
	}
	return nil
}

func (s *OrderService) handleCreateOrder(ctx context.Context, peerPubkey string, params json.RawMessage) (interface{}, *common.JsonRpcError) {
	var req CreateOrderRequest
	if err := json.Unmarshal(params, &req); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to unmarshal validated create_order params")
		return nil, common.NewInternalError()
	}

	if rpcErr := s.validateOptions(&req); rpcErr != nil {
		logger.Logger.Info().
			Str("peer_pubkey", peerPubkey).
			Str("property", string(rpcErr.Data)).
			Msg("Rejecting order outside advertised limits")
		return nil, rpcErr
	}

	orderID := uuid.NewString()
	preimage, paymentHash, err := newPreimage()
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to generate preimage")
		return nil, common.NewInternalError()
	}

	feeTotal := s.fees.FeeTotalSat(uint64(req.LspBalanceSat)+uint64(req.ClientBalanceSat), req.ChannelExpiryBlocks)
	orderTotal := s.fees.OrderTotalSat(feeTotal, uint64(req.ClientBalanceSat))

	label := invoiceLabel(orderID)
	transaction, err := s.lnClient.MakeHoldInvoice(
		ctx,
		int64(orderTotal)*1000,
		label,
		int64(s.lifetime.Seconds()),
		paymentHash,
	)
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("order_id", orderID).
			Msg("Failed to create hold invoice for order")
		return nil, common.NewInternalError()
	}

	now := time.Now().UTC()
	order := &persist.Order{
		OrderID:                      orderID,
		ClientPubkey:                 peerPubkey,
		LspBalanceSat:                uint64(req.LspBalanceSat),
		ClientBalanceSat:             uint64(req.ClientBalanceSat),
		FundingConfirmsWithinBlocks:  req.FundingConfirmsWithinBlocks,
		RequiredChannelConfirmations: req.RequiredChannelConfirmations,
		ChannelExpiryBlocks:          req.ChannelExpiryBlocks,
		AnnounceChannel:              req.AnnounceChannel,
		OrderState:                   constants.ORDER_STATE_CREATED,
		PaymentState:                 constants.PAYMENT_STATE_EXPECT_PAYMENT,
		FeeTotalSat:                  feeTotal,
		OrderTotalSat:                orderTotal,
		Bolt11Invoice:                transaction.Invoice,
		InvoiceLabel:                 label,
		PaymentHash:                  paymentHash,
		Preimage:                     preimage,
		CreatedAt:                    now,
		ExpiresAt:                    now.Add(s.lifetime),
	}
	if req.Token != nil {
		order.Token = *req.Token
	}
	if req.RefundOnchainAddress != nil {
		order.RefundOnchainAddress = *req.RefundOnchainAddress
	}

	if err := s.store.Create(order); err != nil {
		logger.Logger.Error().Err(err).
			Str("order_id", orderID).
			Msg("Failed to persist order")
		// The invoice is unpaid; cancel it so the client cannot pay for
		// an order we have no record of.
		if cancelErr := s.lnClient.CancelHoldInvoice(ctx, paymentHash); cancelErr != nil {
			logger.Logger.Error().Err(cancelErr).
				Str("order_id", orderID).
				Msg("Failed to cancel orphaned hold invoice")
		}
		return nil, common.NewInternalError()
	}

	logger.Logger.Info().
		Str("order_id", orderID).
		Str("peer_pubkey", peerPubkey).
		Uint64("lsp_balance_sat", order.LspBalanceSat).
		Uint64("client_balance_sat", order.ClientBalanceSat).
		Uint64("order_total_sat", orderTotal).
		Msg("Order created")

	s.eventQueue.Enqueue(&OrderCreatedEvent{
		OrderID:       orderID,
		ClientPubkey:  peerPubkey,
		LspBalanceSat: order.LspBalanceSat,
		OrderTotalSat: orderTotal,
	})

	return orderView(order), nil
}

func (s *OrderService) handleGetOrder(ctx context.Context, peerPubkey string, params json.RawMessage) (interface{}, *common.JsonRpcError) {
	var req GetOrderRequest
	if err := json.Unmarshal(params, &req); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to unmarshal validated get_order params")
		return nil, common.NewInternalError()
	}

	// Snapshot under the order lock so a concurrent transition cannot
	// produce a half-updated view.
	unlock := s.locks.lock(req.OrderID)
	defer unlock()

	order, err := s.store.Get(req.OrderID)
	if err != nil {
		if err == persist.ErrOrderNotFound {
			return nil, common.NewNotFoundError()
		}
		logger.Logger.Error().Err(err).
			Str("order_id", req.OrderID).
			Msg("Failed to read order")
		return nil, common.NewInternalError()
	}

	return orderView(order), nil
}

// Locks exposes the per-order lock map so the tracker serializes against
// request handling.
func (s *OrderService) Locks() *orderLocks {
	return s.locks
}

func invoiceLabel(orderID string) string {
	return fmt.Sprintf("lsps1_%s", orderID)
}

func newPreimage() (preimage, paymentHash string, err error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", "", err
	}
	hash := sha256.Sum256(raw[:])
	return hex.EncodeToString(raw[:]), hex.EncodeToString(hash[:]), nil
}

// orderView builds the wire representation of an order.
func orderView(order *persist.Order) *OrderView {
	view := &OrderView{
		OrderID:                      order.OrderID,
		LspBalanceSat:                common.Amount(order.LspBalanceSat),
		ClientBalanceSat:             common.Amount(order.ClientBalanceSat),
		FundingConfirmsWithinBlocks:  order.FundingConfirmsWithinBlocks,
		RequiredChannelConfirmations: order.RequiredChannelConfirmations,
		ChannelExpiryBlocks:          order.ChannelExpiryBlocks,
		AnnounceChannel:              order.AnnounceChannel,
		Token:                        order.Token,
		CreatedAt:                    order.CreatedAt,
		ExpiresAt:                    order.ExpiresAt,
		OrderState:                   order.OrderState,
		Payment: PaymentView{
			State:         order.PaymentState,
			FeeTotalSat:   common.Amount(order.FeeTotalSat),
			OrderTotalSat: common.Amount(order.OrderTotalSat),
			Bolt11Invoice: order.Bolt11Invoice,
		},
	}

	if order.FundingOutpoint != "" && order.FundedAt != nil {
		view.Channel = &ChannelView{
			FundedAt:        *order.FundedAt,
			FundingOutpoint: order.FundingOutpoint,
			// 10 minute block target
			ExpiresAt: order.FundedAt.Add(time.Duration(order.ChannelExpiryBlocks) * 10 * time.Minute),
		}
	}

	return view
}
