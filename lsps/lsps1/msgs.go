// Package lsps1 implements the LSPS1 channel purchase service
package lsps1

import (
	"time"

	"github.com/flokiorg/lspd/lsps/common"
	"github.com/flokiorg/lspd/lsps/validate"
)

// Method names for LSPS1
const (
	MethodGetInfo     = "lsps1.get_info"
	MethodCreateOrder = "lsps1.create_order"
	MethodGetOrder    = "lsps1.get_order"
)

// Options represents the order limits advertised in get_info. The json names
// double as the limit identifiers reported in option mismatch errors.
type Options struct {
	MinRequiredChannelConfirmations uint32        `json:"min_required_channel_confirmations"`
	MinFundingConfirmsWithinBlocks  uint32        `json:"min_funding_confirms_within_blocks"`
	SupportsZeroChannelReserve      bool          `json:"supports_zero_channel_reserve"`
	MaxChannelExpiryBlocks          uint32        `json:"max_channel_expiry_blocks"`
	MinInitialClientBalanceSat      common.Amount `json:"min_initial_client_balance_sat"`
	MaxInitialClientBalanceSat      common.Amount `json:"max_initial_client_balance_sat"`
	MinInitialLspBalanceSat         common.Amount `json:"min_initial_lsp_balance_sat"`
	MaxInitialLspBalanceSat         common.Amount `json:"max_initial_lsp_balance_sat"`
	MinChannelBalanceSat            common.Amount `json:"min_channel_balance_sat"`
	MaxChannelBalanceSat            common.Amount `json:"max_channel_balance_sat"`
}

// GetInfoResponse contains the advertised options
type GetInfoResponse struct {
	Website string  `json:"website,omitempty"`
	Options Options `json:"options"`
}

// CreateOrderRequest requests a channel purchase
type CreateOrderRequest struct {
	LspBalanceSat                common.Amount `json:"lsp_balance_sat"`
	ClientBalanceSat             common.Amount `json:"client_balance_sat"`
	FundingConfirmsWithinBlocks  uint32        `json:"funding_confirms_within_blocks"`
	RequiredChannelConfirmations uint32        `json:"required_channel_confirmations"`
	ChannelExpiryBlocks          uint32        `json:"channel_expiry_blocks"`
	AnnounceChannel              bool          `json:"announce_channel"`
	Token                        *string       `json:"token,omitempty"`
	RefundOnchainAddress         *string       `json:"refund_onchain_address,omitempty"`
}

// GetOrderRequest requests the current snapshot of an order
type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

// PaymentView is the payment section of an order response
type PaymentView struct {
	State         string        `json:"state"`
	FeeTotalSat   common.Amount `json:"fee_total_sat"`
	OrderTotalSat common.Amount `json:"order_total_sat"`
	Bolt11Invoice string        `json:"bolt11_invoice"`
}

// ChannelView is the channel section of an order response, present once the
// channel is funded
type ChannelView struct {
	FundedAt        time.Time `json:"funded_at"`
	FundingOutpoint string    `json:"funding_outpoint"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// OrderView is the order response returned by create_order and get_order
type OrderView struct {
	OrderID                      string        `json:"order_id"`
	LspBalanceSat                common.Amount `json:"lsp_balance_sat"`
	ClientBalanceSat             common.Amount `json:"client_balance_sat"`
	FundingConfirmsWithinBlocks  uint32        `json:"funding_confirms_within_blocks"`
	RequiredChannelConfirmations uint32        `json:"required_channel_confirmations"`
	ChannelExpiryBlocks          uint32        `json:"channel_expiry_blocks"`
	AnnounceChannel              bool          `json:"announce_channel"`
	Token                        string        `json:"token"`
	CreatedAt                    time.Time     `json:"created_at"`
	ExpiresAt                    time.Time     `json:"expires_at"`
	OrderState                   string        `json:"order_state"`
	Payment                      PaymentView   `json:"payment"`
	Channel                      *ChannelView  `json:"channel,omitempty"`
}

// GetInfoSchema accepts no params.
var GetInfoSchema = &validate.Schema{}

// CreateOrderSchema validates create_order params. Field order matches the
// order violations are reported in.
var CreateOrderSchema = &validate.Schema{
	Fields: []validate.Field{
		{Name: "lsp_balance_sat", Kind: validate.KindSatAmount, Required: true},
		{Name: "client_balance_sat", Kind: validate.KindSatAmount, Required: true},
		{Name: "funding_confirms_within_blocks", Kind: validate.KindUint, Required: true, Bits: 32},
		{Name: "required_channel_confirmations", Kind: validate.KindUint, Required: true, Bits: 32},
		{Name: "channel_expiry_blocks", Kind: validate.KindUint, Required: true, Bits: 32},
		{Name: "announce_channel", Kind: validate.KindBool, Required: true},
		{Name: "token", Kind: validate.KindString, Required: false},
		{Name: "refund_onchain_address", Kind: validate.KindString, Required: false},
	},
}

// GetOrderSchema validates get_order params.
var GetOrderSchema = &validate.Schema{
	Fields: []validate.Field{
		{Name: "order_id", Kind: validate.KindString, Required: true},
	},
}
