package lnclient

import (
	"context"
)

const DEFAULT_INVOICE_EXPIRY = 86400

// CustomMessage is a raw peer message received from or sent to the node backend.
type CustomMessage struct {
	PeerPubkey string
	Type       uint32
	Data       []byte
}

// InvoiceAccepted is emitted when an HTLC set for a hold invoice is fully
// accepted and the invoice can be settled or cancelled.
type InvoiceAccepted struct {
	PaymentHash string
	AmountMsat  int64
}

// Transaction describes a lightning invoice known to the node backend.
type Transaction struct {
	Type        string `json:"type"`
	Invoice     string `json:"invoice"`
	Description string `json:"description"`
	Preimage    string `json:"preimage"`
	PaymentHash string `json:"payment_hash"`
	AmountMsat  int64  `json:"amount_msat"`
	CreatedAt   int64  `json:"created_at"`
	ExpiresAt   *int64 `json:"expires_at"`
	SettledAt   *int64 `json:"settled_at"`
}

type OpenChannelRequest struct {
	Pubkey      string
	CapacitySat uint64
	PushSat     uint64
	Announce    bool
}

type OpenChannelResponse struct {
	FundingTxId   string
	FundingTxVout uint32
}

type NodeInfo struct {
	Alias       string
	Color       string
	Pubkey      string
	Network     string
	BlockHeight uint32
	BlockHash   string
}

// LNClient is the interface to the lightning node backend.
type LNClient interface {
	GetPubkey() string
	GetInfo(ctx context.Context) (*NodeInfo, error)
	SendCustomMessage(ctx context.Context, peerPubkey string, msgType uint32, data []byte) error
	SubscribeCustomMessages(ctx context.Context) (<-chan CustomMessage, <-chan error, error)
	MakeHoldInvoice(ctx context.Context, amountMsat int64, description string, expiry int64, paymentHash string) (*Transaction, error)
	SettleHoldInvoice(ctx context.Context, preimage string) error
	CancelHoldInvoice(ctx context.Context, paymentHash string) error
	SubscribeInvoiceAccepted() <-chan InvoiceAccepted
	// OpenChannel funds a channel to an already connected peer and blocks
	// until the channel is confirmed open or ctx expires.
	OpenChannel(ctx context.Context, req *OpenChannelRequest) (*OpenChannelResponse, error)
	Shutdown() error
}
