package persist

import (
	"time"

	"gorm.io/datatypes"
)

// Order represents a persistent LSPS1 channel order.
type Order struct {
	OrderID      string `gorm:"primaryKey" json:"order_id"`
	ClientPubkey string `gorm:"index" json:"client_pubkey"`

	LspBalanceSat                uint64 `json:"lsp_balance_sat"`
	ClientBalanceSat             uint64 `json:"client_balance_sat"`
	FundingConfirmsWithinBlocks  uint32 `json:"funding_confirms_within_blocks"`
	RequiredChannelConfirmations uint32 `json:"required_channel_confirmations"`
	ChannelExpiryBlocks          uint32 `json:"channel_expiry_blocks"`
	AnnounceChannel              bool   `json:"announce_channel"`
	Token                        string `json:"token"`
	RefundOnchainAddress         string `json:"refund_onchain_address"`

	OrderState   string `gorm:"index" json:"order_state"`
	PaymentState string `json:"payment_state"`

	FeeTotalSat   uint64 `json:"fee_total_sat"`
	OrderTotalSat uint64 `json:"order_total_sat"`

	Bolt11Invoice string `json:"bolt11_invoice"`
	InvoiceLabel  string `json:"invoice_label"`
	PaymentHash   string `gorm:"uniqueIndex" json:"payment_hash"`
	Preimage      string `json:"-"`

	FundingOutpoint string     `json:"funding_outpoint"`
	FundedAt        *time.Time `json:"funded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TableName overrides the table name to 'lsps1_orders'
func (Order) TableName() string {
	return "lsps1_orders"
}

// KVEntry maps to the lsps_states table used for small operational state.
// Values are JSON documents.
type KVEntry struct {
	Key   string `gorm:"primaryKey"`
	Value datatypes.JSON
}

// TableName overrides the table name to 'lsps_states'
func (KVEntry) TableName() string {
	return "lsps_states"
}
