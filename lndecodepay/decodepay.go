package decodepay

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flokiorg/flnd/zpay32"
	"github.com/flokiorg/go-flokicoin/chaincfg"
	_ "github.com/flokiorg/go-flokicoin/crypto"
)

// Bolt11 is the decoded form of a payment request, trimmed to the fields
// shown alongside an order.
type Bolt11 struct {
	Currency           string `json:"currency"`
	CreatedAt          int64  `json:"created_at"`
	Expiry             int64  `json:"expiry"`
	Payee              string `json:"payee"`
	AmountMsat         int64  `json:"amount_msat"`
	Description        string `json:"description,omitempty"`
	DescriptionHash    string `json:"description_hash,omitempty"`
	PaymentHash        string `json:"payment_hash"`
	MinFinalCLTVExpiry int    `json:"min_final_cltv_expiry"`
}

// Decodepay decodes a bolt11 payment request. The chain is inferred from the
// invoice's human readable prefix, so invoices from any network decode.
func Decodepay(bolt11 string) (Bolt11, error) {
	if len(bolt11) < 2 {
		return Bolt11{}, errors.New("bolt11 too short")
	}

	firstNumber := strings.IndexAny(bolt11, "1234567890")
	if firstNumber < 2 {
		return Bolt11{}, errors.New("invalid bolt11 invoice")
	}

	chainPrefix := strings.ToLower(bolt11[2:firstNumber])
	chain := &chaincfg.Params{
		Bech32HRPSegwit: chainPrefix,
	}

	inv, err := zpay32.Decode(bolt11, chain)
	if err != nil {
		return Bolt11{}, fmt.Errorf("zpay32 decoding failed: %w", err)
	}

	var amountMsat int64
	if inv.MilliSat != nil {
		amountMsat = int64(*inv.MilliSat)
	}

	var desc string
	if inv.Description != nil {
		desc = *inv.Description
	}

	var deschash string
	if inv.DescriptionHash != nil {
		dh := *inv.DescriptionHash
		deschash = hex.EncodeToString(dh[:])
	}

	return Bolt11{
		Currency:           inv.Net.Bech32HRPSegwit,
		CreatedAt:          inv.Timestamp.Unix(),
		Expiry:             int64(inv.Expiry() / time.Second),
		Payee:              hex.EncodeToString(inv.Destination.SerializeCompressed()),
		AmountMsat:         amountMsat,
		Description:        desc,
		DescriptionHash:    deschash,
		PaymentHash:        hex.EncodeToString(inv.PaymentHash[:]),
		MinFinalCLTVExpiry: int(inv.MinFinalCLTVExpiry()),
	}, nil
}
