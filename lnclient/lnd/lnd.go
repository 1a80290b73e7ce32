package lnd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flokiorg/flnd/lnrpc"
	"github.com/flokiorg/flnd/lnrpc/invoicesrpc"
	"github.com/flokiorg/go-flokicoin/chaincfg/chainhash"
	"github.com/rs/zerolog"

	"github.com/flokiorg/lspd/lnclient"
	"github.com/flokiorg/lspd/lnclient/lnd/wrapper"
	"github.com/flokiorg/lspd/logger"
)

type LNDService struct {
	client   *wrapper.LNDWrapper
	nodeInfo *lnclient.NodeInfo
	cancel   context.CancelFunc
	ctx      context.Context
	logger   zerolog.Logger

	invoiceAccepted chan lnclient.InvoiceAccepted
}

func NewLNDService(ctx context.Context, lndAddress, lndCertFile, lndMacaroonFile string) (result lnclient.LNClient, err error) {
	if lndAddress == "" || lndMacaroonFile == "" {
		return nil, errors.New("one or more required FLND configuration are missing")
	}

	lndClient, err := wrapper.NewLNDclient(wrapper.LNDoptions{
		Address:      lndAddress,
		CertFile:     lndCertFile,
		MacaroonFile: lndMacaroonFile,
	})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to create new FLND client")
		return nil, err
	}

	var nodeInfo *lnclient.NodeInfo
	maxRetries := 5
	for i := range maxRetries {
		nodeInfo, err = fetchNodeInfo(ctx, lndClient)
		if err == nil {
			break
		}
		logger.Logger.Error().Err(err).
			Int("iteration", i).
			Msg("Failed to connect to FLND, retrying in 2s")

		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			logger.Logger.Error().Err(ctx.Err()).Msg("Context cancelled during FLND connection retries")
			return nil, ctx.Err()
		}
	}

	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to connect to FLND on final attempt, not attempting further retries")
		return nil, err
	}

	lndCtx, cancel := context.WithCancel(ctx)

	lndService := &LNDService{
		client:          lndClient,
		nodeInfo:        nodeInfo,
		cancel:          cancel,
		ctx:             lndCtx,
		logger:          logger.Logger.With().Str("backend", "FLND").Logger(),
		invoiceAccepted: make(chan lnclient.InvoiceAccepted, 100),
	}

	go lndService.resubscribeOpenHoldInvoices(lndCtx)

	logger.Logger.Info().Str("alias", nodeInfo.Alias).Msg("Connected to FLND")

	return lndService, nil
}

func (svc *LNDService) GetPubkey() string {
	return svc.nodeInfo.Pubkey
}

func (svc *LNDService) GetInfo(ctx context.Context) (*lnclient.NodeInfo, error) {
	return fetchNodeInfo(ctx, svc.client)
}

// resubscribeOpenHoldInvoices re-attaches single invoice subscriptions for
// hold invoices that were still pending when the service last stopped.
func (svc *LNDService) resubscribeOpenHoldInvoices(ctx context.Context) {
	oneWeekAgo := time.Now().AddDate(0, 0, -7).Unix()

	listInvoicesResponse, err := svc.client.ListInvoices(ctx, &lnrpc.ListInvoiceRequest{
		PendingOnly:       true,
		CreationDateStart: uint64(oneWeekAgo),
	})
	if err != nil {
		svc.logger.Error().Err(err).Msg("Failed to list invoices for open hold invoices subscription")
		return
	}

	for _, invoice := range listInvoicesResponse.Invoices {
		if invoice.State == lnrpc.Invoice_OPEN || invoice.State == lnrpc.Invoice_ACCEPTED {
			paymentHashHex := hex.EncodeToString(invoice.RHash)
			svc.logger.Info().
				Str("paymentHash", paymentHashHex).
				Uint64("addIndex", invoice.AddIndex).
				Msg("Resubscribing to pending hold invoice")
			go svc.subscribeSingleInvoice(invoice.RHash)
		}
	}
}

func (svc *LNDService) subscribeSingleInvoice(paymentHashBytes []byte) {
	ctx, cancel := context.WithCancel(svc.ctx)
	defer cancel()

	paymentHashHex := hex.EncodeToString(paymentHashBytes)
	log := svc.logger.With().Str("paymentHash", paymentHashHex).Logger()

	invoiceStream, err := svc.client.SubscribeSingleInvoice(ctx, &invoicesrpc.SubscribeSingleInvoiceRequest{
		RHash: paymentHashBytes,
	})
	if err != nil {
		log.Error().Err(err).Msg("SubscribeSingleInvoice call failed")
		return
	}

	log.Debug().Msg("Subscribed to single invoice stream")

	for {
		invoice, err := invoiceStream.Recv()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("Failed to receive single invoice update from stream")
			}
			return
		}

		switch invoice.State {
		case lnrpc.Invoice_ACCEPTED:
			log.Info().
				Int64("amtPaidMloki", invoice.AmtPaidMsat).
				Msg("Hold invoice accepted")
			select {
			case svc.invoiceAccepted <- lnclient.InvoiceAccepted{
				PaymentHash: paymentHashHex,
				AmountMsat:  invoice.AmtPaidMsat,
			}:
			case <-ctx.Done():
				return
			}
		case lnrpc.Invoice_CANCELED:
			log.Info().Msg("Hold invoice canceled, ending subscription")
			return
		case lnrpc.Invoice_SETTLED:
			log.Info().Msg("Hold invoice settled, ending subscription")
			return
		case lnrpc.Invoice_OPEN:
			// Continue loop
		}
	}
}

// SubscribeInvoiceAccepted exposes hold invoice acceptance notifications for
// every invoice created through MakeHoldInvoice.
func (svc *LNDService) SubscribeInvoiceAccepted() <-chan lnclient.InvoiceAccepted {
	return svc.invoiceAccepted
}

func (svc *LNDService) MakeHoldInvoice(ctx context.Context, amountMsat int64, description string, expiry int64, paymentHash string) (transaction *lnclient.Transaction, err error) {
	paymentHashBytes, err := hex.DecodeString(paymentHash)
	if err != nil || len(paymentHashBytes) != 32 {
		if err == nil {
			err = errors.New("payment hash must be 32 bytes hex")
		}
		svc.logger.Error().Err(err).
			Str("paymentHash", paymentHash).
			Msg("Invalid payment hash")
		return nil, err
	}

	if expiry == 0 {
		expiry = lnclient.DEFAULT_INVOICE_EXPIRY
	}

	addInvoiceRequest := &invoicesrpc.AddHoldInvoiceRequest{
		ValueMsat: amountMsat,
		Memo:      description,
		Expiry:    expiry,
		Hash:      paymentHashBytes,
	}

	_, err = svc.client.AddHoldInvoice(ctx, addInvoiceRequest)
	if err != nil {
		svc.logger.Error().Err(err).Msg("Failed to create hold invoice")
		return nil, err
	}

	go svc.subscribeSingleInvoice(paymentHashBytes)

	inv, err := svc.client.LookupInvoice(ctx, &lnrpc.PaymentHash{RHash: paymentHashBytes})
	if err != nil {
		svc.logger.Error().Err(err).Str("paymentHash", paymentHash).Msg("Failed to lookup hold invoice after creation")
		return nil, err
	}

	return lndInvoiceToTransaction(inv), nil
}

func (svc *LNDService) SettleHoldInvoice(ctx context.Context, preimage string) (err error) {
	preimageBytes, err := hex.DecodeString(preimage)
	if err != nil || len(preimageBytes) != 32 {
		if err == nil {
			err = errors.New("preimage must be 32 bytes hex")
		}
		svc.logger.Error().Err(err).Msg("Invalid preimage")
		return err
	}

	_, err = svc.client.SettleInvoice(ctx, &invoicesrpc.SettleInvoiceMsg{
		Preimage: preimageBytes,
	})
	if err != nil {
		svc.logger.Error().Err(err).Msg("Failed to settle hold invoice")
		return err
	}
	return nil
}

func (svc *LNDService) CancelHoldInvoice(ctx context.Context, paymentHash string) (err error) {
	paymentHashBytes, err := hex.DecodeString(paymentHash)
	if err != nil || len(paymentHashBytes) != 32 {
		if err == nil {
			err = errors.New("payment hash must be 32 bytes hex")
		}
		svc.logger.Error().Err(err).
			Str("paymentHash", paymentHash).
			Msg("Invalid payment hash")
		return err
	}

	_, err = svc.client.CancelInvoice(ctx, &invoicesrpc.CancelInvoiceMsg{
		PaymentHash: paymentHashBytes,
	})
	if err != nil {
		svc.logger.Error().Err(err).
			Str("paymentHash", paymentHash).
			Msg("Failed to cancel hold invoice")
		return err
	}
	return nil
}

func (svc *LNDService) OpenChannel(ctx context.Context, openChannelRequest *lnclient.OpenChannelRequest) (*lnclient.OpenChannelResponse, error) {
	nodePub, err := hex.DecodeString(openChannelRequest.Pubkey)
	if err != nil {
		return nil, errors.New("failed to decode pubkey")
	}

	// Subscribe before broadcasting the funding transaction so the open
	// notification cannot be missed.
	channelEvents, err := svc.client.SubscribeChannelEvents(ctx, &lnrpc.ChannelEventSubscription{})
	if err != nil {
		svc.logger.Error().Err(err).Msg("Failed to subscribe to channel events")
		return nil, err
	}

	svc.logger.Info().
		Str("peer_id", openChannelRequest.Pubkey).
		Uint64("capacity", openChannelRequest.CapacitySat).
		Msg("Opening channel")

	channel, err := svc.client.OpenChannelSync(ctx, &lnrpc.OpenChannelRequest{
		NodePubkey:         nodePub,
		Private:            !openChannelRequest.Announce,
		LocalFundingAmount: int64(openChannelRequest.CapacitySat),
		PushSat:            int64(openChannelRequest.PushSat),
	})
	if err != nil {
		svc.logger.Error().Err(err).Msg("Failed to open channel")
		return nil, fmt.Errorf("failed to open channel with %s: %s", openChannelRequest.Pubkey, err)
	}

	// the funding transaction id bytes arrive in internal byte order
	fundingTxid, err := chainhash.NewHash(channel.GetFundingTxidBytes())
	if err != nil {
		svc.logger.Error().Err(err).Msg("Failed to parse funding txid")
		return nil, err
	}

	response := &lnclient.OpenChannelResponse{
		FundingTxId:   fundingTxid.String(),
		FundingTxVout: channel.OutputIndex,
	}

	err = svc.waitChannelOpen(ctx, channelEvents, response.FundingTxId)
	if err != nil {
		return nil, err
	}
	return response, nil
}

// waitChannelOpen blocks until the channel funded by fundingTxId reports as
// open, or ctx expires.
func (svc *LNDService) waitChannelOpen(ctx context.Context, channelEvents lnrpc.Lightning_SubscribeChannelEventsClient, fundingTxId string) error {
	for {
		event, err := channelEvents.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("timed out waiting for channel %s to open: %w", fundingTxId, ctx.Err())
			}
			svc.logger.Error().Err(err).Msg("Failed to receive channel event")
			return err
		}

		openChannel, ok := event.Channel.(*lnrpc.ChannelEventUpdate_OpenChannel)
		if !ok {
			continue
		}

		txid, _, err := parseChannelPoint(openChannel.OpenChannel.ChannelPoint)
		if err != nil {
			svc.logger.Error().Err(err).
				Str("channel_point", openChannel.OpenChannel.ChannelPoint).
				Msg("Failed to parse channel point")
			continue
		}
		if txid != fundingTxId {
			continue
		}

		svc.logger.Info().
			Str("counterparty_node_id", openChannel.OpenChannel.RemotePubkey).
			Int64("capacity", openChannel.OpenChannel.Capacity).
			Str("funding_txid", fundingTxId).
			Msg("Channel opened")
		return nil
	}
}

func parseChannelPoint(channelPoint string) (txid string, vout uint32, err error) {
	parts := strings.Split(channelPoint, ":")
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("invalid channel point %s", channelPoint)
	}
	outputIndex, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("invalid channel point %s: %w", channelPoint, err)
	}
	return parts[0], uint32(outputIndex), nil
}

func (svc *LNDService) Shutdown() error {
	svc.logger.Info().Msg("cancelling FLND context")
	svc.cancel()
	return svc.client.Close()
}

func fetchNodeInfo(ctx context.Context, client *wrapper.LNDWrapper) (*lnclient.NodeInfo, error) {
	resp, err := client.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to fetch node info")
		return nil, err
	}
	network := resp.Chains[0].Network
	if network == "mainnet" {
		network = "bitcoin"
	}
	return &lnclient.NodeInfo{
		Alias:       resp.Alias,
		Color:       resp.Color,
		Pubkey:      resp.IdentityPubkey,
		Network:     network,
		BlockHeight: resp.BlockHeight,
		BlockHash:   resp.BlockHash,
	}, nil
}

func lndInvoiceToTransaction(invoice *lnrpc.Invoice) *lnclient.Transaction {
	var settledAt *int64
	if invoice.State == lnrpc.Invoice_SETTLED {
		settledAt = &invoice.SettleDate
	}
	var expiresAt *int64
	if invoice.Expiry > 0 {
		expiresAtUnix := invoice.CreationDate + invoice.Expiry
		expiresAt = &expiresAtUnix
	}

	return &lnclient.Transaction{
		Type:        "incoming",
		Invoice:     invoice.PaymentRequest,
		Description: invoice.Memo,
		Preimage:    hex.EncodeToString(invoice.RPreimage),
		PaymentHash: hex.EncodeToString(invoice.RHash),
		AmountMsat:  invoice.ValueMsat,
		CreatedAt:   invoice.CreationDate,
		SettledAt:   settledAt,
		ExpiresAt:   expiresAt,
	}
}
