package lsps1

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/flokiorg/lspd/lnclient"
	"github.com/flokiorg/lspd/lsps/persist"
)

// Mock LNClient for testing
type mockLNClient struct {
	mu sync.Mutex

	holdInvoices   map[string]*lnclient.Transaction
	settled        []string
	cancelled      []string
	openRequests   []*lnclient.OpenChannelRequest
	accepted       chan lnclient.InvoiceAccepted
	openResponse   *lnclient.OpenChannelResponse
	openGate       chan struct{}
	openErr        error
	makeInvoiceErr error
	settleErr      error
	cancelErr      error
}

func newMockLNClient() *mockLNClient {
	return &mockLNClient{
		holdInvoices: map[string]*lnclient.Transaction{},
		accepted:     make(chan lnclient.InvoiceAccepted, 10),
		openResponse: &lnclient.OpenChannelResponse{
			FundingTxId:   "deadbeef",
			FundingTxVout: 1,
		},
	}
}

func (m *mockLNClient) GetPubkey() string { return "02lsp" }

func (m *mockLNClient) GetInfo(ctx context.Context) (*lnclient.NodeInfo, error) {
	return &lnclient.NodeInfo{Pubkey: "02lsp", Alias: "test-lsp"}, nil
}

func (m *mockLNClient) SendCustomMessage(ctx context.Context, peerPubkey string, msgType uint32, data []byte) error {
	return nil
}

func (m *mockLNClient) SubscribeCustomMessages(ctx context.Context) (<-chan lnclient.CustomMessage, <-chan error, error) {
	return nil, nil, nil
}

func (m *mockLNClient) MakeHoldInvoice(ctx context.Context, amountMsat int64, description string, expiry int64, paymentHash string) (*lnclient.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.makeInvoiceErr != nil {
		return nil, m.makeInvoiceErr
	}
	transaction := &lnclient.Transaction{
		Type:        "incoming",
		Invoice:     fmt.Sprintf("lnbc_mock_%s", paymentHash[:8]),
		Description: description,
		PaymentHash: paymentHash,
		AmountMsat:  amountMsat,
	}
	m.holdInvoices[paymentHash] = transaction
	return transaction, nil
}

func (m *mockLNClient) SettleHoldInvoice(ctx context.Context, preimage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settleErr != nil {
		return m.settleErr
	}
	m.settled = append(m.settled, preimage)
	return nil
}

func (m *mockLNClient) CancelHoldInvoice(ctx context.Context, paymentHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.cancelled = append(m.cancelled, paymentHash)
	return nil
}

func (m *mockLNClient) SubscribeInvoiceAccepted() <-chan lnclient.InvoiceAccepted {
	return m.accepted
}

func (m *mockLNClient) OpenChannel(ctx context.Context, req *lnclient.OpenChannelRequest) (*lnclient.OpenChannelResponse, error) {
	m.mu.Lock()
	m.openRequests = append(m.openRequests, req)
	gate := m.openGate
	openErr := m.openErr
	response := m.openResponse
	m.mu.Unlock()

	// A gate lets a test hold the open in flight.
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if openErr != nil {
		return nil, openErr
	}
	return response, nil
}

func (m *mockLNClient) Shutdown() error { return nil }

func (m *mockLNClient) settledPreimages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.settled...)
}

func (m *mockLNClient) cancelledHashes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.cancelled...)
}

func (m *mockLNClient) channelOpens() []*lnclient.OpenChannelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*lnclient.OpenChannelRequest{}, m.openRequests...)
}

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&persist.Order{}, &persist.KVEntry{})
	require.NoError(t, err)

	return db
}
