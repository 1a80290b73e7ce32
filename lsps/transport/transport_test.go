package transport

import (
	"context"
	"testing"
	"time"

	"github.com/flokiorg/lspd/lnclient"
)

// Mock LNClient for testing
type mockLNClient struct {
	sendCalls      []sendCall
	msgChan        chan lnclient.CustomMessage
	errChan        chan error
	shouldFailSend bool
	shouldFailSub  bool
}

type sendCall struct {
	peerPubkey string
	msgType    uint32
	data       []byte
}

func newMockLNClient() *mockLNClient {
	return &mockLNClient{
		sendCalls: []sendCall{},
		msgChan:   make(chan lnclient.CustomMessage, 10),
		errChan:   make(chan error, 1),
	}
}

func (m *mockLNClient) SendCustomMessage(ctx context.Context, peerPubkey string, msgType uint32, data []byte) error {
	if m.shouldFailSend {
		return context.Canceled
	}
	m.sendCalls = append(m.sendCalls, sendCall{peerPubkey, msgType, data})
	return nil
}

func (m *mockLNClient) SubscribeCustomMessages(ctx context.Context) (<-chan lnclient.CustomMessage, <-chan error, error) {
	if m.shouldFailSub {
		return nil, nil, context.Canceled
	}
	return m.msgChan, m.errChan, nil
}

// Implement other LNClient methods as no-ops
func (m *mockLNClient) GetPubkey() string { return "" }
func (m *mockLNClient) GetInfo(ctx context.Context) (*lnclient.NodeInfo, error) {
	return nil, nil
}
func (m *mockLNClient) MakeHoldInvoice(ctx context.Context, amountMsat int64, description string, expiry int64, paymentHash string) (*lnclient.Transaction, error) {
	return nil, nil
}
func (m *mockLNClient) SettleHoldInvoice(ctx context.Context, preimage string) error { return nil }
func (m *mockLNClient) CancelHoldInvoice(ctx context.Context, paymentHash string) error {
	return nil
}
func (m *mockLNClient) SubscribeInvoiceAccepted() <-chan lnclient.InvoiceAccepted { return nil }
func (m *mockLNClient) OpenChannel(ctx context.Context, openChannelRequest *lnclient.OpenChannelRequest) (*lnclient.OpenChannelResponse, error) {
	return nil, nil
}
func (m *mockLNClient) Shutdown() error { return nil }

// Tests

func TestLNDTransport_SendCustomMessage(t *testing.T) {
	mock := newMockLNClient()
	transport := NewLNDTransport(mock)

	ctx := context.Background()
	peerPubkey := "03abcdef"
	msgType := LSPS_MESSAGE_TYPE
	data := []byte("test message")

	err := transport.SendCustomMessage(ctx, peerPubkey, msgType, data)
	if err != nil {
		t.Fatalf("SendCustomMessage failed: %v", err)
	}

	if len(mock.sendCalls) != 1 {
		t.Fatalf("Expected 1 send call, got %d", len(mock.sendCalls))
	}

	call := mock.sendCalls[0]
	if call.peerPubkey != peerPubkey {
		t.Errorf("Expected peerPubkey %s, got %s", peerPubkey, call.peerPubkey)
	}
	if call.msgType != msgType {
		t.Errorf("Expected msgType %d, got %d", msgType, call.msgType)
	}
	if string(call.data) != string(data) {
		t.Errorf("Expected data %s, got %s", string(data), string(call.data))
	}
}

func TestLNDTransport_SendCustomMessageRejectsOversized(t *testing.T) {
	mock := newMockLNClient()
	transport := NewLNDTransport(mock)

	err := transport.SendCustomMessage(context.Background(), "03abcdef", LSPS_MESSAGE_TYPE, make([]byte, 65536))
	if err == nil {
		t.Fatal("Expected error for oversized message")
	}
	if len(mock.sendCalls) != 0 {
		t.Fatal("Oversized message must not reach the client")
	}
}

func TestLNDTransport_SubscribeCustomMessages(t *testing.T) {
	mock := newMockLNClient()
	transport := NewLNDTransport(mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgChan, errChan, err := transport.SubscribeCustomMessages(ctx)
	if err != nil {
		t.Fatalf("SubscribeCustomMessages failed: %v", err)
	}

	// Send test message
	testMsg := lnclient.CustomMessage{
		PeerPubkey: "03xyz",
		Type:       LSPS_MESSAGE_TYPE,
		Data:       []byte("hello"),
	}
	mock.msgChan <- testMsg

	// Receive message
	select {
	case msg := <-msgChan:
		if msg.PeerPubkey != testMsg.PeerPubkey {
			t.Errorf("Expected peerPubkey %s, got %s", testMsg.PeerPubkey, msg.PeerPubkey)
		}
		if msg.Type != testMsg.Type {
			t.Errorf("Expected type %d, got %d", testMsg.Type, msg.Type)
		}
	case <-errChan:
		t.Fatal("Received error instead of message")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for message")
	}

	cancel()
}
