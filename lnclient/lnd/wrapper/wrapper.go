package wrapper

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/flokiorg/flnd/lnrpc"
	"github.com/flokiorg/flnd/lnrpc/invoicesrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// LNDWrapper wraps the FLND gRPC clients behind one connection.
type LNDWrapper struct {
	conn           *grpc.ClientConn
	client         lnrpc.LightningClient
	invoicesClient invoicesrpc.InvoicesClient
}

type LNDoptions struct {
	Address      string
	CertFile     string
	MacaroonFile string
}

type macaroonCredential struct {
	macaroonHex string
}

func (m macaroonCredential) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"macaroon": m.macaroonHex}, nil
}

func (macaroonCredential) RequireTransportSecurity() bool { return true }

// NewLNDclient connects to FLND at the given address using the TLS cert and
// admin macaroon files.
func NewLNDclient(lndOptions LNDoptions) (*LNDWrapper, error) {
	if lndOptions.Address == "" || lndOptions.MacaroonFile == "" {
		return nil, errors.New("FLND address and macaroon file are required")
	}

	host, _, err := net.SplitHostPort(lndOptions.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid FLND address %s: %w", lndOptions.Address, err)
	}

	var rootCAs *x509.CertPool
	if lndOptions.CertFile != "" {
		pem, err := os.ReadFile(lndOptions.CertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read FLND tls cert: %w", err)
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse FLND tls cert %s", lndOptions.CertFile)
		}
		rootCAs = certPool
	}

	creds := credentials.NewTLS(&tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    rootCAs,
		ServerName: host,
	})

	macaroonBytes, err := os.ReadFile(lndOptions.MacaroonFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read FLND macaroon: %w", err)
	}

	conn, err := grpc.NewClient(lndOptions.Address,
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(macaroonCredential{
			macaroonHex: hex.EncodeToString(macaroonBytes),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create FLND gRPC client: %w", err)
	}

	return &LNDWrapper{
		conn:           conn,
		client:         lnrpc.NewLightningClient(conn),
		invoicesClient: invoicesrpc.NewInvoicesClient(conn),
	}, nil
}

func (wrapper *LNDWrapper) Close() error {
	return wrapper.conn.Close()
}

func (wrapper *LNDWrapper) GetInfo(ctx context.Context, req *lnrpc.GetInfoRequest, options ...grpc.CallOption) (*lnrpc.GetInfoResponse, error) {
	return wrapper.client.GetInfo(ctx, req, options...)
}

func (wrapper *LNDWrapper) ListInvoices(ctx context.Context, req *lnrpc.ListInvoiceRequest, options ...grpc.CallOption) (*lnrpc.ListInvoiceResponse, error) {
	return wrapper.client.ListInvoices(ctx, req, options...)
}

func (wrapper *LNDWrapper) LookupInvoice(ctx context.Context, req *lnrpc.PaymentHash, options ...grpc.CallOption) (*lnrpc.Invoice, error) {
	return wrapper.client.LookupInvoice(ctx, req, options...)
}

func (wrapper *LNDWrapper) OpenChannelSync(ctx context.Context, req *lnrpc.OpenChannelRequest, options ...grpc.CallOption) (*lnrpc.ChannelPoint, error) {
	return wrapper.client.OpenChannelSync(ctx, req, options...)
}

func (wrapper *LNDWrapper) SubscribeChannelEvents(ctx context.Context, req *lnrpc.ChannelEventSubscription, options ...grpc.CallOption) (lnrpc.Lightning_SubscribeChannelEventsClient, error) {
	return wrapper.client.SubscribeChannelEvents(ctx, req, options...)
}

func (wrapper *LNDWrapper) AddHoldInvoice(ctx context.Context, req *invoicesrpc.AddHoldInvoiceRequest, options ...grpc.CallOption) (*invoicesrpc.AddHoldInvoiceResp, error) {
	return wrapper.invoicesClient.AddHoldInvoice(ctx, req, options...)
}

func (wrapper *LNDWrapper) SettleInvoice(ctx context.Context, req *invoicesrpc.SettleInvoiceMsg, options ...grpc.CallOption) (*invoicesrpc.SettleInvoiceResp, error) {
	return wrapper.invoicesClient.SettleInvoice(ctx, req, options...)
}

func (wrapper *LNDWrapper) CancelInvoice(ctx context.Context, req *invoicesrpc.CancelInvoiceMsg, options ...grpc.CallOption) (*invoicesrpc.CancelInvoiceResp, error) {
	return wrapper.invoicesClient.CancelInvoice(ctx, req, options...)
}

func (wrapper *LNDWrapper) SubscribeSingleInvoice(ctx context.Context, req *invoicesrpc.SubscribeSingleInvoiceRequest, options ...grpc.CallOption) (invoicesrpc.Invoices_SubscribeSingleInvoiceClient, error) {
	return wrapper.invoicesClient.SubscribeSingleInvoice(ctx, req, options...)
}
