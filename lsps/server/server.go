// Package server dispatches incoming LSPS JSON-RPC requests to handlers
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/flokiorg/lspd/logger"
	"github.com/flokiorg/lspd/lsps/common"
	"github.com/flokiorg/lspd/lsps/transport"
	"github.com/flokiorg/lspd/lsps/validate"
)

// HandlerFunc processes validated request params and returns either a result
// value or a JSON-RPC error.
type HandlerFunc func(ctx context.Context, peerPubkey string, params json.RawMessage) (interface{}, *common.JsonRpcError)

type method struct {
	schema  *validate.Schema
	handler HandlerFunc
}

// Server receives LSPS custom messages, validates them and routes them to the
// registered method handlers.
type Server struct {
	transport transport.Transport

	mu sync.RWMutex
	// namespace -> method name -> handler
	methods map[string]map[string]method
}

func NewServer(t transport.Transport) *Server {
	return &Server{
		transport: t,
		methods:   map[string]map[string]method{},
	}
}

// Register attaches a handler for a fully qualified method name such as
// "lsps1.create_order".
func (s *Server) Register(fullMethod string, schema *validate.Schema, handler HandlerFunc) {
	namespace, name, found := strings.Cut(fullMethod, ".")
	if !found {
		panic(fmt.Sprintf("method %s has no namespace", fullMethod))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.methods[namespace] == nil {
		s.methods[namespace] = map[string]method{}
	}
	s.methods[namespace][name] = method{schema: schema, handler: handler}
}

// Start subscribes to incoming custom messages and processes them until ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	msgs, errs, err := s.transport.SubscribeCustomMessages(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to custom messages: %w", err)
	}

	go s.processMessages(ctx, msgs, errs)

	return nil
}

func (s *Server) processMessages(ctx context.Context, msgs <-chan transport.CustomMessage, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			if err != nil {
				logger.Logger.Error().Err(err).Msg("Error receiving custom message")
				continue
			}
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			s.handleMessage(ctx, msg)
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg transport.CustomMessage) {
	// LSPS0, LSPS1 and later protocols share the same message type; they
	// distinguish by JSON-RPC method inside the payload.
	if msg.Type != transport.LSPS_MESSAGE_TYPE {
		return
	}

	var req common.JsonRpcRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		// Malformed payloads carry no usable request id, so there is
		// nothing to correlate a response to. Drop them.
		logger.Logger.Debug().
			Str("peer_pubkey", msg.PeerPubkey).
			Err(err).
			Msg("Dropping undecodable LSPS message")
		return
	}
	if req.ID == "" || req.Method == "" {
		logger.Logger.Debug().
			Str("peer_pubkey", msg.PeerPubkey).
			Msg("Dropping LSPS message without id or method")
		return
	}

	log := logger.Logger.With().
		Str("peer_pubkey", msg.PeerPubkey).
		Str("method", req.Method).
		Str("request_id", req.ID).
		Logger()

	handler, schema, found := s.lookup(req.Method)
	if !found {
		log.Debug().Msg("Unknown LSPS method")
		s.sendResponse(ctx, msg.PeerPubkey, common.NewErrorResponse(req.ID, common.NewMethodNotFoundError()))
		return
	}

	if schema != nil {
		if rpcErr := schema.Validate(req.Params); rpcErr != nil {
			log.Debug().Int("code", rpcErr.Code).Msg("Request params rejected")
			s.sendResponse(ctx, msg.PeerPubkey, common.NewErrorResponse(req.ID, rpcErr))
			return
		}
	}

	result, rpcErr := handler(ctx, msg.PeerPubkey, req.Params)
	if rpcErr != nil {
		log.Debug().Int("code", rpcErr.Code).Msg("Request failed")
		s.sendResponse(ctx, msg.PeerPubkey, common.NewErrorResponse(req.ID, rpcErr))
		return
	}

	response, err := common.NewResultResponse(req.ID, result)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal result")
		s.sendResponse(ctx, msg.PeerPubkey, common.NewErrorResponse(req.ID, common.NewInternalError()))
		return
	}

	s.sendResponse(ctx, msg.PeerPubkey, response)
}

func (s *Server) lookup(fullMethod string) (HandlerFunc, *validate.Schema, bool) {
	namespace, name, found := strings.Cut(fullMethod, ".")
	if !found {
		return nil, nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.methods[namespace][name]
	if !ok {
		return nil, nil, false
	}
	return m.handler, m.schema, true
}

func (s *Server) sendResponse(ctx context.Context, peerPubkey string, response *common.JsonRpcResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to marshal response")
		return
	}

	err = s.transport.SendCustomMessage(ctx, peerPubkey, transport.LSPS_MESSAGE_TYPE, data)
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("peer_pubkey", peerPubkey).
			Msg("Failed to send response")
	}
}
