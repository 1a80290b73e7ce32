package lsps0

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/flokiorg/lspd/lsps/common"
	"github.com/flokiorg/lspd/lsps/server"
	"github.com/flokiorg/lspd/lsps/validate"
)

// Service answers LSPS0 protocol discovery requests.
type Service struct {
	protocols []int
}

// NewService creates an LSPS0 service advertising the given protocol numbers.
func NewService(enabledProtocols []int) *Service {
	protocols := make([]int, len(enabledProtocols))
	copy(protocols, enabledProtocols)
	sort.Ints(protocols)

	return &Service{
		protocols: protocols,
	}
}

// Register attaches the LSPS0 methods to the server.
func (s *Service) Register(srv *server.Server) {
	srv.Register(MethodListProtocols, &validate.Schema{}, s.handleListProtocols)
}

func (s *Service) handleListProtocols(ctx context.Context, peerPubkey string, params json.RawMessage) (interface{}, *common.JsonRpcError) {
	return &ListProtocolsResponse{
		Protocols: s.protocols,
	}, nil
}
