// Package lsps0 implements the LSPS0 protocol discovery service
package lsps0

// Method names for LSPS0
const (
	MethodListProtocols = "lsps0.list_protocols"
)

// ListProtocolsResponse contains the list of supported protocols
type ListProtocolsResponse struct {
	Protocols []int `json:"protocols"`
}
