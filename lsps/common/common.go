package common

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Amount represents satoshis, serialized as a string in JSON
type Amount uint64

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%d", a))
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	// Try parsing as string first
	if err := json.Unmarshal(data, &s); err == nil {
		val, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		*a = Amount(val)
		return nil
	}

	// Fallback: try parsing as number (for flexibility, though the wire
	// format mandates strings)
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Amount(n)
	return nil
}

// JsonRpcRequest represents a JSON-RPC 2.0 request
type JsonRpcRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      string          `json:"id"`
}

// JsonRpcResponse represents a JSON-RPC 2.0 response
type JsonRpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JsonRpcError   `json:"error,omitempty"`
	ID      string          `json:"id"`
}

type JsonRpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *JsonRpcError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// JSON-RPC error codes used by the LSPS services.
const (
	CODE_METHOD_NOT_FOUND = -32601
	CODE_INVALID_PARAMS   = -32602
	CODE_INTERNAL_ERROR   = -32603
	CODE_OPTION_MISMATCH  = 1000
	CODE_NOT_FOUND        = 404
)

// NewResultResponse builds a success response carrying result.
func NewResultResponse(id string, result interface{}) (*JsonRpcResponse, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &JsonRpcResponse{
		Jsonrpc: "2.0",
		Result:  raw,
		ID:      id,
	}, nil
}

// NewErrorResponse builds an error response for the given request id.
func NewErrorResponse(id string, rpcErr *JsonRpcError) *JsonRpcResponse {
	return &JsonRpcResponse{
		Jsonrpc: "2.0",
		Error:   rpcErr,
		ID:      id,
	}
}

func NewMethodNotFoundError() *JsonRpcError {
	return &JsonRpcError{
		Code:    CODE_METHOD_NOT_FOUND,
		Message: "Method not found",
	}
}

// NewUnrecognizedParamsError reports request properties the method does not
// accept. The list must already be sorted.
func NewUnrecognizedParamsError(unrecognized []string) *JsonRpcError {
	data, _ := json.Marshal(map[string]interface{}{
		"unrecognized": unrecognized,
	})
	return &JsonRpcError{
		Code:    CODE_INVALID_PARAMS,
		Message: "Invalid params",
		Data:    data,
	}
}

// NewInvalidParamError reports a single missing or malformed request property.
func NewInvalidParamError(property, message string) *JsonRpcError {
	data, _ := json.Marshal(map[string]interface{}{
		"property": property,
		"message":  message,
	})
	return &JsonRpcError{
		Code:    CODE_INVALID_PARAMS,
		Message: "Invalid params",
		Data:    data,
	}
}

// NewOptionMismatchError reports a request that violates one of the limits
// advertised in get_info. property names the violated limit.
func NewOptionMismatchError(property string) *JsonRpcError {
	data, _ := json.Marshal(map[string]interface{}{
		"property": property,
	})
	return &JsonRpcError{
		Code:    CODE_OPTION_MISMATCH,
		Message: "Option mismatch",
		Data:    data,
	}
}

func NewNotFoundError() *JsonRpcError {
	return &JsonRpcError{
		Code:    CODE_NOT_FOUND,
		Message: "Not found",
	}
}

func NewInternalError() *JsonRpcError {
	return &JsonRpcError{
		Code:    CODE_INTERNAL_ERROR,
		Message: "Internal error",
	}
}
