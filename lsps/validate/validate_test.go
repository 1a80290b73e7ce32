package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flokiorg/lspd/lsps/common"
)

var orderSchema = &Schema{
	Fields: []Field{
		{Name: "lsp_balance_sat", Kind: KindSatAmount, Required: true},
		{Name: "client_balance_sat", Kind: KindSatAmount, Required: true},
		{Name: "funding_confirms_within_blocks", Kind: KindUint, Required: true, Bits: 32},
		{Name: "required_channel_confirmations", Kind: KindUint, Required: true, Bits: 32},
		{Name: "channel_expiry_blocks", Kind: KindUint, Required: true, Bits: 32},
		{Name: "announce_channel", Kind: KindBool, Required: true},
		{Name: "token", Kind: KindString, Required: false},
		{Name: "refund_onchain_address", Kind: KindString, Required: false},
	},
}

func validParams() map[string]interface{} {
	return map[string]interface{}{
		"lsp_balance_sat":                "100000",
		"client_balance_sat":             "0",
		"funding_confirms_within_blocks": 6,
		"required_channel_confirmations": 6,
		"channel_expiry_blocks":          144,
		"announce_channel":               false,
	}
}

func marshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

type errData struct {
	Property     string   `json:"property"`
	Message      string   `json:"message"`
	Unrecognized []string `json:"unrecognized"`
}

func decodeData(t *testing.T, rpcErr *common.JsonRpcError) errData {
	t.Helper()
	var data errData
	require.NoError(t, json.Unmarshal(rpcErr.Data, &data))
	return data
}

func TestValidateAcceptsValidParams(t *testing.T) {
	rpcErr := orderSchema.Validate(marshal(t, validParams()))
	assert.Nil(t, rpcErr)
}

func TestValidateAcceptsOptionalFields(t *testing.T) {
	params := validParams()
	params["token"] = "hello"
	params["refund_onchain_address"] = "bc1qxyz"
	rpcErr := orderSchema.Validate(marshal(t, params))
	assert.Nil(t, rpcErr)
}

func TestValidateReportsUnrecognizedSorted(t *testing.T) {
	params := validParams()
	params["zebra"] = 1
	params["alpha"] = 2
	rpcErr := orderSchema.Validate(marshal(t, params))
	require.NotNil(t, rpcErr)
	assert.Equal(t, common.CODE_INVALID_PARAMS, rpcErr.Code)
	assert.Equal(t, []string{"alpha", "zebra"}, decodeData(t, rpcErr).Unrecognized)
}

func TestValidateUnrecognizedTakesPrecedence(t *testing.T) {
	// Both an unknown key and a missing required property: the unknown key wins.
	params := validParams()
	delete(params, "lsp_balance_sat")
	params["bogus"] = true
	rpcErr := orderSchema.Validate(marshal(t, params))
	require.NotNil(t, rpcErr)
	assert.Equal(t, []string{"bogus"}, decodeData(t, rpcErr).Unrecognized)
}

func TestValidateReportsFirstMissingInDeclarationOrder(t *testing.T) {
	params := validParams()
	delete(params, "client_balance_sat")
	delete(params, "announce_channel")
	rpcErr := orderSchema.Validate(marshal(t, params))
	require.NotNil(t, rpcErr)
	assert.Equal(t, common.CODE_INVALID_PARAMS, rpcErr.Code)
	assert.Equal(t, "client_balance_sat", decodeData(t, rpcErr).Property)
}

func TestValidateRejectsNumericSatAmount(t *testing.T) {
	params := validParams()
	params["lsp_balance_sat"] = 100000
	rpcErr := orderSchema.Validate(marshal(t, params))
	require.NotNil(t, rpcErr)
	assert.Equal(t, "lsp_balance_sat", decodeData(t, rpcErr).Property)
}

func TestValidateRejectsNegativeUint(t *testing.T) {
	params := validParams()
	params["channel_expiry_blocks"] = -1
	rpcErr := orderSchema.Validate(marshal(t, params))
	require.NotNil(t, rpcErr)
	assert.Equal(t, "channel_expiry_blocks", decodeData(t, rpcErr).Property)
}

func TestValidateRejectsWrongBoolType(t *testing.T) {
	params := validParams()
	params["announce_channel"] = "yes"
	rpcErr := orderSchema.Validate(marshal(t, params))
	require.NotNil(t, rpcErr)
	assert.Equal(t, "announce_channel", decodeData(t, rpcErr).Property)
}

func TestValidateEmptySchemaRejectsAnyProperty(t *testing.T) {
	empty := &Schema{}
	assert.Nil(t, empty.Validate(nil))
	assert.Nil(t, empty.Validate(json.RawMessage(`{}`)))

	rpcErr := empty.Validate(json.RawMessage(`{"x":1}`))
	require.NotNil(t, rpcErr)
	assert.Equal(t, []string{"x"}, decodeData(t, rpcErr).Unrecognized)
}

func TestValidateRejectsNonObjectParams(t *testing.T) {
	rpcErr := orderSchema.Validate(json.RawMessage(`[1,2,3]`))
	require.NotNil(t, rpcErr)
	assert.Equal(t, common.CODE_INVALID_PARAMS, rpcErr.Code)
}

func TestValidateRejectsUintOverBitWidth(t *testing.T) {
	params := validParams()
	params["channel_expiry_blocks"] = uint64(1) << 32
	rpcErr := orderSchema.Validate(marshal(t, params))
	require.NotNil(t, rpcErr)
	assert.Equal(t, common.CODE_INVALID_PARAMS, rpcErr.Code)

	data := decodeData(t, rpcErr)
	assert.Equal(t, "channel_expiry_blocks", data.Property)
	assert.Equal(t, "must be an unsigned integer", data.Message)
}
