package lsps0

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProtocolsSortsProtocols(t *testing.T) {
	svc := NewService([]int{1, 0})

	result, rpcErr := svc.handleListProtocols(context.Background(), "03abc", nil)
	require.Nil(t, rpcErr)

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"protocols":[0,1]}`, string(raw))
}

func TestListProtocolsWithOnlyLsps0(t *testing.T) {
	svc := NewService([]int{0})

	result, rpcErr := svc.handleListProtocols(context.Background(), "03abc", nil)
	require.Nil(t, rpcErr)

	resp, ok := result.(*ListProtocolsResponse)
	require.True(t, ok)
	assert.Equal(t, []int{0}, resp.Protocols)
}
