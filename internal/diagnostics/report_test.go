package diagnostics

import (
	"bytes"
	"context"
	"testing"

	"BinkAgent-Bridge/internal/action"
	"BinkAgent-Bridge/internal/config"
	"BinkAgent-Bridge/internal/host"
	"BinkAgent-Bridge/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopExecutor struct{}

func (nopExecutor) Execute(context.Context, *config.Settings, wallet.Handle, string) (string, error) {
	return "", nil
}

func testPlugin() *host.Plugin {
	return host.NewPlugin([]*action.Handler{
		action.NewHandler(action.ExecuteTransaction, nopExecutor{}),
		action.NewHandler(action.GetWalletInfo, nopExecutor{}),
	})
}

func TestBuildAndRenderIncompleteConfig(t *testing.T) {
	for _, key := range config.Keys() {
		t.Setenv(key, "")
	}
	r := Build(testPlugin(), host.MapSettings{config.KeyOpenAIAPIKey: "sk-secret-value"})
	assert.False(t, r.Ready())
	assert.False(t, r.Wallet)
	require.Len(t, r.Actions, 2)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "EXECUTE_TRANSACTION")
	assert.Contains(t, out, "GET_WALLET_INFO")
	assert.Contains(t, out, "sk-s****")
	assert.NotContains(t, out, "sk-secret-value")
	assert.Contains(t, out, "Configuration incomplete")
	assert.Contains(t, out, config.KeyBirdeyeAPIKey)
}
