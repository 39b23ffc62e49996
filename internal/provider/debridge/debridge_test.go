package debridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/internal/web3"
	"BinkAgent-Bridge/internal/web3/web3test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type clients map[wallet.NetworkName]web3.Client

func (c clients) Client(name wallet.NetworkName) (web3.Client, bool) {
	client, ok := c[name]
	return client, ok
}

func newWallet(t *testing.T) *wallet.SeedWallet {
	t.Helper()
	w, err := wallet.New(testSeed, 0, wallet.DefaultNetworks(wallet.RPCEndpoints{BNB: "https://bsc", Ethereum: "https://eth"}))
	require.NoError(t, err)
	return w
}

func dlnServer(t *testing.T, captured *url.Values) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dln/order/create-tx" {
			http.NotFound(w, r)
			return
		}
		*captured = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"estimation": map[string]any{
				"srcChainTokenIn":  map[string]any{"amount": "100000000000000000", "decimals": 18, "symbol": "BNB"},
				"dstChainTokenOut": map[string]any{"amount": "25000000000000000", "recommendedAmount": "24900000000000000", "decimals": 18, "symbol": "ETH"},
			},
			"tx": map[string]any{
				"to":    "0xeF4fB24aD0916217251F553c0596F8Edc630EB66",
				"data":  "0xdeadbeef",
				"value": "101000000000000000",
			},
			"order":  map[string]any{"approximateFulfillmentDelay": 12},
			"fixFee": "1000000000000000",
		})
	}))
}

func TestQuoteBuildsOrderRequest(t *testing.T) {
	var query url.Values
	srv := dlnServer(t, &query)
	defer srv.Close()

	p, err := New(clients{wallet.NetworkBNB: web3test.NewFakeClient()}, Config{BaseURL: srv.URL})
	require.NoError(t, err)

	q, err := p.Quote(context.Background(), newWallet(t), provider.BridgeRequest{
		FromChain: "bnb", ToChain: "ethereum", FromToken: "BNB", ToToken: "ETH", Amount: "0.1",
	})
	require.NoError(t, err)

	assert.Equal(t, "56", query.Get("srcChainId"))
	assert.Equal(t, "1", query.Get("dstChainId"))
	assert.Equal(t, "100000000000000000", query.Get("srcChainTokenInAmount"))
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", query.Get("senderAddress"))
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", query.Get("dstChainTokenOutRecipient"))

	assert.Equal(t, "0.1", q.AmountIn)
	assert.Equal(t, "0.0249", q.AmountOut)
	assert.Equal(t, "0.001", q.Fee)
	assert.Equal(t, 12, q.EstimatedSeconds)
}

func TestBridgeSendsSourceTransaction(t *testing.T) {
	var query url.Values
	srv := dlnServer(t, &query)
	defer srv.Close()

	fake := web3test.NewFakeClient()
	p, err := New(clients{wallet.NetworkBNB: fake}, Config{BaseURL: srv.URL})
	require.NoError(t, err)

	tx, err := p.Bridge(context.Background(), newWallet(t), provider.BridgeRequest{
		FromChain: "bnb", ToChain: "ethereum", FromToken: "native", ToToken: "native", Amount: "0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, "debridge", tx.Provider)
	assert.Equal(t, "bnb", tx.Chain)

	sent := fake.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "101000000000000000", sent[0].Value.String())
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, sent[0].Data)
}

func TestPrepareRejectsInvalidRoutes(t *testing.T) {
	p, err := New(clients{wallet.NetworkBNB: web3test.NewFakeClient()}, Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	w := newWallet(t)

	cases := []provider.BridgeRequest{
		{FromChain: "bnb", ToChain: "bnb", Amount: "1"},
		{FromChain: "solana", ToChain: "bnb", Amount: "1"},
		{FromChain: "polygon", ToChain: "bnb", Amount: "1"},
		{FromChain: "ethereum", ToChain: "bnb", Amount: "1"},
		{FromChain: "bnb", ToChain: "ethereum", FromToken: "USDT", Amount: "1"},
	}
	for _, req := range cases {
		_, err := p.Quote(context.Background(), w, req)
		assert.Error(t, err, "%+v", req)
	}
}
