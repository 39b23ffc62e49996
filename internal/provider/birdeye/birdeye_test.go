package birdeye

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"BinkAgent-Bridge/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/defi/token_overview":
			if r.Header.Get("x-chain") != "bsc" {
				http.Error(w, "bad chain", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"address":"` + r.URL.Query().Get("address") + `","symbol":"BNB","name":"BNB","decimals":18,"price":600.5,"marketCap":9e10,"liquidity":1e8,"v24hUSD":5e8,"priceChange24hPercent":-1.2}}`))
		case "/defi/v3/search":
			_, _ = w.Write([]byte(`{"success":true,"data":{"items":[{"type":"market","result":[{"address":"pool"}]},{"type":"token","result":[{"address":"0x55d398326f99059fF775485246999027B3197955","symbol":"USDT","name":"Tether USD","decimals":18,"price":1}]}]}}`))
		case "/v1/wallet/token_list":
			_, _ = w.Write([]byte(`{"success":true,"data":{"wallet":"w","totalUsd":12.5,"items":[{"address":"So11111111111111111111111111111111111111112","symbol":"SOL","name":"Solana","decimals":9,"uiAmount":0.25,"priceUsd":50,"valueUsd":12.5}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestTokenInfoMapsNativeAddress(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	p, err := New(Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	token, err := p.TokenInfo(context.Background(), "bnb", "BNB")
	require.NoError(t, err)
	assert.Equal(t, provider.EVMNativeToken, token.Address)
	assert.Equal(t, 600.5, token.PriceUSD)
	assert.Equal(t, -1.2, token.PriceChange24h)
}

func TestSearchTokenSkipsNonTokenItems(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	p, err := New(Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	tokens, err := p.SearchToken(context.Background(), "bnb", "USDT")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "USDT", tokens[0].Symbol)
}

func TestPortfolio(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	p, err := New(Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	portfolio, err := p.Portfolio(context.Background(), "solana", "w")
	require.NoError(t, err)
	assert.Equal(t, 12.5, portfolio.TotalUSD)
	require.Len(t, portfolio.Holdings, 1)
	assert.Equal(t, "0.25", portfolio.Holdings[0].Balance)
}

func TestUnsupportedChainAndMissingKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	p, err := New(Config{APIKey: "key", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = p.TokenInfo(context.Background(), "polygon", "0x1")
	assert.Error(t, err)
}
