// Package birdeye 通过 Birdeye 公共 API 提供代币行情与钱包持仓。
package birdeye

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"BinkAgent-Bridge/internal/provider"
)

const defaultBaseURL = "https://public-api.birdeye.so"

var chainAliases = map[string]string{
	"bnb":      "bsc",
	"ethereum": "ethereum",
	"solana":   "solana",
}

// Config 描述 Birdeye 客户端参数。
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Provider 实现 TokenInfoProvider 与 WalletProvider。
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New 创建 Birdeye 提供方。
func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("未提供 Birdeye API Key")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: provider.DefaultHTTPTimeout}
	}
	return &Provider{apiKey: cfg.APIKey, baseURL: base, client: client}, nil
}

// Name 实现 provider.Provider。
func (p *Provider) Name() string { return "birdeye" }

// SupportedChains 实现 provider.Provider。
func (p *Provider) SupportedChains() []string { return []string{"bnb", "ethereum", "solana"} }

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type tokenOverview struct {
	Address        string  `json:"address"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Decimals       uint8   `json:"decimals"`
	Price          float64 `json:"price"`
	MarketCap      float64 `json:"marketCap"`
	Liquidity      float64 `json:"liquidity"`
	V24hUSD        float64 `json:"v24hUSD"`
	PriceChange24h float64 `json:"priceChange24hPercent"`
}

// TokenInfo 查询代币概览。
func (p *Provider) TokenInfo(ctx context.Context, chain, address string) (*provider.Token, error) {
	xchain, err := p.chain(chain)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(address) == "" {
		return nil, errors.New("代币地址不能为空")
	}
	if provider.IsNative(address) {
		address = nativeAddress(chain)
	}

	var resp envelope[tokenOverview]
	endpoint := p.baseURL + "/defi/token_overview?address=" + url.QueryEscape(address)
	if err := provider.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.headers(xchain), nil, &resp); err != nil {
		return nil, fmt.Errorf("查询 Birdeye 代币信息失败: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("Birdeye 未返回代币 %s: %s", address, resp.Message)
	}
	d := resp.Data
	return &provider.Token{
		Chain:          chain,
		Address:        d.Address,
		Symbol:         d.Symbol,
		Name:           d.Name,
		Decimals:       d.Decimals,
		PriceUSD:       d.Price,
		MarketCapUSD:   d.MarketCap,
		LiquidityUSD:   d.Liquidity,
		Volume24hUSD:   d.V24hUSD,
		PriceChange24h: d.PriceChange24h,
	}, nil
}

type searchResult struct {
	Items []struct {
		Type   string `json:"type"`
		Result []struct {
			Address   string  `json:"address"`
			Symbol    string  `json:"symbol"`
			Name      string  `json:"name"`
			Decimals  uint8   `json:"decimals"`
			Price     float64 `json:"price"`
			MarketCap float64 `json:"market_cap"`
			Liquidity float64 `json:"liquidity"`
			Volume24h float64 `json:"volume_24h_usd"`
		} `json:"result"`
	} `json:"items"`
}

// SearchToken 按符号或名称搜索代币，按 Birdeye 的排序返回。
func (p *Provider) SearchToken(ctx context.Context, chain, query string) ([]provider.Token, error) {
	xchain, err := p.chain(chain)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("搜索关键字不能为空")
	}

	params := url.Values{}
	params.Set("keyword", query)
	params.Set("chain", xchain)
	params.Set("target", "token")
	params.Set("sort_by", "liquidity")
	params.Set("sort_type", "desc")
	params.Set("limit", "5")

	var resp envelope[searchResult]
	endpoint := p.baseURL + "/defi/v3/search?" + params.Encode()
	if err := provider.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.headers(xchain), nil, &resp); err != nil {
		return nil, fmt.Errorf("搜索 Birdeye 代币失败: %w", err)
	}

	var tokens []provider.Token
	for _, item := range resp.Data.Items {
		if item.Type != "" && item.Type != "token" {
			continue
		}
		for _, r := range item.Result {
			tokens = append(tokens, provider.Token{
				Chain:        chain,
				Address:      r.Address,
				Symbol:       r.Symbol,
				Name:         r.Name,
				Decimals:     r.Decimals,
				PriceUSD:     r.Price,
				MarketCapUSD: r.MarketCap,
				LiquidityUSD: r.Liquidity,
				Volume24hUSD: r.Volume24h,
			})
		}
	}
	return tokens, nil
}

type walletTokenList struct {
	Wallet   string  `json:"wallet"`
	TotalUSD float64 `json:"totalUsd"`
	Items    []struct {
		Address  string  `json:"address"`
		Symbol   string  `json:"symbol"`
		Name     string  `json:"name"`
		Decimals uint8   `json:"decimals"`
		UIAmount float64 `json:"uiAmount"`
		PriceUSD float64 `json:"priceUsd"`
		ValueUSD float64 `json:"valueUsd"`
	} `json:"items"`
}

// Portfolio 查询钱包在 chain 上的持仓。
func (p *Provider) Portfolio(ctx context.Context, chain, address string) (*provider.Portfolio, error) {
	xchain, err := p.chain(chain)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(address) == "" {
		return nil, errors.New("钱包地址不能为空")
	}

	var resp envelope[walletTokenList]
	endpoint := p.baseURL + "/v1/wallet/token_list?wallet=" + url.QueryEscape(address)
	if err := provider.DoJSON(ctx, p.client, http.MethodGet, endpoint, p.headers(xchain), nil, &resp); err != nil {
		return nil, fmt.Errorf("查询 Birdeye 钱包持仓失败: %w", err)
	}

	out := &provider.Portfolio{Provider: p.Name(), Chain: chain, Address: address, TotalUSD: resp.Data.TotalUSD}
	for _, item := range resp.Data.Items {
		out.Holdings = append(out.Holdings, provider.Holding{
			Token: provider.Token{
				Chain:    chain,
				Address:  item.Address,
				Symbol:   item.Symbol,
				Name:     item.Name,
				Decimals: item.Decimals,
				PriceUSD: item.PriceUSD,
			},
			Balance:  fmt.Sprintf("%g", item.UIAmount),
			ValueUSD: item.ValueUSD,
		})
	}
	return out, nil
}

func (p *Provider) chain(chain string) (string, error) {
	xchain, ok := chainAliases[strings.ToLower(strings.TrimSpace(chain))]
	if !ok {
		return "", fmt.Errorf("Birdeye 不支持链 %s", chain)
	}
	return xchain, nil
}

func (p *Provider) headers(xchain string) map[string]string {
	return map[string]string{
		"X-API-KEY": p.apiKey,
		"x-chain":   xchain,
	}
}

func nativeAddress(chain string) string {
	if strings.EqualFold(chain, "solana") {
		return provider.SolanaNativeToken
	}
	return provider.EVMNativeToken
}

var (
	_ provider.TokenInfoProvider = (*Provider)(nil)
	_ provider.WalletProvider    = (*Provider)(nil)
)
