// Package alchemy 通过 Alchemy 增强 JSON-RPC 接口查询 EVM 钱包的 ERC-20 持仓。
package alchemy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"BinkAgent-Bridge/internal/provider"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

var networkHosts = map[string]string{
	"bnb":      "bnb-mainnet",
	"ethereum": "eth-mainnet",
}

// Config 描述 Alchemy 接入参数。Endpoints 可覆盖各链的完整 URL。
type Config struct {
	APIKey    string
	Endpoints map[string]string
}

// Provider 实现 WalletProvider。
type Provider struct {
	apiKey    string
	endpoints map[string]string

	mu      sync.Mutex
	clients map[string]*gethrpc.Client
}

// New 创建 Alchemy 提供方，连接在首次查询时建立。
func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("未提供 Alchemy API Key")
	}
	endpoints := make(map[string]string, len(networkHosts))
	for chain, host := range networkHosts {
		endpoints[chain] = fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", host, cfg.APIKey)
	}
	for chain, url := range cfg.Endpoints {
		endpoints[chain] = url
	}
	return &Provider{apiKey: cfg.APIKey, endpoints: endpoints, clients: make(map[string]*gethrpc.Client)}, nil
}

// Name 实现 provider.Provider。
func (p *Provider) Name() string { return "alchemy" }

// SupportedChains 实现 provider.Provider。
func (p *Provider) SupportedChains() []string { return []string{"bnb", "ethereum"} }

// Close 关闭已建立的 RPC 连接。
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for chain, c := range p.clients {
		c.Close()
		delete(p.clients, chain)
	}
}

type tokenBalances struct {
	Address       string `json:"address"`
	TokenBalances []struct {
		ContractAddress string  `json:"contractAddress"`
		TokenBalance    *string `json:"tokenBalance"`
		Error           *string `json:"error"`
	} `json:"tokenBalances"`
}

type tokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals *int   `json:"decimals"`
}

// Portfolio 列出钱包持有的非零 ERC-20 余额。
func (p *Provider) Portfolio(ctx context.Context, chain, address string) (*provider.Portfolio, error) {
	client, err := p.client(ctx, chain)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("无效的 EVM 地址 %q", address)
	}

	var balances tokenBalances
	if err := client.CallContext(ctx, &balances, "alchemy_getTokenBalances", address, "erc20"); err != nil {
		return nil, fmt.Errorf("查询 Alchemy 代币余额失败: %w", err)
	}

	out := &provider.Portfolio{Provider: p.Name(), Chain: chain, Address: address}
	for _, entry := range balances.TokenBalances {
		if entry.Error != nil || entry.TokenBalance == nil {
			continue
		}
		raw, err := hexutil.DecodeBig(normalizeHex(*entry.TokenBalance))
		if err != nil || raw.Sign() == 0 {
			continue
		}

		var meta tokenMetadata
		if err := client.CallContext(ctx, &meta, "alchemy_getTokenMetadata", entry.ContractAddress); err != nil {
			return nil, fmt.Errorf("查询代币 %s 元数据失败: %w", entry.ContractAddress, err)
		}
		decimals := uint8(18)
		if meta.Decimals != nil && *meta.Decimals >= 0 && *meta.Decimals <= 255 {
			decimals = uint8(*meta.Decimals)
		}
		out.Holdings = append(out.Holdings, provider.Holding{
			Token: provider.Token{
				Chain:    chain,
				Address:  entry.ContractAddress,
				Symbol:   meta.Symbol,
				Name:     meta.Name,
				Decimals: decimals,
			},
			Balance: provider.FormatUnits(raw, decimals),
		})
	}
	return out, nil
}

func (p *Provider) client(ctx context.Context, chain string) (*gethrpc.Client, error) {
	chain = strings.ToLower(strings.TrimSpace(chain))
	endpoint, ok := p.endpoints[chain]
	if !ok {
		return nil, fmt.Errorf("Alchemy 不支持链 %s", chain)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[chain]; ok {
		return c, nil
	}
	c, err := gethrpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("连接 Alchemy %s 失败: %w", chain, err)
	}
	p.clients[chain] = c
	return c, nil
}

// normalizeHex 去掉 Alchemy 返回值中的前导零，满足 hexutil 的格式要求。
func normalizeHex(v string) string {
	trimmed := strings.TrimLeft(strings.TrimPrefix(v, "0x"), "0")
	if trimmed == "" {
		return "0x0"
	}
	return "0x" + trimmed
}

var _ provider.WalletProvider = (*Provider)(nil)
