// Package rpc 直接通过 EVM 节点读取原生余额、ERC-20 余额与代币元数据。
package rpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/internal/web3"

	"github.com/ethereum/go-ethereum/common"
)

// WatchedToken 是 Portfolio 会主动查询余额的代币。
type WatchedToken struct {
	Symbol  string
	Address common.Address
}

// DefaultWatchlist 列出各链常用稳定币。
func DefaultWatchlist() map[wallet.NetworkName][]WatchedToken {
	return map[wallet.NetworkName][]WatchedToken{
		wallet.NetworkBNB: {
			{Symbol: "USDT", Address: common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")},
			{Symbol: "USDC", Address: common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d")},
			{Symbol: "WBNB", Address: common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")},
		},
		wallet.NetworkEthereum: {
			{Symbol: "USDT", Address: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")},
			{Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")},
			{Symbol: "WETH", Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")},
		},
	}
}

// ClientSource 按网络名返回链客户端，web3/provider.Registry 满足该接口。
type ClientSource interface {
	Client(name wallet.NetworkName) (web3.Client, bool)
	Chains() []wallet.NetworkName
}

// Provider 实现 WalletProvider 与 TokenInfoProvider。
type Provider struct {
	clients   ClientSource
	networks  wallet.Networks
	watchlist map[wallet.NetworkName][]WatchedToken
}

// New 创建节点直连提供方，watchlist 为 nil 时使用 DefaultWatchlist。
func New(clients ClientSource, networks wallet.Networks, watchlist map[wallet.NetworkName][]WatchedToken) (*Provider, error) {
	if clients == nil {
		return nil, errors.New("未提供链客户端")
	}
	if watchlist == nil {
		watchlist = DefaultWatchlist()
	}
	return &Provider{clients: clients, networks: networks.Clone(), watchlist: watchlist}, nil
}

// Name 实现 provider.Provider。
func (p *Provider) Name() string { return "rpc" }

// SupportedChains 返回已连接的 EVM 网络。
func (p *Provider) SupportedChains() []string {
	chains := p.clients.Chains()
	out := make([]string, 0, len(chains))
	for _, c := range chains {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// Portfolio 返回原生余额以及关注列表中非零的代币余额。
func (p *Provider) Portfolio(ctx context.Context, chain, address string) (*provider.Portfolio, error) {
	network := wallet.NetworkName(strings.ToLower(chain))
	client, ok := p.clients.Client(network)
	if !ok {
		return nil, fmt.Errorf("节点提供方不支持链 %s", chain)
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("无效的 EVM 地址 %q", address)
	}
	owner := common.HexToAddress(address)

	native, err := client.NativeBalance(ctx, owner)
	if err != nil {
		return nil, err
	}
	currency := p.networks[network].NativeCurrency
	out := &provider.Portfolio{Provider: p.Name(), Chain: chain, Address: address}
	out.Holdings = append(out.Holdings, provider.Holding{
		Token: provider.Token{
			Chain:    chain,
			Address:  provider.EVMNativeToken,
			Symbol:   currency.Symbol,
			Name:     currency.Name,
			Decimals: currency.Decimals,
		},
		Balance: provider.FormatUnits(native, currency.Decimals),
	})

	for _, token := range p.watchlist[network] {
		balance, err := web3.ERC20BalanceOf(ctx, client, token.Address, owner)
		if err != nil {
			return nil, fmt.Errorf("查询 %s 余额失败: %w", token.Symbol, err)
		}
		if balance.Sign() == 0 {
			continue
		}
		meta, err := web3.ERC20Metadata(ctx, client, token.Address)
		if err != nil {
			return nil, fmt.Errorf("查询 %s 元数据失败: %w", token.Symbol, err)
		}
		out.Holdings = append(out.Holdings, provider.Holding{
			Token: provider.Token{
				Chain:    chain,
				Address:  token.Address.Hex(),
				Symbol:   meta.Symbol,
				Name:     meta.Name,
				Decimals: meta.Decimals,
			},
			Balance: provider.FormatUnits(balance, meta.Decimals),
		})
	}
	return out, nil
}

// TokenInfo 读取 ERC-20 元数据，原生代币返回网络定义中的信息。
func (p *Provider) TokenInfo(ctx context.Context, chain, address string) (*provider.Token, error) {
	network := wallet.NetworkName(strings.ToLower(chain))
	client, ok := p.clients.Client(network)
	if !ok {
		return nil, fmt.Errorf("节点提供方不支持链 %s", chain)
	}
	if provider.IsNative(address) {
		currency := p.networks[network].NativeCurrency
		return &provider.Token{Chain: chain, Address: provider.EVMNativeToken, Symbol: currency.Symbol, Name: currency.Name, Decimals: currency.Decimals}, nil
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("无效的代币地址 %q", address)
	}
	meta, err := web3.ERC20Metadata(ctx, client, common.HexToAddress(address))
	if err != nil {
		return nil, err
	}
	return &provider.Token{Chain: chain, Address: meta.Address.Hex(), Symbol: meta.Symbol, Name: meta.Name, Decimals: meta.Decimals}, nil
}

// SearchToken 在关注列表中按符号匹配。
func (p *Provider) SearchToken(ctx context.Context, chain, query string) ([]provider.Token, error) {
	network := wallet.NetworkName(strings.ToLower(chain))
	var out []provider.Token
	for _, token := range p.watchlist[network] {
		if !strings.EqualFold(token.Symbol, strings.TrimSpace(query)) {
			continue
		}
		info, err := p.TokenInfo(ctx, chain, token.Address.Hex())
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, nil
}

var (
	_ provider.WalletProvider    = (*Provider)(nil)
	_ provider.TokenInfoProvider = (*Provider)(nil)
)
