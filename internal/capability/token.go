package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/pkg/plugin"
)

// TokenPlugin 提供代币信息与搜索。
type TokenPlugin struct {
	*plugin.Base
	providers []provider.TokenInfoProvider
}

// NewTokenPlugin 创建未初始化的代币插件。
func NewTokenPlugin() *TokenPlugin {
	return &TokenPlugin{Base: plugin.NewBase(plugin.Info{
		ID:          "token",
		Name:        "Token",
		Description: "Token metadata, prices and search",
		Version:     pluginVersion,
		Category:    plugin.CategoryToken,
	})}
}

// Initialize 实现 plugin.Plugin。
func (p *TokenPlugin) Initialize(_ context.Context, opts plugin.Options) error {
	providers, err := collect[provider.TokenInfoProvider]("token", opts.Providers)
	if err != nil {
		return err
	}
	if err := checkChains("token", opts, providers); err != nil {
		return err
	}
	p.providers = providers
	p.Activate(opts, []plugin.Tool{
		{
			Name:        "get_token_info",
			Description: "Get token metadata and market data by address or symbol. Use this to find a token address before a swap.",
			Parameters: schema(map[string]any{
				"network": chainProp(opts),
				"address": str("Token contract address"),
				"symbol":  str("Token symbol, used when the address is unknown"),
			}),
			Handler: p.info,
		},
		{
			Name:        "search_token",
			Description: "Search tokens by symbol or name.",
			Parameters: schema(map[string]any{
				"network": chainProp(opts),
				"query":   str("Symbol or name"),
			}, "query"),
			Handler: p.search,
		},
	})
	return nil
}

type tokenArgs struct {
	Network string `json:"network"`
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Query   string `json:"query"`
}

func (p *TokenPlugin) info(ctx context.Context, raw json.RawMessage) (any, error) {
	var args tokenArgs
	if err := plugin.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	chain, err := resolveChain(p.Options(), args.Network)
	if err != nil {
		return nil, err
	}
	if args.Address != "" {
		return firstSuccess(p.providers, chain, func(tp provider.TokenInfoProvider) (*provider.Token, error) {
			return tp.TokenInfo(ctx, chain, args.Address)
		})
	}
	if args.Symbol == "" {
		return nil, errors.New("需要提供 address 或 symbol")
	}
	return firstSuccess(p.providers, chain, func(tp provider.TokenInfoProvider) (*provider.Token, error) {
		tokens, err := tp.SearchToken(ctx, chain, args.Symbol)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			return nil, fmt.Errorf("未找到代币 %s", args.Symbol)
		}
		return &tokens[0], nil
	})
}

func (p *TokenPlugin) search(ctx context.Context, raw json.RawMessage) (any, error) {
	var args tokenArgs
	if err := plugin.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := required("query", args.Query); err != nil {
		return nil, err
	}
	chain, err := resolveChain(p.Options(), args.Network)
	if err != nil {
		return nil, err
	}
	return firstSuccess(p.providers, chain, func(tp provider.TokenInfoProvider) ([]provider.Token, error) {
		return tp.SearchToken(ctx, chain, args.Query)
	})
}

var _ plugin.Plugin = (*TokenPlugin)(nil)
