package capability

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/pkg/plugin"
)

// BridgePlugin 提供跨链报价与执行。
type BridgePlugin struct {
	*plugin.Base
	providers []provider.BridgeProvider
}

// NewBridgePlugin 创建未初始化的跨链插件。
func NewBridgePlugin() *BridgePlugin {
	return &BridgePlugin{Base: plugin.NewBase(plugin.Info{
		ID:          "bridge",
		Name:        "Bridge",
		Description: "Cross-chain transfers between supported networks",
		Version:     pluginVersion,
		Category:    plugin.CategoryBridge,
	})}
}

// Initialize 实现 plugin.Plugin。
func (p *BridgePlugin) Initialize(_ context.Context, opts plugin.Options) error {
	providers, err := collect[provider.BridgeProvider]("bridge", opts.Providers)
	if err != nil {
		return err
	}
	if err := checkChains("bridge", opts, providers); err != nil {
		return err
	}
	p.providers = providers

	params := schema(map[string]any{
		"from_network": chainProp(opts),
		"to_network":   chainProp(opts),
		"from_token":   str("Token to send: address or native"),
		"to_token":     str("Token to receive on the destination: address or native"),
		"amount":       str("Amount of from_token in human units"),
		"recipient":    str("Destination address, defaults to the agent wallet"),
	}, "to_network", "amount")
	p.Activate(opts, []plugin.Tool{
		{
			Name:        "get_bridge_quote",
			Description: "Quote a cross-chain transfer without executing it.",
			Parameters:  params,
			Handler:     p.quote,
		},
		{
			Name:        "bridge",
			Description: "Bridge tokens from the agent wallet to another network.",
			Parameters:  params,
			Handler:     p.bridge,
		},
	})
	return nil
}

type bridgeArgs struct {
	FromNetwork string `json:"from_network"`
	ToNetwork   string `json:"to_network"`
	FromToken   string `json:"from_token"`
	ToToken     string `json:"to_token"`
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient"`
}

func (p *BridgePlugin) request(raw json.RawMessage) (provider.BridgeRequest, error) {
	var args bridgeArgs
	if err := plugin.DecodeArgs(raw, &args); err != nil {
		return provider.BridgeRequest{}, err
	}
	if err := required("amount", args.Amount); err != nil {
		return provider.BridgeRequest{}, err
	}
	if err := required("to_network", args.ToNetwork); err != nil {
		return provider.BridgeRequest{}, err
	}
	opts := p.Options()
	from, err := resolveChain(opts, args.FromNetwork)
	if err != nil {
		return provider.BridgeRequest{}, err
	}
	to, err := resolveChain(opts, args.ToNetwork)
	if err != nil {
		return provider.BridgeRequest{}, err
	}
	if strings.EqualFold(from, to) {
		return provider.BridgeRequest{}, errors.New("源链与目标链不能相同")
	}
	return provider.BridgeRequest{
		FromChain: from,
		ToChain:   to,
		FromToken: args.FromToken,
		ToToken:   args.ToToken,
		Amount:    args.Amount,
		Recipient: args.Recipient,
	}, nil
}

func (p *BridgePlugin) quote(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := p.request(raw)
	if err != nil {
		return nil, err
	}
	w, err := walletFrom(ctx)
	if err != nil {
		return nil, err
	}
	return firstSuccess(p.providers, req.FromChain, func(bp provider.BridgeProvider) (*provider.BridgeQuote, error) {
		return bp.Quote(ctx, w, req)
	})
}

func (p *BridgePlugin) bridge(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := p.request(raw)
	if err != nil {
		return nil, err
	}
	w, err := walletFrom(ctx)
	if err != nil {
		return nil, err
	}
	bp, err := pick(p.providers, req.FromChain)
	if err != nil {
		return nil, err
	}
	return bp.Bridge(ctx, w, req)
}

var _ plugin.Plugin = (*BridgePlugin)(nil)
