package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/pkg/plugin"
)

// SwapPlugin 在所有支持该链的提供方中选择输出最多的报价执行兑换。
type SwapPlugin struct {
	*plugin.Base
	providers []provider.SwapProvider
}

// NewSwapPlugin 创建未初始化的兑换插件。
func NewSwapPlugin() *SwapPlugin {
	return &SwapPlugin{Base: plugin.NewBase(plugin.Info{
		ID:          "swap",
		Name:        "Swap",
		Description: "Token swaps routed to the best quoting provider",
		Version:     pluginVersion,
		Category:    plugin.CategorySwap,
	})}
}

// Initialize 实现 plugin.Plugin。
func (p *SwapPlugin) Initialize(_ context.Context, opts plugin.Options) error {
	providers, err := collect[provider.SwapProvider]("swap", opts.Providers)
	if err != nil {
		return err
	}
	if err := checkChains("swap", opts, providers); err != nil {
		return err
	}
	p.providers = providers

	params := schema(map[string]any{
		"network":    chainProp(opts),
		"from_token": str("Token to sell: address, symbol, or native"),
		"to_token":   str("Token to buy: address, symbol, or native"),
		"amount":     str("Amount of from_token in human units, e.g. 0.01"),
		"slippage": map[string]any{
			"type":        "number",
			"description": fmt.Sprintf("Max slippage percent, default %g", opts.DefaultSlippage),
		},
	}, "from_token", "to_token", "amount")
	p.Activate(opts, []plugin.Tool{
		{
			Name:        "get_swap_quote",
			Description: "Quote a token swap without executing it.",
			Parameters:  params,
			Handler:     p.quote,
		},
		{
			Name:        "swap",
			Description: "Swap tokens with the agent wallet using the best available quote.",
			Parameters:  params,
			Handler:     p.swap,
		},
	})
	return nil
}

type swapArgs struct {
	Network   string   `json:"network"`
	FromToken string   `json:"from_token"`
	ToToken   string   `json:"to_token"`
	Amount    string   `json:"amount"`
	Slippage  *float64 `json:"slippage"`
}

func (p *SwapPlugin) request(raw json.RawMessage) (provider.SwapRequest, error) {
	var args swapArgs
	if err := plugin.DecodeArgs(raw, &args); err != nil {
		return provider.SwapRequest{}, err
	}
	for name, v := range map[string]string{"from_token": args.FromToken, "to_token": args.ToToken, "amount": args.Amount} {
		if err := required(name, v); err != nil {
			return provider.SwapRequest{}, err
		}
	}
	opts := p.Options()
	chain, err := resolveChain(opts, args.Network)
	if err != nil {
		return provider.SwapRequest{}, err
	}
	slippage := opts.DefaultSlippage
	if args.Slippage != nil {
		slippage = *args.Slippage
	}
	if slippage < 0 || slippage > 50 {
		return provider.SwapRequest{}, fmt.Errorf("滑点 %g%% 超出范围", slippage)
	}
	return provider.SwapRequest{
		Chain:     chain,
		FromToken: args.FromToken,
		ToToken:   args.ToToken,
		Amount:    args.Amount,
		Slippage:  slippage,
	}, nil
}

type bestQuote struct {
	provider provider.SwapProvider
	quote    *provider.SwapQuote
}

// best 并列询价，选择 AmountOut 最大的报价。
func (p *SwapPlugin) best(ctx context.Context, req provider.SwapRequest) (*bestQuote, error) {
	var (
		winner *bestQuote
		top    *big.Rat
		errs   []error
	)
	for _, sp := range p.providers {
		if !provider.Supports(sp, req.Chain) {
			continue
		}
		q, err := sp.Quote(ctx, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sp.Name(), err))
			continue
		}
		out, ok := new(big.Rat).SetString(q.AmountOut)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: 无法解析报价 %q", sp.Name(), q.AmountOut))
			continue
		}
		if top == nil || out.Cmp(top) > 0 {
			top = out
			winner = &bestQuote{provider: sp, quote: q}
		}
	}
	if winner != nil {
		return winner, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("没有提供方支持在 %s 上兑换", req.Chain)
	}
	return nil, fmt.Errorf("未找到兑换路径: %w", errors.Join(errs...))
}

func (p *SwapPlugin) quote(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := p.request(raw)
	if err != nil {
		return nil, err
	}
	best, err := p.best(ctx, req)
	if err != nil {
		return nil, err
	}
	return best.quote, nil
}

func (p *SwapPlugin) swap(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := p.request(raw)
	if err != nil {
		return nil, err
	}
	w, err := walletFrom(ctx)
	if err != nil {
		return nil, err
	}
	best, err := p.best(ctx, req)
	if err != nil {
		return nil, err
	}
	return best.provider.Swap(ctx, w, req)
}

var _ plugin.Plugin = (*SwapPlugin)(nil)
