package capability

import (
	"context"
	"encoding/json"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/pkg/plugin"
)

// StakingPlugin 提供质押市场查询、质押与赎回。
type StakingPlugin struct {
	*plugin.Base
	providers []provider.StakingProvider
}

// NewStakingPlugin 创建未初始化的质押插件。
func NewStakingPlugin() *StakingPlugin {
	return &StakingPlugin{Base: plugin.NewBase(plugin.Info{
		ID:          "staking",
		Name:        "Staking",
		Description: "Supply assets to lending markets and withdraw them",
		Version:     pluginVersion,
		Category:    plugin.CategoryStaking,
	})}
}

// Initialize 实现 plugin.Plugin。
func (p *StakingPlugin) Initialize(_ context.Context, opts plugin.Options) error {
	providers, err := collect[provider.StakingProvider]("staking", opts.Providers)
	if err != nil {
		return err
	}
	if err := checkChains("staking", opts, providers); err != nil {
		return err
	}
	p.providers = providers

	action := schema(map[string]any{
		"network": chainProp(opts),
		"token":   str("Token to stake, e.g. BNB"),
		"amount":  str("Amount in human units"),
	}, "amount")
	p.Activate(opts, []plugin.Tool{
		{
			Name:        "get_staking_info",
			Description: "Get supply APY and the agent wallet's staked position.",
			Parameters:  schema(map[string]any{"network": chainProp(opts)}),
			Handler:     p.info,
		},
		{
			Name:        "stake",
			Description: "Stake tokens from the agent wallet.",
			Parameters:  action,
			Handler:     p.stake,
		},
		{
			Name:        "unstake",
			Description: "Withdraw staked tokens to the agent wallet.",
			Parameters:  action,
			Handler:     p.unstake,
		},
	})
	return nil
}

type stakingArgs struct {
	Network string `json:"network"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

func (p *StakingPlugin) info(ctx context.Context, raw json.RawMessage) (any, error) {
	var args stakingArgs
	if err := plugin.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	chain, err := resolveChain(p.Options(), args.Network)
	if err != nil {
		return nil, err
	}
	address, err := walletAddress(ctx, chain)
	if err != nil {
		return nil, err
	}
	return firstSuccess(p.providers, chain, func(sp provider.StakingProvider) (*provider.StakingInfo, error) {
		return sp.Info(ctx, chain, address)
	})
}

func (p *StakingPlugin) stake(ctx context.Context, raw json.RawMessage) (any, error) {
	return p.run(ctx, raw, provider.StakingProvider.Stake)
}

func (p *StakingPlugin) unstake(ctx context.Context, raw json.RawMessage) (any, error) {
	return p.run(ctx, raw, provider.StakingProvider.Unstake)
}

type stakingOp func(provider.StakingProvider, context.Context, wallet.Handle, provider.StakeRequest) (*provider.Transaction, error)

func (p *StakingPlugin) run(ctx context.Context, raw json.RawMessage, op stakingOp) (any, error) {
	var args stakingArgs
	if err := plugin.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := required("amount", args.Amount); err != nil {
		return nil, err
	}
	chain, err := resolveChain(p.Options(), args.Network)
	if err != nil {
		return nil, err
	}
	w, err := walletFrom(ctx)
	if err != nil {
		return nil, err
	}
	sp, err := pick(p.providers, chain)
	if err != nil {
		return nil, err
	}
	return op(sp, ctx, w, provider.StakeRequest{Chain: chain, Token: args.Token, Amount: args.Amount})
}

var _ plugin.Plugin = (*StakingPlugin)(nil)
