package capability

import (
	"context"
	"encoding/json"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/pkg/plugin"
)

// WalletPlugin 提供钱包地址与持仓查询。
type WalletPlugin struct {
	*plugin.Base
	providers []provider.WalletProvider
}

// NewWalletPlugin 创建未初始化的钱包插件。
func NewWalletPlugin() *WalletPlugin {
	return &WalletPlugin{Base: plugin.NewBase(plugin.Info{
		ID:          "wallet",
		Name:        "Wallet",
		Description: "Wallet addresses and balances across networks",
		Version:     pluginVersion,
		Category:    plugin.CategoryWallet,
	})}
}

// Initialize 实现 plugin.Plugin。
func (p *WalletPlugin) Initialize(_ context.Context, opts plugin.Options) error {
	providers, err := collect[provider.WalletProvider]("wallet", opts.Providers)
	if err != nil {
		return err
	}
	if err := checkChains("wallet", opts, providers); err != nil {
		return err
	}
	p.providers = providers
	p.Activate(opts, []plugin.Tool{
		{
			Name:        "get_wallet_address",
			Description: "Get the agent wallet address on one network, or on every configured network when none is given.",
			Parameters:  schema(map[string]any{"network": chainProp(opts)}),
			Handler:     p.address,
		},
		{
			Name:        "get_wallet_balance",
			Description: "Get native and token balances of a wallet. Defaults to the agent wallet.",
			Parameters: schema(map[string]any{
				"network": chainProp(opts),
				"address": str("Wallet address, defaults to the agent wallet"),
			}),
			Handler: p.balance,
		},
	})
	return nil
}

type walletArgs struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

func (p *WalletPlugin) address(ctx context.Context, raw json.RawMessage) (any, error) {
	var args walletArgs
	if err := plugin.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	w, err := walletFrom(ctx)
	if err != nil {
		return nil, err
	}
	opts := p.Options()
	chains := opts.SupportedChains
	if args.Network != "" {
		chain, err := resolveChain(opts, args.Network)
		if err != nil {
			return nil, err
		}
		chains = []string{chain}
	}
	out := make(map[string]string, len(chains))
	for _, chain := range chains {
		addr, err := w.Address(ctx, wallet.NetworkName(chain))
		if err != nil || addr == "" {
			continue
		}
		out[chain] = addr
	}
	return out, nil
}

func (p *WalletPlugin) balance(ctx context.Context, raw json.RawMessage) (any, error) {
	var args walletArgs
	if err := plugin.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	chain, err := resolveChain(p.Options(), args.Network)
	if err != nil {
		return nil, err
	}
	address := args.Address
	if address == "" {
		if address, err = walletAddress(ctx, chain); err != nil {
			return nil, err
		}
	}
	return firstSuccess(p.providers, chain, func(wp provider.WalletProvider) (*provider.Portfolio, error) {
		return wp.Portfolio(ctx, chain, address)
	})
}

var _ plugin.Plugin = (*WalletPlugin)(nil)
