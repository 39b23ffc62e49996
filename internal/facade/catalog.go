package facade

import (
	"BinkAgent-Bridge/internal/capability"
	"BinkAgent-Bridge/internal/provider/alchemy"
	"BinkAgent-Bridge/internal/provider/bink"
	"BinkAgent-Bridge/internal/provider/birdeye"
	"BinkAgent-Bridge/internal/provider/debridge"
	"BinkAgent-Bridge/internal/provider/dex"
	"BinkAgent-Bridge/internal/provider/rpc"
	"BinkAgent-Bridge/internal/provider/venus"
	"BinkAgent-Bridge/pkg/plugin"

	"github.com/ethereum/go-ethereum/common"
)

// 能力名称。
const (
	CapabilitySwap      = "swap"
	CapabilityToken     = "token"
	CapabilityWallet    = "wallet"
	CapabilityStaking   = "staking"
	CapabilityBridge    = "bridge"
	CapabilityKnowledge = "knowledge"
)

// Capability 描述如何构造一个能力插件及其提供方。
type Capability struct {
	New       func() plugin.Plugin
	Providers func(env *Environment) ([]any, error)
	// Options 中的 Providers 字段由 Providers 的结果填充。
	Options plugin.Options
}

// Catalog 以能力名索引 Capability。
type Catalog map[string]Capability

// Clone 返回浅拷贝，便于测试替换单个能力。
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// DefaultCatalog 返回生产环境的能力目录。
func DefaultCatalog() Catalog {
	return Catalog{
		CapabilitySwap: {
			New:       func() plugin.Plugin { return capability.NewSwapPlugin() },
			Providers: swapProviders,
			Options: plugin.Options{
				DefaultSlippage: 0.5,
				DefaultChain:    "bnb",
				SupportedChains: []string{"bnb", "ethereum", "solana"},
			},
		},
		CapabilityToken: {
			New:       func() plugin.Plugin { return capability.NewTokenPlugin() },
			Providers: tokenProviders,
			Options: plugin.Options{
				DefaultChain:    "bnb",
				SupportedChains: []string{"solana", "bnb", "ethereum"},
			},
		},
		CapabilityWallet: {
			New:       func() plugin.Plugin { return capability.NewWalletPlugin() },
			Providers: walletProviders,
			Options: plugin.Options{
				DefaultChain:    "bnb",
				SupportedChains: []string{"bnb", "solana", "ethereum"},
			},
		},
		CapabilityStaking: {
			New:       func() plugin.Plugin { return capability.NewStakingPlugin() },
			Providers: stakingProviders,
			Options: plugin.Options{
				DefaultSlippage: 0.5,
				DefaultChain:    "bnb",
				SupportedChains: []string{"bnb", "ethereum"},
			},
		},
		CapabilityBridge: {
			New:       func() plugin.Plugin { return capability.NewBridgePlugin() },
			Providers: bridgeProviders,
			Options: plugin.Options{
				DefaultChain:    "bnb",
				SupportedChains: []string{"bnb", "ethereum", "solana"},
			},
		},
		CapabilityKnowledge: {
			New:       func() plugin.Plugin { return capability.NewKnowledgePlugin() },
			Providers: knowledgeProviders,
		},
	}
}

func swapProviders(env *Environment) ([]any, error) {
	p, err := dex.New(env.Chains, nil)
	if err != nil {
		return nil, err
	}
	return []any{p}, nil
}

func tokenProviders(env *Environment) ([]any, error) {
	be, err := newBirdeye(env)
	if err != nil {
		return nil, err
	}
	node, err := rpc.New(env.Chains, env.Networks, nil)
	if err != nil {
		return nil, err
	}
	return []any{be, node}, nil
}

func walletProviders(env *Environment) ([]any, error) {
	node, err := rpc.New(env.Chains, env.Networks, nil)
	if err != nil {
		return nil, err
	}
	be, err := newBirdeye(env)
	if err != nil {
		return nil, err
	}
	al, err := alchemy.New(alchemy.Config{APIKey: env.Settings.AlchemyAPIKey})
	if err != nil {
		return nil, err
	}
	env.OnClose(al.Close)
	return []any{node, be, al}, nil
}

func stakingProviders(env *Environment) ([]any, error) {
	p, err := venus.New(env.Chains, common.Address{}, 0)
	if err != nil {
		return nil, err
	}
	return []any{p}, nil
}

func bridgeProviders(env *Environment) ([]any, error) {
	p, err := debridge.New(env.Chains, debridge.Config{HTTPClient: env.HTTPClient})
	if err != nil {
		return nil, err
	}
	return []any{p}, nil
}

func knowledgeProviders(env *Environment) ([]any, error) {
	p, err := bink.New(bink.Config{
		APIKey:     env.Settings.BinkAPIKey,
		APIURL:     env.Settings.BinkAPIURL,
		BaseURL:    env.Settings.BinkBaseURL,
		HTTPClient: env.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	out := []any{p}
	if env.Knowledge != nil {
		out = append(out, env.Knowledge)
	}
	return out, nil
}

func newBirdeye(env *Environment) (*birdeye.Provider, error) {
	return birdeye.New(birdeye.Config{APIKey: env.Settings.BirdeyeAPIKey, HTTPClient: env.HTTPClient})
}
