package facade

import (
	"context"
	"net/http"
	"time"

	"BinkAgent-Bridge/internal/config"
	xerrors "BinkAgent-Bridge/internal/errors"
	"BinkAgent-Bridge/internal/knowledge"
	"BinkAgent-Bridge/internal/llm"
	"BinkAgent-Bridge/internal/llm/openai"
	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/internal/web3"
	chainreg "BinkAgent-Bridge/internal/web3/provider"
)

// ChainSource 按网络名提供 EVM 链客户端。
type ChainSource interface {
	Client(name wallet.NetworkName) (web3.Client, bool)
	Chains() []wallet.NetworkName
}

// Environment 汇集了构造提供方与智能体所需的外部依赖。
type Environment struct {
	Settings   *config.Settings
	Networks   wallet.Networks
	LLM        llm.Client
	Chains     ChainSource
	Knowledge  *knowledge.StaticProvider
	HTTPClient *http.Client

	closers []func()
}

// OnClose 登记在 Close 时释放的资源。
func (e *Environment) OnClose(fn func()) {
	if fn != nil {
		e.closers = append(e.closers, fn)
	}
}

// Close 按登记的逆序释放资源。
func (e *Environment) Close() {
	if e == nil {
		return
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// EnvironmentFunc 根据已校验的配置构造 Environment。
type EnvironmentFunc func(ctx context.Context, settings *config.Settings) (*Environment, error)

// EnvironmentOptions 是默认 EnvironmentFunc 的参数。
type EnvironmentOptions struct {
	LLMBaseURL string
	LLMModel   string
	LLMTimeout time.Duration
	// ChainConfig 为可选的网络覆盖 YAML。
	ChainConfig string
	Knowledge   *knowledge.StaticProvider
	Dial        chainreg.Dialer
}

// Networks 由配置中的 RPC 地址生成网络定义，并应用可选的覆盖文件。
func Networks(settings *config.Settings, chainConfig string) (wallet.Networks, error) {
	networks := wallet.DefaultNetworks(wallet.RPCEndpoints{
		BNB:      settings.BSCRPCURL,
		Ethereum: settings.EthereumRPCURL,
		Solana:   settings.SolanaRPCURL,
	})
	defs, err := wallet.LoadChainDefinitions(chainConfig)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "加载网络定义失败")
	}
	networks, err = defs.Apply(networks)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "应用网络定义失败")
	}
	return networks, nil
}

// NewEnvironmentFunc 返回默认实现：OpenAI 客户端加 go-ethereum 链客户端注册表。
func NewEnvironmentFunc(opts EnvironmentOptions) EnvironmentFunc {
	return func(ctx context.Context, settings *config.Settings) (*Environment, error) {
		networks, err := Networks(settings, opts.ChainConfig)
		if err != nil {
			return nil, err
		}
		client, err := openai.NewClient(openai.Config{
			APIKey:  settings.OpenAIAPIKey,
			BaseURL: opts.LLMBaseURL,
			Model:   opts.LLMModel,
			Timeout: opts.LLMTimeout,
		})
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "创建大模型客户端失败")
		}
		registry, err := chainreg.NewRegistry(ctx, networks, opts.Dial)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "连接链节点失败")
		}
		env := &Environment{
			Settings:   settings,
			Networks:   networks,
			LLM:        client,
			Chains:     registry,
			Knowledge:  opts.Knowledge,
			HTTPClient: &http.Client{Timeout: provider.DefaultHTTPTimeout},
		}
		env.OnClose(registry.Close)
		return env, nil
	}
}
