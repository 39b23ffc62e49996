package facade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"BinkAgent-Bridge/internal/agent"
	"BinkAgent-Bridge/internal/config"
	xerrors "BinkAgent-Bridge/internal/errors"
	"BinkAgent-Bridge/internal/format"
	"BinkAgent-Bridge/internal/observability/metrics"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/pkg/logger"
	"BinkAgent-Bridge/pkg/plugin"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultModel = "gpt-4.1"

// Spec 描述一个动作需要的能力与提示词模板。Capabilities 的顺序即插件注册顺序。
type Spec struct {
	Action       string
	Capabilities []string
	Template     string
}

// AgentConfig 控制智能体的模型参数。
type AgentConfig struct {
	Model       string
	Temperature float32
	MaxSteps    int
	LLMTimeout  time.Duration
}

// Facade 为单个动作构造并运行智能体。
type Facade struct {
	spec     Spec
	catalog  Catalog
	env      EnvironmentFunc
	pool     *Pool
	threads  agent.ThreadStore
	agentCfg AgentConfig
	log      *slog.Logger
}

// Option 定义可选配置。
type Option func(*Facade)

// WithCatalog 替换能力目录。
func WithCatalog(c Catalog) Option {
	return func(f *Facade) {
		if c != nil {
			f.catalog = c
		}
	}
}

// WithPool 启用智能体缓存。未设置时每次调用都重新构造。
func WithPool(p *Pool) Option {
	return func(f *Facade) { f.pool = p }
}

// WithThreadStore 设置对话记录存储。
func WithThreadStore(s agent.ThreadStore) Option {
	return func(f *Facade) { f.threads = s }
}

// WithAgentConfig 设置模型参数。
func WithAgentConfig(c AgentConfig) Option {
	return func(f *Facade) { f.agentCfg = c }
}

// New 创建 Facade。
func New(spec Spec, env EnvironmentFunc, opts ...Option) *Facade {
	f := &Facade{
		spec:    spec,
		catalog: DefaultCatalog(),
		env:     env,
		log:     logger.Named("facade").With(slog.String("action", spec.Action)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.agentCfg.Model == "" {
		f.agentCfg.Model = defaultModel
	}
	return f
}

// Spec 返回动作描述。
func (f *Facade) Spec() Spec { return f.spec }

// InitializeAgent 并发初始化全部能力插件，任一失败即整体失败；
// 随后创建智能体并按 Spec 顺序注册插件。
func (f *Facade) InitializeAgent(ctx context.Context, env *Environment, w wallet.Handle) (*agent.Agent, error) {
	if env == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未提供运行环境")
	}
	plugins := make([]plugin.Plugin, len(f.spec.Capabilities))
	options := make([]plugin.Options, len(f.spec.Capabilities))
	for i, name := range f.spec.Capabilities {
		c, ok := f.catalog[name]
		if !ok {
			return nil, xerrors.New(xerrors.CodeInitializationFailure, fmt.Sprintf("未知能力 %s", name))
		}
		providers, err := c.Providers(env)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, fmt.Sprintf("构造 %s 能力的提供方失败", name))
		}
		options[i] = c.Options
		options[i].Providers = providers
		plugins[i] = c.New()
	}

	// 全部能力解析完成后再并发初始化。
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range f.spec.Capabilities {
		p, opts := plugins[i], options[i]
		g.Go(func() error {
			if err := p.Initialize(gctx, opts); err != nil {
				if _, coded := xerrors.From(err); coded {
					return err
				}
				return xerrors.Wrap(xerrors.CodeInitializationFailure, err, fmt.Sprintf("初始化 %s 插件失败", name))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ag := agent.New(agent.Config{
		Model:        f.agentCfg.Model,
		Temperature:  f.agentCfg.Temperature,
		SystemPrompt: BuildPrompt(ctx, f.spec.Template, w),
		MaxSteps:     f.agentCfg.MaxSteps,
	}, w, env.Networks, env.LLM,
		agent.WithThreadStore(f.threads),
		agent.WithLLMTimeout(f.agentCfg.LLMTimeout),
	)
	if err := ag.Initialize(ctx); err != nil {
		return nil, err
	}
	for _, p := range plugins {
		if err := ag.RegisterPlugin(ctx, p); err != nil {
			return nil, err
		}
	}
	return ag, nil
}

// Execute 构造（或从缓存取出）智能体并执行指令。任何失败都返回 format.Fallback
// 以及 UPSTREAM_EXECUTION 错误。
func (f *Facade) Execute(ctx context.Context, settings *config.Settings, w wallet.Handle, instruction string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = format.Fallback
			err = xerrors.New(xerrors.CodeUpstreamExecution, fmt.Sprintf("智能体执行异常: %v", r))
		}
	}()

	ag, release, err := f.acquire(ctx, settings, w)
	if err != nil {
		return format.Fallback, upstream(err, "初始化智能体失败")
	}
	defer release()

	threadID := logger.CorrelationID(ctx)
	if threadID == "" {
		threadID = uuid.NewString()
	}
	f.log.DebugContext(ctx, "执行指令", slog.String("thread_id", threadID))

	raw, err := ag.Execute(ctx, agent.ExecuteRequest{Input: instruction, ThreadID: threadID})
	if err != nil {
		return format.Fallback, upstream(err, "智能体执行失败")
	}
	return format.Telegram(raw), nil
}

func (f *Facade) acquire(ctx context.Context, settings *config.Settings, w wallet.Handle) (*agent.Agent, func(), error) {
	if settings == nil || w == nil {
		return nil, nil, xerrors.New(xerrors.CodeInitializationFailure, "缺少配置或钱包")
	}
	if f.env == nil {
		return nil, nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置运行环境构造器")
	}
	build := func(ctx context.Context) (*agent.Agent, func(), error) {
		env, err := f.env(ctx, settings)
		if err != nil {
			return nil, nil, err
		}
		ag, err := f.InitializeAgent(ctx, env, w)
		if err != nil {
			env.Close()
			return nil, nil, err
		}
		return ag, env.Close, nil
	}

	if f.pool == nil {
		ag, release, err := build(ctx)
		if err != nil {
			return nil, nil, err
		}
		metrics.ObserveAgentInit("fresh")
		return ag, release, nil
	}

	ag, done, reused, err := f.pool.Get(ctx, PoolKey(f.spec.Action, w.ID(), settings.Fingerprint()), build)
	if err != nil {
		return nil, nil, err
	}
	if reused {
		metrics.ObserveAgentInit("pool")
	} else {
		metrics.ObserveAgentInit("fresh")
	}
	return ag, done, nil
}

func upstream(err error, message string) error {
	if xerrors.IsCode(err, xerrors.CodeUpstreamExecution) {
		return err
	}
	return xerrors.Wrap(xerrors.CodeUpstreamExecution, err, message)
}
