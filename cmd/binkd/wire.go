package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"BinkAgent-Bridge/internal/action"
	"BinkAgent-Bridge/internal/agent"
	"BinkAgent-Bridge/internal/config"
	"BinkAgent-Bridge/internal/events"
	"BinkAgent-Bridge/internal/facade"
	"BinkAgent-Bridge/internal/host"
	"BinkAgent-Bridge/internal/knowledge"
	"BinkAgent-Bridge/internal/observability/alerting"
	"BinkAgent-Bridge/internal/storage/mysql"
	redisstore "BinkAgent-Bridge/internal/storage/redis"
	"BinkAgent-Bridge/pkg/logger"
)

// app 汇总一次进程生命周期内共享的组件。
type app struct {
	cfg      *config.Config
	plugin   *host.Plugin
	settings host.Settings
	history  mysql.ExecutionRepository
	closers  []func()
}

func (a *app) onClose(fn func()) { a.closers = append(a.closers, fn) }

// Close 逆序释放资源。
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = logger.Sync()
}

// wireApp 按运行时配置装配存储、事件、告警与动作处理器。
func wireApp(ctx context.Context, configPath string) (_ *app, err error) {
	cfg, err := config.LoadRuntime(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Log.Audit.Enabled,
			Path:       cfg.Log.Audit.Path,
			MaxSizeMB:  cfg.Log.Audit.MaxSizeMB,
			MaxBackups: cfg.Log.Audit.MaxBackups,
			MaxAgeDays: cfg.Log.Audit.MaxAgeDays,
		},
	}); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	a := &app{cfg: cfg, settings: host.EnvSettings{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	history, err := openHistory(ctx, cfg.Storage.History)
	if err != nil {
		return nil, err
	}
	if closer, ok := history.(interface{ Close() error }); ok {
		a.onClose(func() { _ = closer.Close() })
	}
	a.history = history

	threads, err := openThreads(ctx, cfg.Storage.Threads)
	if err != nil {
		return nil, err
	}
	if closer, ok := threads.(interface{ Close() error }); ok {
		a.onClose(func() { _ = closer.Close() })
	}

	publisher, err := openEvents(cfg.Events)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = publisher.Close() })

	notifiers := []alerting.Notifier{alerting.LogNotifier{}}
	if cfg.Alerting.WebhookURL != "" {
		notifiers = append(notifiers, &alerting.WebhookNotifier{
			URL:    cfg.Alerting.WebhookURL,
			Client: &http.Client{Timeout: 10 * time.Second},
		})
	}
	alerts := alerting.NewFanout(notifiers...)

	var static *knowledge.StaticProvider
	if cfg.Knowledge.Source != "" {
		static, err = knowledge.LoadStaticProvider(cfg.Knowledge.Source, cfg.Knowledge.MaxResults)
		if err != nil {
			return nil, fmt.Errorf("加载知识库失败: %w", err)
		}
	}

	llmTimeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	envFn := facade.NewEnvironmentFunc(facade.EnvironmentOptions{
		LLMBaseURL:  cfg.LLM.BaseURL,
		LLMModel:    cfg.LLM.Model,
		LLMTimeout:  llmTimeout,
		ChainConfig: cfg.Web3.ChainConfig,
		Knowledge:   static,
	})

	facadeOpts := []facade.Option{
		facade.WithThreadStore(threads),
		facade.WithAgentConfig(facade.AgentConfig{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxSteps:    cfg.LLM.MaxSteps,
			LLMTimeout:  llmTimeout,
		}),
	}
	if cfg.Agent.Pool.Enabled {
		pool := facade.NewPool(time.Duration(cfg.Agent.Pool.IdleTTLSeconds) * time.Second)
		a.onClose(pool.Close)
		facadeOpts = append(facadeOpts, facade.WithPool(pool))
	}

	wallets := action.SeedWalletFactory(cfg.Web3.ChainConfig, cfg.Agent.Pool.WalletIndex)
	var handlers []*action.Handler
	for _, def := range action.All() {
		exec := facade.New(def.FacadeSpec(), envFn, facadeOpts...)
		handlers = append(handlers, action.NewHandler(def, exec,
			action.WithWalletFactory(wallets),
			action.WithHistory(history),
			action.WithEvents(publisher),
			action.WithAlerts(alerts),
		))
	}
	a.plugin = host.NewPlugin(handlers, &host.WalletInfoProvider{NewWallet: wallets})

	logger.L().Info("binkd 组件装配完成",
		slog.String("history", cfg.Storage.History.Driver),
		slog.String("threads", cfg.Storage.Threads.Driver),
		slog.String("events", cfg.Events.Driver),
		slog.Bool("agent_pool", cfg.Agent.Pool.Enabled),
		slog.Any("actions", a.plugin.ActionNames()),
	)
	return a, nil
}

func openHistory(ctx context.Context, cfg config.HistoryStoreConfig) (mysql.ExecutionRepository, error) {
	switch cfg.Driver {
	case "", "memory":
		return mysql.NewMemoryExecutionRepository(cfg.DataDir)
	case "mysql":
		return mysql.NewSQLExecutionRepository(ctx, mysql.Config{
			DSN:             cfg.DSN,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
		})
	default:
		return nil, fmt.Errorf("不支持的执行记录存储: %s", cfg.Driver)
	}
}

func openThreads(ctx context.Context, cfg config.ThreadStoreConfig) (agent.ThreadStore, error) {
	switch cfg.Driver {
	case "", "memory":
		return agent.NewMemoryThreadStore(0, cfg.MaxThreads, time.Duration(cfg.TTLSeconds)*time.Second), nil
	case "redis":
		return redisstore.NewThreadStore(ctx, redisstore.ThreadStoreConfig{
			Address:  cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
			TTL:      time.Duration(cfg.TTLSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("不支持的对话存储: %s", cfg.Driver)
	}
}

func openEvents(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return events.Nop{}, nil
	case "rabbitmq":
		return events.NewRabbitMQPublisher(events.RabbitMQConfig{URL: cfg.URL, Exchange: cfg.Exchange})
	default:
		return nil, errors.New("不支持的事件驱动: " + cfg.Driver)
	}
}
