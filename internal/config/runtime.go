package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix 是守护进程配置的环境变量前缀，双下划线表示层级，
// 例如 BINKD_STORAGE__HISTORY__DRIVER 对应 storage.history.driver。
const EnvPrefix = "BINKD_"

// Config 描述了 binkd 在启动阶段需要加载的核心配置。
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Agent     AgentConfig     `koanf:"agent"`
	Web3      Web3Config      `koanf:"web3"`
	Knowledge KnowledgeConfig `koanf:"knowledge"`
	Storage   StorageConfig   `koanf:"storage"`
	Events    EventsConfig    `koanf:"events"`
	Alerting  AlertingConfig  `koanf:"alerting"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address  string `koanf:"address"`
	APIToken string `koanf:"api_token"`
	// MetricsAddress 非空时在独立端口上额外暴露 /metrics。
	MetricsAddress string `koanf:"metrics_address"`
}

// LogConfig 对应 pkg/logger 的初始化参数。
type LogConfig struct {
	Level   string         `koanf:"level"`
	Format  string         `koanf:"format"`
	Outputs []string       `koanf:"outputs"`
	Audit   AuditLogConfig `koanf:"audit"`
}

// AuditLogConfig 控制审计日志的落盘与轮转。
type AuditLogConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// LLMConfig 用于配置大模型推理的调用方式。
type LLMConfig struct {
	Model          string  `koanf:"model"`
	BaseURL        string  `koanf:"base_url"`
	Temperature    float32 `koanf:"temperature"`
	MaxSteps       int     `koanf:"max_steps"`
	TimeoutSeconds int     `koanf:"timeout_seconds"`
}

// AgentConfig 控制智能体实例的复用策略。
type AgentConfig struct {
	Pool PoolConfig `koanf:"pool"`
}

// PoolConfig 描述已初始化智能体的缓存。
type PoolConfig struct {
	Enabled        bool   `koanf:"enabled"`
	IdleTTLSeconds int    `koanf:"idle_ttl"`
	WalletIndex    uint32 `koanf:"wallet_index"`
}

// Web3Config 包含网络定义的覆盖文件。
type Web3Config struct {
	ChainConfig string `koanf:"chain_config"`
}

// KnowledgeConfig 描述本地静态知识库。
type KnowledgeConfig struct {
	Source     string `koanf:"source"`
	MaxResults int    `koanf:"max_results"`
}

// StorageConfig 统一描述 MySQL、Redis 等后端的连接信息。
type StorageConfig struct {
	History HistoryStoreConfig `koanf:"history"`
	Threads ThreadStoreConfig  `koanf:"threads"`
}

// HistoryStoreConfig 选择执行记录的持久化方式。
type HistoryStoreConfig struct {
	Driver  string `koanf:"driver"`
	DSN     string `koanf:"dsn"`
	DataDir string `koanf:"data_dir"`
}

// ThreadStoreConfig 选择对话线程的存储方式。
type ThreadStoreConfig struct {
	Driver     string `koanf:"driver"`
	Address    string `koanf:"address"`
	Password   string `koanf:"password"`
	DB         int    `koanf:"db"`
	TTLSeconds int    `koanf:"ttl"`
	// MaxThreads 为内存存储保留的线程数上限。
	MaxThreads int `koanf:"max_threads"`
}

// EventsConfig 控制执行事件的发布。
type EventsConfig struct {
	Driver   string `koanf:"driver"`
	URL      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
}

// AlertingConfig 配置告警通知渠道。
type AlertingConfig struct {
	WebhookURL string `koanf:"webhook_url"`
}

// LoadRuntime 读取可选的 YAML 配置文件，并用 BINKD_ 环境变量覆盖。
// path 为空时只使用环境变量与默认值。
func LoadRuntime(path string) (*Config, error) {
	k := koanf.New(".")

	baseDir := "."
	if strings.TrimSpace(path) != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		baseDir = filepath.Dir(path)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %w", err)
	}

	cfg := Config{Agent: AgentConfig{Pool: PoolConfig{Enabled: true}}}
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.applyDefaults(baseDir)
	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4.1"
	}
	if c.LLM.MaxSteps <= 0 {
		c.LLM.MaxSteps = 8
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.Agent.Pool.IdleTTLSeconds <= 0 {
		c.Agent.Pool.IdleTTLSeconds = 900
	}
	if c.Knowledge.MaxResults <= 0 {
		c.Knowledge.MaxResults = 3
	}
	if c.Knowledge.Source != "" && !filepath.IsAbs(c.Knowledge.Source) {
		c.Knowledge.Source = filepath.Join(baseDir, c.Knowledge.Source)
	}
	if c.Web3.ChainConfig != "" && !filepath.IsAbs(c.Web3.ChainConfig) {
		c.Web3.ChainConfig = filepath.Join(baseDir, c.Web3.ChainConfig)
	}

	if c.Storage.History.Driver == "" {
		c.Storage.History.Driver = "memory"
	}
	if c.Storage.History.DataDir == "" {
		c.Storage.History.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Storage.History.DataDir) {
		c.Storage.History.DataDir = filepath.Join(baseDir, c.Storage.History.DataDir)
	}
	if c.Storage.Threads.Driver == "" {
		c.Storage.Threads.Driver = "memory"
	}
	if c.Storage.Threads.Address == "" {
		c.Storage.Threads.Address = "127.0.0.1:6379"
	}
	if c.Storage.Threads.TTLSeconds <= 0 {
		c.Storage.Threads.TTLSeconds = 86400
	}

	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "binkd.executions"
	}
}
