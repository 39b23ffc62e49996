package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	xerrors "BinkAgent-Bridge/internal/errors"
	"BinkAgent-Bridge/pkg/logger"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// 配置项名称，宿主设置与环境变量共用同一套名字。
const (
	KeySeedPhrase      = "SEED_PHRASE"
	KeyBSCRPCURL       = "BSC_RPC_URL"
	KeyEthereumRPCURL  = "ETHEREUM_RPC_URL"
	KeySolanaRPCURL    = "SOLANA_RPC_URL"
	KeyBirdeyeAPIKey   = "BIRDEYE_API_KEY"
	KeyAlchemyAPIKey   = "ALCHEMY_API_KEY"
	KeyOpenAIAPIKey    = "OPENAI_API_KEY"
	KeyBinkAPIKey      = "BINK_API_KEY"
	KeyBinkBaseURL     = "BINK_BASE_URL"
	KeyBinkAPIURL      = "BINK_API_URL"
	KeyBinkImageAPIURL = "BINK_IMAGE_API_URL"
)

// 未配置 RPC 时使用的公共节点。
const (
	DefaultBSCRPCURL      = "https://bsc-mainnet.nodereal.io/v1/64a9df0874fb4a93b9d0a3849de012d3"
	DefaultEthereumRPCURL = "https://eth-mainnet.nodereal.io/v1/64a9df0874fb4a93b9d0a3849de012d3"
	DefaultSolanaRPCURL   = "https://api.mainnet-beta.solana.com"
)

// Keys 返回全部已知配置项。
func Keys() []string {
	return []string{
		KeySeedPhrase,
		KeyBSCRPCURL,
		KeyEthereumRPCURL,
		KeySolanaRPCURL,
		KeyBirdeyeAPIKey,
		KeyAlchemyAPIKey,
		KeyOpenAIAPIKey,
		KeyBinkAPIKey,
		KeyBinkBaseURL,
		KeyBinkAPIURL,
		KeyBinkImageAPIURL,
	}
}

var requiredKeys = []string{
	KeyBirdeyeAPIKey,
	KeyAlchemyAPIKey,
	KeyOpenAIAPIKey,
	KeyBinkAPIKey,
	KeyBinkBaseURL,
	KeyBinkImageAPIURL,
	KeyBinkAPIURL,
}

// HostSettings 是宿主运行时暴露的配置读取接口。
type HostSettings interface {
	GetSetting(key string) string
}

// Settings 是一次请求所需的全部外部端点与密钥。
type Settings struct {
	SeedPhrase      string
	BSCRPCURL       string
	EthereumRPCURL  string
	SolanaRPCURL    string
	BirdeyeAPIKey   string
	AlchemyAPIKey   string
	OpenAIAPIKey    string
	BinkAPIKey      string
	BinkBaseURL     string
	BinkAPIURL      string
	BinkImageAPIURL string
}

// Resolve 按 默认值 < 环境变量 < 宿主设置 的优先级合并配置并完成校验。
// 校验失败时返回 CONFIGURATION 错误，消息中列出所有不合法的字段。
func Resolve(host HostSettings) (*Settings, error) {
	s, err := Load(host)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load 合并配置但不做校验。
func Load(host HostSettings) (*Settings, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		KeyBSCRPCURL:      DefaultBSCRPCURL,
		KeyEthereumRPCURL: DefaultEthereumRPCURL,
		KeySolanaRPCURL:   DefaultSolanaRPCURL,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "加载默认配置失败")
	}

	known := make(map[string]struct{}, len(Keys()))
	for _, key := range Keys() {
		known[key] = struct{}{}
	}
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if _, ok := known[key]; !ok || strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "读取环境变量失败")
	}

	if host != nil {
		overrides := make(map[string]any)
		for _, key := range Keys() {
			if value := host.GetSetting(key); strings.TrimSpace(value) != "" {
				overrides[key] = value
			}
		}
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "读取宿主设置失败")
		}
	}

	return &Settings{
		SeedPhrase:      k.String(KeySeedPhrase),
		BSCRPCURL:       k.String(KeyBSCRPCURL),
		EthereumRPCURL:  k.String(KeyEthereumRPCURL),
		SolanaRPCURL:    k.String(KeySolanaRPCURL),
		BirdeyeAPIKey:   k.String(KeyBirdeyeAPIKey),
		AlchemyAPIKey:   k.String(KeyAlchemyAPIKey),
		OpenAIAPIKey:    k.String(KeyOpenAIAPIKey),
		BinkAPIKey:      k.String(KeyBinkAPIKey),
		BinkBaseURL:     k.String(KeyBinkBaseURL),
		BinkAPIURL:      k.String(KeyBinkAPIURL),
		BinkImageAPIURL: k.String(KeyBinkImageAPIURL),
	}, nil
}

// Get 按配置项名称读取值。
func (s *Settings) Get(key string) string {
	if s == nil {
		return ""
	}
	switch key {
	case KeySeedPhrase:
		return s.SeedPhrase
	case KeyBSCRPCURL:
		return s.BSCRPCURL
	case KeyEthereumRPCURL:
		return s.EthereumRPCURL
	case KeySolanaRPCURL:
		return s.SolanaRPCURL
	case KeyBirdeyeAPIKey:
		return s.BirdeyeAPIKey
	case KeyAlchemyAPIKey:
		return s.AlchemyAPIKey
	case KeyOpenAIAPIKey:
		return s.OpenAIAPIKey
	case KeyBinkAPIKey:
		return s.BinkAPIKey
	case KeyBinkBaseURL:
		return s.BinkBaseURL
	case KeyBinkAPIURL:
		return s.BinkAPIURL
	case KeyBinkImageAPIURL:
		return s.BinkImageAPIURL
	default:
		return ""
	}
}

// Validate 检查必填项与助记词长度，所有问题合并为一个错误返回。
func (s *Settings) Validate() error {
	var violations []xerrors.Violation
	if err := ValidateSeedPhrase(s.SeedPhrase); err != nil {
		violations = append(violations, xerrors.Violation{Field: KeySeedPhrase, Reason: err.Error()})
	}
	for _, key := range requiredKeys {
		if strings.TrimSpace(s.Get(key)) == "" {
			violations = append(violations, xerrors.Violation{Field: key, Reason: key + " is required"})
		}
	}
	return xerrors.Aggregate(xerrors.CodeConfiguration, "BNB configuration validation failed", violations)
}

// ValidateSeedPhrase 要求助记词恰好为 12 或 24 个以空白分隔的单词。
func ValidateSeedPhrase(seed string) error {
	words := strings.Fields(seed)
	if len(words) == 0 {
		return fmt.Errorf("SEED_PHRASE is required")
	}
	if len(words) != 12 && len(words) != 24 {
		return fmt.Errorf("invalid seed phrase length: %d (expected 12 or 24 words)", len(words))
	}
	return nil
}

// WalletConfigured 判断是否配置了钱包助记词。
func (s *Settings) WalletConfigured() bool {
	return s != nil && strings.TrimSpace(s.SeedPhrase) != ""
}

// Redacted 返回可安全写入日志的键值视图。
func (s *Settings) Redacted() map[string]string {
	out := make(map[string]string, len(Keys()))
	for _, key := range Keys() {
		value := s.Get(key)
		switch key {
		case KeyBSCRPCURL, KeyEthereumRPCURL, KeySolanaRPCURL, KeyBinkBaseURL, KeyBinkAPIURL, KeyBinkImageAPIURL:
			out[key] = value
		default:
			out[key] = logger.Redact(value)
		}
	}
	return out
}

// Fingerprint 对除助记词外的全部配置取 sha256，配置变化时缓存的智能体随之失效。
func (s *Settings) Fingerprint() string {
	h := sha256.New()
	for _, key := range Keys() {
		if key == KeySeedPhrase {
			continue
		}
		fmt.Fprintf(h, "%s=%s\n", key, s.Get(key))
	}
	return hex.EncodeToString(h.Sum(nil))
}
