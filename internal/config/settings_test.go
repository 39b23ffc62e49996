package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	xerrors "BinkAgent-Bridge/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type mapHost map[string]string

func (m mapHost) GetSetting(key string) string { return m[key] }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range Keys() {
		t.Setenv(key, "")
	}
}

func completeHost() mapHost {
	return mapHost{
		KeySeedPhrase:      testSeed,
		KeyBirdeyeAPIKey:   "birdeye-key",
		KeyAlchemyAPIKey:   "alchemy-key",
		KeyOpenAIAPIKey:    "sk-openai-key",
		KeyBinkAPIKey:      "bink-key",
		KeyBinkBaseURL:     "https://bink.ai",
		KeyBinkAPIURL:      "https://api.bink.ai",
		KeyBinkImageAPIURL: "https://image.bink.ai",
	}
}

func TestResolveAppliesDefaults(t *testing.T) {
	clearEnv(t)

	settings, err := Resolve(completeHost())
	require.NoError(t, err)
	assert.Equal(t, DefaultBSCRPCURL, settings.BSCRPCURL)
	assert.Equal(t, DefaultEthereumRPCURL, settings.EthereumRPCURL)
	assert.Equal(t, DefaultSolanaRPCURL, settings.SolanaRPCURL)
	assert.True(t, settings.WalletConfigured())
}

func TestResolveHostOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyBSCRPCURL, "https://env-bsc.example")
	t.Setenv(KeyEthereumRPCURL, "https://env-eth.example")

	host := completeHost()
	host[KeyBSCRPCURL] = "https://host-bsc.example"

	settings, err := Resolve(host)
	require.NoError(t, err)
	assert.Equal(t, "https://host-bsc.example", settings.BSCRPCURL)
	assert.Equal(t, "https://env-eth.example", settings.EthereumRPCURL)
}

func TestResolveFallsBackToEnvironment(t *testing.T) {
	clearEnv(t)
	host := completeHost()
	delete(host, KeyOpenAIAPIKey)
	t.Setenv(KeyOpenAIAPIKey, "sk-from-env")

	settings, err := Resolve(host)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", settings.OpenAIAPIKey)
}

func TestResolveAggregatesViolations(t *testing.T) {
	clearEnv(t)
	host := completeHost()
	host[KeySeedPhrase] = "only three words"
	delete(host, KeyBirdeyeAPIKey)
	host[KeyBinkAPIURL] = "   "

	_, err := Resolve(host)
	require.Error(t, err)
	assert.True(t, xerrors.IsCode(err, xerrors.CodeConfiguration))
	for _, field := range []string{KeySeedPhrase, KeyBirdeyeAPIKey, KeyBinkAPIURL} {
		assert.Contains(t, err.Error(), field)
	}
	assert.Contains(t, err.Error(), "invalid seed phrase length: 3")
}

func TestValidateSeedPhrase(t *testing.T) {
	words24 := strings.TrimSpace(strings.Repeat("abandon ", 23) + "art")
	cases := map[string]bool{
		"":                    false,
		testSeed:              true,
		words24:               true,
		"abandon abandon":     false,
		"  " + testSeed + " ": true,
	}
	for seed, ok := range cases {
		err := ValidateSeedPhrase(seed)
		assert.Equal(t, ok, err == nil, "seed %q", seed)
	}
}

func TestRedactedMasksSecrets(t *testing.T) {
	clearEnv(t)
	settings, err := Resolve(completeHost())
	require.NoError(t, err)

	redacted := settings.Redacted()
	assert.Equal(t, "aban****", redacted[KeySeedPhrase])
	assert.Equal(t, "sk-o****", redacted[KeyOpenAIAPIKey])
	assert.Equal(t, "https://bink.ai", redacted[KeyBinkBaseURL])
}

func TestLoadRuntimeFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binkd.yaml")
	content := `
server:
  address: ":9090"
storage:
  history:
    driver: mysql
    dsn: "user:pass@tcp(localhost:3306)/bink"
knowledge:
  source: knowledge.json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("BINKD_LLM__MODEL", "gpt-4o")
	t.Setenv("BINKD_AGENT__POOL__ENABLED", "false")

	cfg, err := LoadRuntime(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "mysql", cfg.Storage.History.Driver)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.False(t, cfg.Agent.Pool.Enabled)
	assert.Equal(t, filepath.Join(dir, "knowledge.json"), cfg.Knowledge.Source)
	assert.Equal(t, "memory", cfg.Storage.Threads.Driver)
	assert.Equal(t, "binkd.executions", cfg.Events.Exchange)
	assert.Equal(t, 8, cfg.LLM.MaxSteps)
}

func TestLoadRuntimeDefaults(t *testing.T) {
	cfg, err := LoadRuntime("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.True(t, cfg.Agent.Pool.Enabled)
	assert.Equal(t, "none", cfg.Events.Driver)
}

func TestFingerprintIgnoresSeedPhrase(t *testing.T) {
	clearEnv(t)
	a, err := Resolve(completeHost())
	require.NoError(t, err)

	host := completeHost()
	host[KeySeedPhrase] = strings.TrimSpace(strings.Repeat("abandon ", 23) + "art")
	b, err := Resolve(host)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	host[KeyOpenAIAPIKey] = "sk-rotated"
	c, err := Resolve(host)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}
