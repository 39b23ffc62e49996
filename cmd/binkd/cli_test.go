package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"BinkAgent-Bridge/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func setupEnv(t *testing.T) string {
	t.Helper()
	for _, key := range config.Keys() {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "binkd.yaml")
	content := `
log:
  level: error
  outputs: ["stderr"]
storage:
  history:
    data_dir: history
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func completeEnv(t *testing.T) {
	t.Helper()
	values := map[string]string{
		config.KeySeedPhrase:      testSeed,
		config.KeyBirdeyeAPIKey:   "birdeye-key",
		config.KeyAlchemyAPIKey:   "alchemy-key",
		config.KeyOpenAIAPIKey:    "sk-openai-key",
		config.KeyBinkAPIKey:      "bink-key",
		config.KeyBinkBaseURL:     "https://bink.ai",
		config.KeyBinkAPIURL:      "https://api.bink.ai",
		config.KeyBinkImageAPIURL: "https://image.bink.ai",
	}
	for k, v := range values {
		t.Setenv(k, v)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := setupEnv(t)
	completeEnv(t)

	out, err := run(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "EXECUTE_TRANSACTION")
	assert.Contains(t, out, "valid")
	assert.NotContains(t, out, "invalid")

	_, err = os.Stat(filepath.Join(filepath.Dir(path), "history"))
	assert.NoError(t, err, "history directory should be created relative to the config file")
}

func TestValidateCommandReportsMissingSettings(t *testing.T) {
	path := setupEnv(t)

	out, err := run(t, "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, out, "invalid")
	assert.Contains(t, err.Error(), "GET_WALLET_INFO")
}

func TestStatusCommand(t *testing.T) {
	path := setupEnv(t)
	completeEnv(t)

	out, err := run(t, "status", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "BINK plugin v")
	assert.Contains(t, out, "Loaded & Ready")
	assert.NotContains(t, out, testSeed)
}

func TestInvokeRequiresInstruction(t *testing.T) {
	path := setupEnv(t)
	_, err := run(t, "invoke", "--config", path, "GET_WALLET_INFO")
	assert.Error(t, err)
}

func TestUnsupportedHistoryDriver(t *testing.T) {
	path := setupEnv(t)
	t.Setenv("BINKD_STORAGE__HISTORY__DRIVER", "sqlite")
	_, err := run(t, "status", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}
