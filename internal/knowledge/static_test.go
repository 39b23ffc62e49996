package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStaticProviderAndAsk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")
	content := `[
  {"title":"Staking","content":"Venus supplies BNB for interest.","keywords":["stake","venus"]},
  {"title":"Bridge","content":"deBridge moves assets across chains.","keywords":["bridge"],"url":"https://bink.ai/docs/bridge"},
  {"title":"Swap","content":"PancakeSwap routes BNB Chain swaps.","tags":["swap"]}
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadStaticProvider(path, 2)
	require.NoError(t, err)

	answer, err := p.Ask(context.Background(), "How do I BRIDGE to Ethereum?")
	require.NoError(t, err)
	assert.Equal(t, "static", answer.Provider)
	assert.Equal(t, "deBridge moves assets across chains.", answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "https://bink.ai/docs/bridge", answer.Sources[0].URL)

	_, err = p.Ask(context.Background(), "weather tomorrow")
	assert.Error(t, err)
}

func TestQueryLimitsResults(t *testing.T) {
	p := NewStaticProvider([]Snippet{
		{Title: "a", Content: "a"},
		{Title: "b", Content: "b"},
		{Title: "c", Content: "c"},
		{Title: "d", Content: "d"},
	}, 0)
	assert.Len(t, p.Query("anything"), 3)
}

func TestLoadStaticProviderErrors(t *testing.T) {
	_, err := LoadStaticProvider(" ", 3)
	assert.Error(t, err)
	_, err = LoadStaticProvider(filepath.Join(t.TempDir(), "missing.json"), 3)
	assert.Error(t, err)
}
