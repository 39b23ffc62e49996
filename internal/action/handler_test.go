package action

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"BinkAgent-Bridge/internal/config"
	xerrors "BinkAgent-Bridge/internal/errors"
	"BinkAgent-Bridge/internal/events"
	"BinkAgent-Bridge/internal/format"
	"BinkAgent-Bridge/internal/observability/alerting"
	"BinkAgent-Bridge/internal/storage/mysql"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type mapHost map[string]string

func (m mapHost) GetSetting(key string) string { return m[key] }

func completeHost() mapHost {
	return mapHost{
		config.KeySeedPhrase:      testSeed,
		config.KeyBirdeyeAPIKey:   "birdeye-key",
		config.KeyAlchemyAPIKey:   "alchemy-key",
		config.KeyOpenAIAPIKey:    "sk-openai-key",
		config.KeyBinkAPIKey:      "bink-key",
		config.KeyBinkBaseURL:     "https://bink.ai",
		config.KeyBinkAPIURL:      "https://api.bink.ai",
		config.KeyBinkImageAPIURL: "https://image.bink.ai",
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range config.Keys() {
		t.Setenv(key, "")
	}
}

type fakeExecutor struct {
	mu     sync.Mutex
	inputs []string
	wallet wallet.Handle
	out    string
	err    error
}

func (f *fakeExecutor) Execute(_ context.Context, _ *config.Settings, w wallet.Handle, instruction string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, instruction)
	f.wallet = w
	if f.err != nil {
		return format.Fallback, f.err
	}
	return f.out, nil
}

func (f *fakeExecutor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

type callbackRecorder struct {
	responses []Response
}

func (c *callbackRecorder) cb(_ context.Context, resp Response) error {
	c.responses = append(c.responses, resp)
	return nil
}

type memoryHistory struct {
	records []mysql.ExecutionRecord
}

func (m *memoryHistory) Save(_ context.Context, r *mysql.ExecutionRecord) error {
	m.records = append(m.records, *r)
	return nil
}

func (m *memoryHistory) ListLatest(context.Context, int) ([]mysql.ExecutionRecord, error) {
	return m.records, nil
}

type alertRecorder struct{ events []alerting.Event }

func (a *alertRecorder) Notify(_ context.Context, e alerting.Event) error {
	a.events = append(a.events, e)
	return nil
}

func TestValidateRejectsMissingFields(t *testing.T) {
	clearEnv(t)
	h := NewHandler(ExecuteTransaction, &fakeExecutor{})
	for _, key := range []string{config.KeySeedPhrase, config.KeyBirdeyeAPIKey, config.KeyOpenAIAPIKey, config.KeyBinkAPIURL} {
		host := completeHost()
		delete(host, key)
		assert.False(t, h.Validate(context.Background(), host), key)
	}
	assert.True(t, h.Validate(context.Background(), completeHost()))
}

func TestValidateRejectsSeedWordCount(t *testing.T) {
	clearEnv(t)
	h := NewHandler(GetWalletInfo, &fakeExecutor{})
	for _, n := range []int{1, 11, 13, 23, 25} {
		host := completeHost()
		host[config.KeySeedPhrase] = strings.TrimSpace(strings.Repeat("abandon ", n))
		assert.False(t, h.Validate(context.Background(), host), "words=%d", n)
	}
}

func TestHandleConfigurationErrorSkipsExecution(t *testing.T) {
	clearEnv(t)
	exec := &fakeExecutor{out: "never"}
	walletCalls := 0
	history := &memoryHistory{}
	h := NewHandler(ExecuteTransaction, exec,
		WithHistory(history),
		WithWalletFactory(func(*config.Settings) (wallet.Handle, error) {
			walletCalls++
			return nil, errors.New("unexpected")
		}),
	)
	host := completeHost()
	delete(host, config.KeyAlchemyAPIKey)

	rec := &callbackRecorder{}
	ok := h.Handle(context.Background(), host, Memory{Content: Content{Text: "swap"}}, rec.cb)
	assert.False(t, ok)
	assert.Equal(t, 0, exec.calls())
	assert.Equal(t, 0, walletCalls)
	require.Len(t, rec.responses, 1)
	assert.Equal(t, format.Fallback, rec.responses[0].Text)
	require.Len(t, history.records, 1)
	assert.Equal(t, mysql.StatusRejected, history.records[0].Status)
	assert.Equal(t, string(xerrors.CodeConfiguration), history.records[0].ErrorCode)
}

func TestHandleSuccessCallsBackOnce(t *testing.T) {
	clearEnv(t)
	exec := &fakeExecutor{out: "<b>Swapped</b> <li>done</li>"}
	publisher := &events.Recorder{}
	history := &memoryHistory{}
	h := NewHandler(ExecuteTransaction, exec, WithEvents(publisher), WithHistory(history))

	rec := &callbackRecorder{}
	ok := h.Handle(context.Background(), completeHost(), Memory{Content: Content{Text: "  Swap 0.001 BNB for USDC  "}}, rec.cb)
	require.True(t, ok)
	require.Len(t, rec.responses, 1)
	assert.Equal(t, "<b>Swapped</b> <li>done</li>", rec.responses[0].Text)
	assert.Equal(t, []string{"Swap 0.001 BNB for USDC"}, exec.inputs)

	addr, err := exec.wallet.Address(context.Background(), wallet.NetworkBNB)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "0x"))

	evts := publisher.Events()
	require.Len(t, evts, 1)
	assert.Equal(t, "action.execute_transaction.succeeded", evts[0].RoutingKey())
	assert.Equal(t, evts[0].CorrelationID, history.records[0].CorrelationID)
}

func TestHandleNonStringTextPassesEmptyInstruction(t *testing.T) {
	clearEnv(t)
	exec := &fakeExecutor{out: "ok"}
	h := NewHandler(GetWalletInfo, exec)

	for _, text := range []any{nil, 42, map[string]any{"text": "nested"}, "   "} {
		rec := &callbackRecorder{}
		assert.NotPanics(t, func() {
			h.Handle(context.Background(), completeHost(), Memory{Content: Content{Text: text}}, rec.cb)
		})
		assert.Len(t, rec.responses, 1)
	}
	assert.Equal(t, []string{"", "", "", ""}, exec.inputs)
}

func TestHandleFailureSendsFallbackAndAlerts(t *testing.T) {
	clearEnv(t)
	cause := xerrors.New(xerrors.CodeUpstreamExecution, "agent failed")
	exec := &fakeExecutor{err: cause}
	alerts := &alertRecorder{}
	h := NewHandler(GetWalletInfo, exec, WithAlerts(alerts))

	rec := &callbackRecorder{}
	ok := h.Handle(context.Background(), completeHost(), Memory{Content: Content{Text: "Get wallet info"}}, rec.cb)
	assert.False(t, ok)
	require.Len(t, rec.responses, 1)
	assert.Equal(t, format.Fallback, rec.responses[0].Text)
	require.Len(t, alerts.events, 1)
	assert.Equal(t, xerrors.CodeUpstreamExecution, alerts.events[0].Code)
	assert.Equal(t, NameGetWalletInfo, alerts.events[0].Action)
}

func TestHandleWithoutCallback(t *testing.T) {
	clearEnv(t)
	h := NewHandler(GetWalletInfo, &fakeExecutor{out: "ok"})
	assert.True(t, h.Handle(context.Background(), completeHost(), Memory{Content: Content{Text: "hi"}}, nil))
}

func TestHandlePanickingCallbackIsNotRepeated(t *testing.T) {
	clearEnv(t)
	h := NewHandler(GetWalletInfo, &fakeExecutor{out: "ok"})

	var texts []string
	cb := func(_ context.Context, resp Response) error {
		texts = append(texts, resp.Text)
		panic("host callback crashed")
	}

	var ok bool
	assert.NotPanics(t, func() {
		ok = h.Handle(context.Background(), completeHost(), Memory{Content: Content{Text: "hi"}}, cb)
	})
	assert.False(t, ok)
	assert.Equal(t, []string{"ok"}, texts)
}

type opaqueError struct{}

func (opaqueError) Error() string { return "opaque failure" }

func (opaqueError) Details() map[string]any {
	return map[string]any{"hook": func() {}, "attempt": 2}
}

func TestLogFailureFallsBackToPerFieldLogging(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf, "debug")
	t.Cleanup(func() { logger.SetOutput(os.Stderr, "info") })
	h := NewHandler(ExecuteTransaction, &fakeExecutor{})

	h.logFailure(context.Background(), opaqueError{})
	out := buf.String()
	assert.Contains(t, out, "逐项记录")
	assert.Contains(t, out, "field=hook")
	assert.Contains(t, out, "[Error serializing property]")
	assert.Contains(t, out, "field=attempt value=2")
}

func TestActionsDeclareCapabilities(t *testing.T) {
	assert.Equal(t, []string{"swap", "token", "wallet", "staking", "bridge", "knowledge"}, ExecuteTransaction.FacadeSpec().Capabilities)
	assert.Equal(t, []string{"token", "knowledge", "wallet"}, GetWalletInfo.FacadeSpec().Capabilities)
	for _, a := range All() {
		assert.NotEmpty(t, a.Description)
		assert.NotEmpty(t, a.Examples)
	}
}
