package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	xerrors "BinkAgent-Bridge/internal/errors"
	"BinkAgent-Bridge/internal/llm"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/pkg/plugin"
)

const testSeed = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// scriptedLLM 依次返回预设响应，并记录收到的请求。
type scriptedLLM struct {
	mu        sync.Mutex
	responses []*llm.Response
	requests  []llm.Request
	err       error
	wait      time.Duration
}

func (s *scriptedLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &llm.Response{Message: llm.Message{Role: llm.RoleAssistant, Content: "done"}}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type echoPlugin struct {
	*plugin.Base
	seen []string
}

func newEchoPlugin() *echoPlugin {
	return &echoPlugin{Base: plugin.NewBase(plugin.Info{ID: "echo", Category: plugin.CategoryWallet})}
}

func (p *echoPlugin) Initialize(_ context.Context, opts plugin.Options) error {
	p.Activate(opts, []plugin.Tool{
		{
			Name:       "whoami",
			Parameters: map[string]any{"type": "object"},
			Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
				w, ok := wallet.FromContext(ctx)
				if !ok {
					return nil, errors.New("no wallet")
				}
				addr, err := w.Address(ctx, wallet.NetworkBNB)
				p.seen = append(p.seen, addr)
				return map[string]string{"address": addr}, err
			},
		},
		{
			Name:       "explode",
			Parameters: map[string]any{"type": "object"},
			Handler: func(context.Context, json.RawMessage) (any, error) {
				return nil, errors.New("boom")
			},
		},
	})
	return nil
}

func toolCall(id, name string) *llm.Response {
	return &llm.Response{Message: llm.Message{
		Role:      llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: "{}"}},
	}}
}

func newAgent(t *testing.T, client llm.Client, opts ...Option) (*Agent, *echoPlugin) {
	t.Helper()
	networks := wallet.DefaultNetworks(wallet.RPCEndpoints{BNB: "https://bsc"})
	w, err := wallet.New(testSeed, 0, networks)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	ag := New(Config{Model: "gpt-4.1", SystemPrompt: "system", MaxSteps: 4}, w, networks, client, opts...)
	if err := ag.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	p := newEchoPlugin()
	if err := p.Initialize(context.Background(), plugin.Options{}); err != nil {
		t.Fatalf("plugin: %v", err)
	}
	if err := ag.RegisterPlugin(context.Background(), p); err != nil {
		t.Fatalf("register: %v", err)
	}
	return ag, p
}

func TestExecuteRunsToolsWithBoundWallet(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.Response{
		toolCall("call_1", "whoami"),
		toolCall("call_2", "explode"),
		{Message: llm.Message{Content: " **Done** "}},
	}}
	ag, p := newAgent(t, client)

	out, err := ag.Execute(context.Background(), ExecuteRequest{Input: "who am i", ThreadID: "t1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "**Done**" {
		t.Fatalf("unexpected reply %q", out)
	}
	if len(p.seen) != 1 || p.seen[0] != "0x9858EfFD232B4033E47d90003D41EC34EcaEda94" {
		t.Fatalf("tool did not see wallet: %v", p.seen)
	}

	if len(client.requests) != 3 {
		t.Fatalf("expected 3 model calls, got %d", len(client.requests))
	}
	first := client.requests[0]
	if first.Messages[0].Role != llm.RoleSystem || first.Messages[0].Content != "system" {
		t.Fatalf("system prompt missing: %+v", first.Messages[0])
	}
	if len(first.Tools) != 2 || first.Temperature != 0 || first.Model != "gpt-4.1" {
		t.Fatalf("unexpected request: %+v", first)
	}
	last := client.requests[2].Messages
	toolMsg := last[len(last)-1]
	if toolMsg.Role != llm.RoleTool || toolMsg.ToolCallID != "call_2" || toolMsg.Content != `{"error":"boom"}` {
		t.Fatalf("tool error not returned to model: %+v", toolMsg)
	}
}

func TestExecutePersistsThread(t *testing.T) {
	store := NewMemoryThreadStore(0, 0, 0)
	client := &scriptedLLM{}
	ag, _ := newAgent(t, client, WithThreadStore(store))

	for _, input := range []string{"first", "second"} {
		if _, err := ag.Execute(context.Background(), ExecuteRequest{Input: input, ThreadID: "thread"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	msgs, _ := store.Load(context.Background(), "thread")
	if len(msgs) != 4 {
		t.Fatalf("expected 4 stored messages, got %d", len(msgs))
	}
	second := client.requests[1].Messages
	if len(second) != 4 || second[1].Content != "first" || second[3].Content != "second" {
		t.Fatalf("history not replayed: %+v", second)
	}
}

func TestExecuteUpstreamErrors(t *testing.T) {
	ag, _ := newAgent(t, &scriptedLLM{err: errors.New("503")})
	_, err := ag.Execute(context.Background(), ExecuteRequest{Input: "hi"})
	if !xerrors.IsCode(err, xerrors.CodeUpstreamExecution) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	ag, _ = newAgent(t, &scriptedLLM{wait: 50 * time.Millisecond}, WithLLMTimeout(10*time.Millisecond))
	_, err = ag.Execute(context.Background(), ExecuteRequest{Input: "hi"})
	if !errors.Is(err, context.DeadlineExceeded) || !xerrors.IsCode(err, xerrors.CodeTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	loop := &scriptedLLM{}
	for i := 0; i < 4; i++ {
		loop.responses = append(loop.responses, toolCall("c", "whoami"))
	}
	ag, _ = newAgent(t, loop)
	_, err = ag.Execute(context.Background(), ExecuteRequest{Input: "hi"})
	if !xerrors.IsCode(err, xerrors.CodeUpstreamExecution) {
		t.Fatalf("expected max steps error, got %v", err)
	}
}

func TestLifecycleGuards(t *testing.T) {
	networks := wallet.DefaultNetworks(wallet.RPCEndpoints{BNB: "https://bsc"})
	w, _ := wallet.New(testSeed, 0, networks)
	ag := New(Config{}, w, networks, &scriptedLLM{})

	p := newEchoPlugin()
	_ = p.Initialize(context.Background(), plugin.Options{})
	if err := ag.RegisterPlugin(context.Background(), p); err == nil {
		t.Fatalf("register before initialize must fail")
	}
	if _, err := ag.Execute(context.Background(), ExecuteRequest{Input: "x"}); err == nil {
		t.Fatalf("execute before initialize must fail")
	}
	if err := New(Config{}, w, networks, nil).Initialize(context.Background()); err == nil {
		t.Fatalf("initialize without llm must fail")
	}

	if err := ag.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := ag.RegisterPlugin(context.Background(), newEchoPlugin()); err == nil {
		t.Fatalf("uninitialised plugin must be rejected")
	}
}

func TestTrimToUserTurn(t *testing.T) {
	store := NewMemoryThreadStore(3, 0, 0)
	ctx := context.Background()
	_ = store.Append(ctx, "t",
		llm.Message{Role: llm.RoleUser, Content: "a"},
		llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "1"}}},
		llm.Message{Role: llm.RoleTool, ToolCallID: "1"},
		llm.Message{Role: llm.RoleAssistant, Content: "ok"},
		llm.Message{Role: llm.RoleUser, Content: "b"},
	)
	msgs, _ := store.Load(ctx, "t")
	if len(msgs) != 1 || msgs[0].Content != "b" {
		t.Fatalf("unexpected trimmed thread: %+v", msgs)
	}
}

func TestMemoryThreadStoreIsBounded(t *testing.T) {
	store := NewMemoryThreadStore(0, 10, time.Hour)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		if err := store.Append(ctx, fmt.Sprintf("thread-%d", i), llm.Message{Role: llm.RoleUser, Content: "hi"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if got := store.Len(); got != 10 {
		t.Fatalf("threads retained after 1000 appends: %d", got)
	}
	if msgs, _ := store.Load(ctx, "thread-0"); len(msgs) != 0 {
		t.Fatalf("oldest thread should be evicted: %+v", msgs)
	}
	if msgs, _ := store.Load(ctx, "thread-999"); len(msgs) != 1 {
		t.Fatalf("newest thread should be kept: %+v", msgs)
	}
}

func TestMemoryThreadStoreExpiresIdleThreads(t *testing.T) {
	store := NewMemoryThreadStore(0, 0, 20*time.Millisecond)
	ctx := context.Background()
	_ = store.Append(ctx, "idle", llm.Message{Role: llm.RoleUser, Content: "hi"})
	time.Sleep(60 * time.Millisecond)
	if msgs, _ := store.Load(ctx, "idle"); len(msgs) != 0 {
		t.Fatalf("idle thread should expire: %+v", msgs)
	}
}

func TestExecuteForwardsEmptyInput(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.Response{{Message: llm.Message{Content: "What can I do for you?"}}}}
	ag, _ := newAgent(t, client)

	out, err := ag.Execute(context.Background(), ExecuteRequest{Input: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "What can I do for you?" {
		t.Fatalf("unexpected reply %q", out)
	}
	if len(client.requests) != 1 {
		t.Fatalf("expected one model call, got %d", len(client.requests))
	}
	msgs := client.requests[0].Messages
	if last := msgs[len(msgs)-1]; last.Role != llm.RoleUser || last.Content != "" {
		t.Fatalf("empty input not forwarded: %+v", last)
	}
}
