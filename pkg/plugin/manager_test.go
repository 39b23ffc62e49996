package plugin

import (
	"context"
	"encoding/json"
	"testing"
)

type fakePlugin struct {
	*Base
	tools []string
}

func newFake(id string, tools ...string) *fakePlugin {
	return &fakePlugin{Base: NewBase(Info{ID: id, Name: id}), tools: tools}
}

func (f *fakePlugin) Initialize(_ context.Context, opts Options) error {
	if err := ValidateChains(opts); err != nil {
		return err
	}
	var tools []Tool
	for _, name := range f.tools {
		tools = append(tools, Tool{Name: name, Handler: func(context.Context, json.RawMessage) (any, error) { return name, nil }})
	}
	f.Activate(opts, tools)
	return nil
}

func TestManagerRegisterRequiresInitialisation(t *testing.T) {
	m := NewManager()
	p := newFake("wallet", "get_balance")
	if err := m.Register(p); err == nil {
		t.Fatalf("expected error for uninitialised plugin")
	}
	if err := p.Initialize(context.Background(), Options{SupportedChains: []string{"bnb"}, DefaultChain: "bnb"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := m.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}
	if state, _ := m.State("wallet"); state != StateInitialised {
		t.Fatalf("unexpected state %s", state)
	}
	if _, ok := m.Tool("get_balance"); !ok {
		t.Fatalf("tool not indexed")
	}
}

func TestManagerRejectsDuplicateTools(t *testing.T) {
	m := NewManager()
	opts := Options{SupportedChains: []string{"bnb"}}
	first := newFake("a", "shared")
	second := newFake("b", "shared")
	_ = first.Initialize(context.Background(), opts)
	_ = second.Initialize(context.Background(), opts)

	if err := m.Register(first); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if err := m.Register(second); err == nil {
		t.Fatalf("expected duplicate tool error")
	}
	if len(m.Plugins()) != 1 {
		t.Fatalf("failed registration must not be recorded")
	}
}

func TestManagerToolsKeepRegistrationOrder(t *testing.T) {
	m := NewManager()
	opts := Options{SupportedChains: []string{"bnb"}}
	for _, p := range []*fakePlugin{newFake("swap", "swap_quote"), newFake("token", "token_info"), newFake("wallet", "wallet_balance")} {
		_ = p.Initialize(context.Background(), opts)
		if err := m.Register(p); err != nil {
			t.Fatalf("register %s: %v", p.Info().ID, err)
		}
	}
	tools := m.Tools()
	want := []string{"swap_quote", "token_info", "wallet_balance"}
	for i, tool := range tools {
		if tool.Name != want[i] {
			t.Fatalf("tool %d = %s, want %s", i, tool.Name, want[i])
		}
	}
}

func TestValidateChains(t *testing.T) {
	if err := ValidateChains(Options{DefaultChain: "polygon", SupportedChains: []string{"bnb"}}); err == nil {
		t.Fatalf("expected unsupported default chain error")
	}
	if err := ValidateChains(Options{}); err == nil {
		t.Fatalf("expected error for empty chain list")
	}
}
