package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Plugin defines the lifecycle hooks that each capability plugin must satisfy.
type Plugin interface {
	// Info returns the static metadata for the plugin.
	Info() Info
	// Initialize validates the options and prepares the plugin's tools.
	Initialize(ctx context.Context, opts Options) error
	// Tools returns the tools exposed once the plugin is initialised.
	Tools() []Tool
	// State reports the lifecycle position of the plugin.
	State() State
}

// Options configures a plugin at initialisation time.
type Options struct {
	DefaultChain    string
	DefaultSlippage float64
	// Providers holds the concrete capability providers. Each plugin checks
	// that every entry implements the provider interface it needs.
	Providers       []any
	SupportedChains []string
}

// Supports reports whether chain is one of the supported chains.
func (o Options) Supports(chain string) bool {
	for _, c := range o.SupportedChains {
		if strings.EqualFold(c, chain) {
			return true
		}
	}
	return false
}

// ToolHandler executes a tool call. args is the raw JSON object sent by the model.
type ToolHandler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is a single callable function exposed to the model.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object describing args.
	Parameters map[string]any
	Handler    ToolHandler
}

// Base carries the bookkeeping shared by plugin implementations. Embed a
// *Base and call Activate at the end of a successful Initialize.
type Base struct {
	mu    sync.RWMutex
	info  Info
	state State
	opts  Options
	tools []Tool
}

// NewBase returns a Base in the registered state.
func NewBase(info Info) *Base {
	return &Base{info: info, state: StateRegistered}
}

// Info implements Plugin.
func (b *Base) Info() Info { return b.info }

// State implements Plugin.
func (b *Base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Tools implements Plugin.
func (b *Base) Tools() []Tool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Tool(nil), b.tools...)
}

// Options returns the options the plugin was initialised with.
func (b *Base) Options() Options {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.opts
}

// Activate stores the options and tools and marks the plugin initialised.
func (b *Base) Activate(opts Options, tools []Tool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts = opts
	b.tools = tools
	b.state = StateInitialised
}

// ValidateChains checks the default chain against the supported list.
func ValidateChains(opts Options) error {
	if len(opts.SupportedChains) == 0 {
		return errors.New("no supported chains configured")
	}
	if opts.DefaultChain != "" && !opts.Supports(opts.DefaultChain) {
		return fmt.Errorf("default chain %s is not in supported chains %v", opts.DefaultChain, opts.SupportedChains)
	}
	return nil
}

// DecodeArgs unmarshals tool arguments, treating empty input as an empty object.
func DecodeArgs(raw json.RawMessage, dst any) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}
