package host

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"BinkAgent-Bridge/internal/action"
)

// PluginName 是本插件在宿主中的名称。
const PluginName = "bink"

// PluginDescription 描述插件能力。
const PluginDescription = "BINK AI integration executing swaps, staking and bridging and reporting wallet information across BNB Chain, Ethereum and Solana"

// ErrInvalidConfiguration 表示动作的配置校验未通过。
var ErrInvalidConfiguration = errors.New("action configuration is invalid")

// Plugin 是交给宿主注册的插件清单。
type Plugin struct {
	Name        string
	Description string
	Providers   []Provider

	actions map[string]*action.Handler
	order   []string
}

// NewPlugin 组装插件，动作按传入顺序排列。
func NewPlugin(handlers []*action.Handler, providers ...Provider) *Plugin {
	p := &Plugin{
		Name:        PluginName,
		Description: PluginDescription,
		Providers:   providers,
		actions:     make(map[string]*action.Handler, len(handlers)),
	}
	for _, h := range handlers {
		if h == nil {
			continue
		}
		name := h.Action().Name
		if _, dup := p.actions[name]; dup {
			continue
		}
		p.actions[name] = h
		p.order = append(p.order, name)
	}
	return p
}

// Actions 返回全部动作处理器。
func (p *Plugin) Actions() []*action.Handler {
	out := make([]*action.Handler, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.actions[name])
	}
	return out
}

// Action 按名称查找动作。
func (p *Plugin) Action(name string) (*action.Handler, bool) {
	h, ok := p.actions[name]
	return h, ok
}

// ActionNames 返回排序后的动作名称。
func (p *Plugin) ActionNames() []string {
	names := append([]string(nil), p.order...)
	sort.Strings(names)
	return names
}

// Dispatch 先校验再处理消息，对应宿主选中动作后的调用顺序。
func (p *Plugin) Dispatch(ctx context.Context, name string, host Settings, msg action.Memory) (action.Response, bool, error) {
	h, ok := p.Action(name)
	if !ok {
		return action.Response{}, false, fmt.Errorf("unknown action %s", name)
	}
	if !h.Validate(ctx, host) {
		return action.Response{}, false, ErrInvalidConfiguration
	}
	var resp action.Response
	success := h.Handle(ctx, host, msg, func(_ context.Context, r action.Response) error {
		resp = r
		return nil
	})
	return resp, success, nil
}

// Context 汇总各提供方的非空文本。
func (p *Plugin) Context(ctx context.Context, host Settings) map[string]string {
	out := make(map[string]string, len(p.Providers))
	for _, prov := range p.Providers {
		if text := prov.Get(ctx, host); text != "" {
			out[prov.Name()] = text
		}
	}
	return out
}
