package plugin

import (
	"errors"
	"fmt"
	"sync"
)

// Manager keeps track of registered plugins and indexes their tools by name.
type Manager struct {
	mu      sync.RWMutex
	order   []string
	plugins map[string]Plugin
	tools   map[string]Tool
}

// NewManager constructs an empty manager.
func NewManager() *Manager {
	return &Manager{
		plugins: make(map[string]Plugin),
		tools:   make(map[string]Tool),
	}
}

// Register adds an initialised plugin. Plugin ids and tool names must be unique.
func (m *Manager) Register(p Plugin) error {
	if p == nil {
		return errors.New("plugin implementation cannot be nil")
	}
	info := p.Info()
	if info.ID == "" {
		return errors.New("plugin id cannot be empty")
	}
	if p.State() != StateInitialised {
		return fmt.Errorf("plugin %s must be initialised before registration", info.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.plugins[info.ID]; exists {
		return fmt.Errorf("plugin %s already registered", info.ID)
	}
	tools := p.Tools()
	for _, tool := range tools {
		if tool.Name == "" || tool.Handler == nil {
			return fmt.Errorf("plugin %s exposes an incomplete tool", info.ID)
		}
		if _, exists := m.tools[tool.Name]; exists {
			return fmt.Errorf("tool %s of plugin %s already registered", tool.Name, info.ID)
		}
	}
	for _, tool := range tools {
		m.tools[tool.Name] = tool
	}
	m.plugins[info.ID] = p
	m.order = append(m.order, info.ID)
	return nil
}

// Tool looks up a tool by name.
func (m *Manager) Tool(name string) (Tool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tool, ok := m.tools[name]
	return tool, ok
}

// Tools returns all tools in plugin registration order.
func (m *Manager) Tools() []Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tool, 0, len(m.tools))
	for _, id := range m.order {
		out = append(out, m.plugins[id].Tools()...)
	}
	return out
}

// Plugins returns plugin metadata in registration order.
func (m *Manager) Plugins() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.plugins[id].Info())
	}
	return out
}

// State returns the lifecycle state of a plugin.
func (m *Manager) State(id string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plugins[id]
	if !ok {
		return "", fmt.Errorf("plugin %s not registered", id)
	}
	return p.State(), nil
}
