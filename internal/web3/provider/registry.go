package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/internal/web3"
	"BinkAgent-Bridge/internal/web3/ethereum"
)

// Dialer creates a chain client for a single network. Tests replace it with
// fakes.
type Dialer func(ctx context.Context, name wallet.NetworkName, cfg wallet.NetworkConfig) (web3.Client, error)

// DialEthereum is the default Dialer backed by go-ethereum.
func DialEthereum(ctx context.Context, name wallet.NetworkName, cfg wallet.NetworkConfig) (web3.Client, error) {
	return ethereum.NewClient(ctx, ethereum.Config{
		Name:    string(name),
		RPCURL:  cfg.RPCURL,
		ChainID: cfg.ChainID,
		Notes:   cfg.Name,
	})
}

// Registry manages a set of chain clients keyed by wallet network names.
type Registry struct {
	defaultChain wallet.NetworkName
	clients      map[wallet.NetworkName]web3.Client
}

// NewRegistry instantiates clients for every EVM network with an RPC URL.
func NewRegistry(ctx context.Context, networks wallet.Networks, dial Dialer) (*Registry, error) {
	if dial == nil {
		dial = DialEthereum
	}
	clients := make(map[wallet.NetworkName]web3.Client)
	for name, cfg := range networks.EVM() {
		if strings.TrimSpace(cfg.RPCURL) == "" {
			continue
		}
		client, err := dial(ctx, name, cfg)
		if err != nil {
			for _, c := range clients {
				c.Close()
			}
			return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
		}
		clients[name] = client
	}

	if len(clients) == 0 {
		return nil, errors.New("未配置任何链的 RPC 端点")
	}

	defaultChain := wallet.NetworkBNB
	if _, ok := clients[defaultChain]; !ok {
		names := make([]string, 0, len(clients))
		for name := range clients {
			names = append(names, string(name))
		}
		sort.Strings(names)
		defaultChain = wallet.NetworkName(names[0])
	}

	return &Registry{defaultChain: defaultChain, clients: clients}, nil
}

// NewStaticRegistry wraps already constructed clients.
func NewStaticRegistry(clients map[wallet.NetworkName]web3.Client) *Registry {
	r := &Registry{clients: make(map[wallet.NetworkName]web3.Client, len(clients)), defaultChain: wallet.NetworkBNB}
	for name, c := range clients {
		r.clients[name] = c
	}
	return r
}

// DefaultClient returns the client configured as default chain.
func (r *Registry) DefaultClient() (web3.Client, error) {
	if r == nil {
		return nil, errors.New("未初始化的链客户端注册表")
	}
	client, ok := r.clients[r.defaultChain]
	if !ok {
		return nil, fmt.Errorf("默认链 %s 未在注册表中", r.defaultChain)
	}
	return client, nil
}

// Client returns the chain client identified by name.
func (r *Registry) Client(name wallet.NetworkName) (web3.Client, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[name]
	return client, ok
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for name, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, name)
	}
}

// Chains returns the list of registered chain names.
func (r *Registry) Chains() []wallet.NetworkName {
	if r == nil {
		return nil
	}
	names := make([]wallet.NetworkName, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
