package wallet

import "sort"

// NetworkName 标识 Bink 支持的网络。
type NetworkName string

const (
	NetworkBNB      NetworkName = "bnb"
	NetworkEthereum NetworkName = "ethereum"
	NetworkSolana   NetworkName = "solana"
)

// NetworkType 区分网络所属的虚拟机家族。
type NetworkType string

const (
	NetworkTypeEVM    NetworkType = "evm"
	NetworkTypeSolana NetworkType = "solana"
)

// NativeCurrency 描述网络原生代币。
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// NetworkConfig 是单个网络的连接参数。
type NetworkConfig struct {
	Type           NetworkType    `json:"type"`
	ChainID        int64          `json:"chain_id,omitempty"`
	RPCURL         string         `json:"rpc_url"`
	Name           string         `json:"name"`
	NativeCurrency NativeCurrency `json:"native_currency"`
}

// Networks 以网络名索引网络配置。
type Networks map[NetworkName]NetworkConfig

// RPCEndpoints 是三条网络各自的 RPC 地址。
type RPCEndpoints struct {
	BNB      string
	Ethereum string
	Solana   string
}

// DefaultNetworks 构造内置的 BNB、Ethereum、Solana 网络定义。
func DefaultNetworks(rpc RPCEndpoints) Networks {
	return Networks{
		NetworkBNB: {
			Type:           NetworkTypeEVM,
			ChainID:        56,
			RPCURL:         rpc.BNB,
			Name:           "BNB Chain",
			NativeCurrency: NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18},
		},
		NetworkEthereum: {
			Type:           NetworkTypeEVM,
			ChainID:        1,
			RPCURL:         rpc.Ethereum,
			Name:           "Ethereum",
			NativeCurrency: NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		},
		NetworkSolana: {
			Type:           NetworkTypeSolana,
			RPCURL:         rpc.Solana,
			Name:           "Solana",
			NativeCurrency: NativeCurrency{Name: "Solana", Symbol: "SOL", Decimals: 9},
		},
	}
}

// Clone 返回独立副本。
func (n Networks) Clone() Networks {
	out := make(Networks, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}

// Names 按字典序返回网络名。
func (n Networks) Names() []NetworkName {
	names := make([]NetworkName, 0, len(n))
	for name := range n {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// EVM 只保留 EVM 网络。
func (n Networks) EVM() Networks {
	out := make(Networks)
	for name, cfg := range n {
		if cfg.Type == NetworkTypeEVM {
			out[name] = cfg
		}
	}
	return out
}
