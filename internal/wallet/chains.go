package wallet

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChainDefinitions 对应网络覆盖文件的结构。
type ChainDefinitions struct {
	Chains map[string]ChainDefinition `yaml:"chains"`
}

// ChainDefinition 描述单个网络的覆盖项，空字段保留默认值。
type ChainDefinition struct {
	Type        string `yaml:"type"`
	ChainID     int64  `yaml:"chain_id"`
	RPCURL      string `yaml:"rpc_url"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// LoadChainDefinitions 解析网络覆盖 YAML 文件，路径为空时返回空定义。
func LoadChainDefinitions(path string) (ChainDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return ChainDefinitions{Chains: map[string]ChainDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ChainDefinitions{}, fmt.Errorf("读取链配置失败: %w", err)
	}

	var defs ChainDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return ChainDefinitions{}, fmt.Errorf("解析链配置失败: %w", err)
	}
	if defs.Chains == nil {
		defs.Chains = map[string]ChainDefinition{}
	}
	return defs, nil
}

// Apply 用覆盖定义更新网络配置，未知网络名会返回错误。
func (d ChainDefinitions) Apply(networks Networks) (Networks, error) {
	out := networks.Clone()
	for name, def := range d.Chains {
		key := NetworkName(strings.ToLower(strings.TrimSpace(name)))
		cfg, ok := out[key]
		if !ok {
			return nil, fmt.Errorf("链配置包含未知网络 %s", name)
		}
		if t := strings.ToLower(strings.TrimSpace(def.Type)); t != "" && NetworkType(t) != cfg.Type {
			return nil, fmt.Errorf("网络 %s 的类型 %s 与内置类型 %s 不一致", name, def.Type, cfg.Type)
		}
		if def.ChainID != 0 {
			cfg.ChainID = def.ChainID
		}
		if url := strings.TrimSpace(def.RPCURL); url != "" {
			cfg.RPCURL = url
		}
		if n := strings.TrimSpace(def.Name); n != "" {
			cfg.Name = n
		}
		out[key] = cfg
	}
	return out, nil
}
