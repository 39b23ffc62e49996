// Package provider 定义能力插件依赖的数据与交易提供方接口，
// 各子包分别对接 Birdeye、Alchemy、EVM 节点、DEX 路由、Venus、deBridge 与 Bink。
package provider
