// Package capability 实现智能体可注册的能力插件：钱包、代币、兑换、质押、跨链与知识库。
// 每个插件在 Initialize 时校验提供方与链配置，并把能力暴露为模型可调用的工具。
package capability
