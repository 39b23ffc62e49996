package action

import "BinkAgent-Bridge/internal/facade"

// 动作名称。
const (
	NameExecuteTransaction = "EXECUTE_TRANSACTION"
	NameGetWalletInfo      = "GET_WALLET_INFO"
)

// ExecuteTransaction 执行兑换、质押、跨链等链上操作。
var ExecuteTransaction = Action{
	Name:        NameExecuteTransaction,
	Description: "Execute blockchain transactions across multiple networks (BNB Chain, Ethereum, Solana) with support for various operations including token swaps, staking, and bridging. The tool integrates with multiple DEXs and protocols to provide the best execution routes and prices.",
	Examples: [][]Memory{
		{
			{User: "{{user1}}", Content: Content{Text: "Swap 0.001 BNB for USDC on BSC"}},
			{User: "{{agent}}", Content: Content{Text: "Swap 0.001 BNB for USDC on BSC", Action: NameExecuteTransaction}},
		},
		{
			{User: "{{user1}}", Content: Content{Text: "Buy 0x1234 using 0.001 USDC on BSC. The slippage should be no more than 5%"}},
			{User: "{{agent}}", Content: Content{Text: "Swap 0.001 USDC for token 0x1234 on BSC", Action: NameExecuteTransaction}},
		},
	},
	Template: SystemPromptTemplate,
	Capabilities: []string{
		facade.CapabilitySwap,
		facade.CapabilityToken,
		facade.CapabilityWallet,
		facade.CapabilityStaking,
		facade.CapabilityBridge,
		facade.CapabilityKnowledge,
	},
}

// GetWalletInfo 查询钱包与代币信息。
var GetWalletInfo = Action{
	Name:        NameGetWalletInfo,
	Description: "This tool use for retrieve comprehensive wallet information and get token info across multiple networks (BNB Chain, Ethereum, Solana) including balances, transaction history, and token holdings.",
	Examples: [][]Memory{
		{
			{User: "{{user1}}", Content: Content{Text: "Get wallet info"}},
			{User: "{{agent}}", Content: Content{Text: "Get wallet info", Action: NameGetWalletInfo}},
		},
	},
	Template: SystemPromptTemplate,
	Capabilities: []string{
		facade.CapabilityToken,
		facade.CapabilityKnowledge,
		facade.CapabilityWallet,
	},
}

// All 返回全部动作。
func All() []Action {
	return []Action{ExecuteTransaction, GetWalletInfo}
}

// FacadeSpec 把动作转换为 facade 的描述。
func (a Action) FacadeSpec() facade.Spec {
	return facade.Spec{
		Action:       a.Name,
		Capabilities: append([]string(nil), a.Capabilities...),
		Template:     a.Template,
	}
}
