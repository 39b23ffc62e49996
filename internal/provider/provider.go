package provider

import (
	"context"
	"strings"

	"BinkAgent-Bridge/internal/wallet"
)

// 原生代币的占位地址。
const (
	EVMNativeToken    = "0xEeeeeEeeeEeEeEeEeEeEEEeeeeEeeeeeeeEEeE"
	SolanaNativeToken = "So11111111111111111111111111111111111111112"
)

// IsNative 判断 token 是否代表链的原生代币。
func IsNative(token string) bool {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "native", "bnb", "eth", "sol", strings.ToLower(EVMNativeToken), strings.ToLower(SolanaNativeToken):
		return true
	default:
		return false
	}
}

// Provider 是所有提供方的公共部分。
type Provider interface {
	Name() string
	SupportedChains() []string
}

// Token 描述代币元数据与行情。
type Token struct {
	Chain          string  `json:"chain"`
	Address        string  `json:"address"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Decimals       uint8   `json:"decimals"`
	PriceUSD       float64 `json:"price_usd,omitempty"`
	MarketCapUSD   float64 `json:"market_cap_usd,omitempty"`
	LiquidityUSD   float64 `json:"liquidity_usd,omitempty"`
	Volume24hUSD   float64 `json:"volume_24h_usd,omitempty"`
	PriceChange24h float64 `json:"price_change_24h_percent,omitempty"`
}

// Holding 是钱包中的一项持仓，Balance 为按精度换算后的数量。
type Holding struct {
	Token    Token   `json:"token"`
	Balance  string  `json:"balance"`
	ValueUSD float64 `json:"value_usd,omitempty"`
}

// Portfolio 是钱包在某条链上的持仓汇总。
type Portfolio struct {
	Provider string    `json:"provider"`
	Chain    string    `json:"chain"`
	Address  string    `json:"address"`
	Holdings []Holding `json:"holdings"`
	TotalUSD float64   `json:"total_usd,omitempty"`
}

// Transaction 是已广播交易的摘要。
type Transaction struct {
	Provider string `json:"provider"`
	Chain    string `json:"chain"`
	Hash     string `json:"hash"`
	From     string `json:"from"`
	To       string `json:"to"`
	Status   string `json:"status"`
}

// SwapRequest 描述一次兑换，Amount 为输入代币的可读数量，Slippage 为百分比。
type SwapRequest struct {
	Chain     string  `json:"chain"`
	FromToken string  `json:"from_token"`
	ToToken   string  `json:"to_token"`
	Amount    string  `json:"amount"`
	Slippage  float64 `json:"slippage"`
}

// SwapQuote 是兑换报价。
type SwapQuote struct {
	Provider     string   `json:"provider"`
	Chain        string   `json:"chain"`
	FromToken    string   `json:"from_token"`
	ToToken      string   `json:"to_token"`
	AmountIn     string   `json:"amount_in"`
	AmountOut    string   `json:"amount_out"`
	MinAmountOut string   `json:"min_amount_out"`
	Slippage     float64  `json:"slippage"`
	Path         []string `json:"path"`
}

// SwapResult 汇总报价与成交交易。
type SwapResult struct {
	Quote       SwapQuote   `json:"quote"`
	Transaction Transaction `json:"transaction"`
}

// StakeRequest 描述一次质押或赎回。
type StakeRequest struct {
	Chain  string `json:"chain"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// StakingInfo 描述质押市场与账户仓位。
type StakingInfo struct {
	Provider  string  `json:"provider"`
	Chain     string  `json:"chain"`
	Token     string  `json:"token"`
	SupplyAPY float64 `json:"supply_apy_percent"`
	Supplied  string  `json:"supplied"`
}

// BridgeRequest 描述一次跨链转移，Recipient 为空时使用钱包在目标链的地址。
type BridgeRequest struct {
	FromChain string `json:"from_chain"`
	ToChain   string `json:"to_chain"`
	FromToken string `json:"from_token"`
	ToToken   string `json:"to_token"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient,omitempty"`
}

// BridgeQuote 是跨链报价。
type BridgeQuote struct {
	Provider         string `json:"provider"`
	FromChain        string `json:"from_chain"`
	ToChain          string `json:"to_chain"`
	AmountIn         string `json:"amount_in"`
	AmountOut        string `json:"amount_out"`
	Fee              string `json:"fee,omitempty"`
	EstimatedSeconds int    `json:"estimated_seconds,omitempty"`
}

// Source 是知识回答引用的来源。
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Answer 是知识库的回答。
type Answer struct {
	Provider string   `json:"provider"`
	Text     string   `json:"text"`
	Sources  []Source `json:"sources,omitempty"`
}

// TokenInfoProvider 提供代币元数据与行情。
type TokenInfoProvider interface {
	Provider
	TokenInfo(ctx context.Context, chain, address string) (*Token, error)
	SearchToken(ctx context.Context, chain, query string) ([]Token, error)
}

// WalletProvider 提供钱包持仓。
type WalletProvider interface {
	Provider
	Portfolio(ctx context.Context, chain, address string) (*Portfolio, error)
}

// SwapProvider 提供兑换报价与执行。
type SwapProvider interface {
	Provider
	Quote(ctx context.Context, req SwapRequest) (*SwapQuote, error)
	Swap(ctx context.Context, w wallet.Handle, req SwapRequest) (*SwapResult, error)
}

// StakingProvider 提供质押信息、质押与赎回。
type StakingProvider interface {
	Provider
	Info(ctx context.Context, chain, address string) (*StakingInfo, error)
	Stake(ctx context.Context, w wallet.Handle, req StakeRequest) (*Transaction, error)
	Unstake(ctx context.Context, w wallet.Handle, req StakeRequest) (*Transaction, error)
}

// BridgeProvider 提供跨链报价与执行。
type BridgeProvider interface {
	Provider
	Quote(ctx context.Context, w wallet.Handle, req BridgeRequest) (*BridgeQuote, error)
	Bridge(ctx context.Context, w wallet.Handle, req BridgeRequest) (*Transaction, error)
}

// KnowledgeProvider 回答 Bink 生态相关的问题。
type KnowledgeProvider interface {
	Provider
	Ask(ctx context.Context, question string) (*Answer, error)
}

// Supports 判断提供方是否支持 chain。
func Supports(p Provider, chain string) bool {
	for _, c := range p.SupportedChains() {
		if strings.EqualFold(c, chain) {
			return true
		}
	}
	return false
}
