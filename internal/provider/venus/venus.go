// Package venus 对接 BNB Chain 上 Venus 协议的 vBNB 市场，提供 BNB 的存入与赎回。
package venus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const vTokenJSON = `[
 {"constant":true,"inputs":[],"name":"supplyRatePerBlock","outputs":[{"name":"","type":"uint256"}],"type":"function"},
 {"constant":false,"inputs":[],"name":"mint","outputs":[],"payable":true,"type":"function"},
 {"constant":false,"inputs":[{"name":"redeemAmount","type":"uint256"}],"name":"redeemUnderlying","outputs":[{"name":"","type":"uint256"}],"type":"function"},
 {"constant":false,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOfUnderlying","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// VTokenABI 是 vBNB 合约中用到的方法。
var VTokenABI = web3.MustParseABI(vTokenJSON)

// VBNB 是 Venus 核心池的 vBNB 合约地址。
var VBNB = common.HexToAddress("0xA07c5b74C9B40447a954e1466938b865b6BBea36")

// DefaultBlocksPerDay 按 3 秒出块估算。
const DefaultBlocksPerDay = 28800

// ClientSource 按网络名返回链客户端。
type ClientSource interface {
	Client(name wallet.NetworkName) (web3.Client, bool)
}

// Provider 实现 StakingProvider。
type Provider struct {
	clients      ClientSource
	market       common.Address
	blocksPerDay float64
}

// New 创建 Venus 提供方。market 为零地址时使用 VBNB。
func New(clients ClientSource, market common.Address, blocksPerDay int) (*Provider, error) {
	if clients == nil {
		return nil, errors.New("未提供链客户端")
	}
	if _, ok := clients.Client(wallet.NetworkBNB); !ok {
		return nil, errors.New("Venus 需要 BNB Chain 客户端")
	}
	if market == (common.Address{}) {
		market = VBNB
	}
	if blocksPerDay <= 0 {
		blocksPerDay = DefaultBlocksPerDay
	}
	return &Provider{clients: clients, market: market, blocksPerDay: float64(blocksPerDay)}, nil
}

// Name 实现 provider.Provider。
func (p *Provider) Name() string { return "venus" }

// SupportedChains 实现 provider.Provider。
func (p *Provider) SupportedChains() []string { return []string{"bnb"} }

// Info 返回 vBNB 的存款年化与 address 的已存入数量，address 为空时只返回年化。
func (p *Provider) Info(ctx context.Context, chain, address string) (*provider.StakingInfo, error) {
	client, err := p.client(chain)
	if err != nil {
		return nil, err
	}
	out, err := web3.CallABI(ctx, client, p.market, VTokenABI, "supplyRatePerBlock")
	if err != nil {
		return nil, fmt.Errorf("查询 Venus 存款利率失败: %w", err)
	}
	rate, _ := out[0].(*big.Int)

	info := &provider.StakingInfo{
		Provider:  p.Name(),
		Chain:     "bnb",
		Token:     "BNB",
		SupplyAPY: p.apy(rate),
		Supplied:  "0",
	}
	if strings.TrimSpace(address) != "" {
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("无效的 EVM 地址 %q", address)
		}
		out, err := web3.CallABI(ctx, client, p.market, VTokenABI, "balanceOfUnderlying", common.HexToAddress(address))
		if err != nil {
			return nil, fmt.Errorf("查询 Venus 存款余额失败: %w", err)
		}
		supplied, _ := out[0].(*big.Int)
		info.Supplied = provider.FormatUnits(supplied, 18)
	}
	return info, nil
}

// Stake 调用 mint 存入 BNB。
func (p *Provider) Stake(ctx context.Context, w wallet.Handle, req provider.StakeRequest) (*provider.Transaction, error) {
	if !provider.IsNative(req.Token) {
		return nil, fmt.Errorf("Venus 目前只支持存入 BNB，收到 %s", req.Token)
	}
	amount, err := provider.ParseUnits(req.Amount, 18)
	if err != nil {
		return nil, err
	}
	data, err := VTokenABI.Pack("mint")
	if err != nil {
		return nil, err
	}
	return p.send(ctx, w, req.Chain, web3.TxRequest{To: p.market, Value: amount, Data: data})
}

// Unstake 调用 redeemUnderlying 赎回 BNB。
func (p *Provider) Unstake(ctx context.Context, w wallet.Handle, req provider.StakeRequest) (*provider.Transaction, error) {
	if !provider.IsNative(req.Token) {
		return nil, fmt.Errorf("Venus 目前只支持赎回 BNB，收到 %s", req.Token)
	}
	amount, err := provider.ParseUnits(req.Amount, 18)
	if err != nil {
		return nil, err
	}
	data, err := VTokenABI.Pack("redeemUnderlying", amount)
	if err != nil {
		return nil, err
	}
	return p.send(ctx, w, req.Chain, web3.TxRequest{To: p.market, Data: data})
}

func (p *Provider) send(ctx context.Context, w wallet.Handle, chain string, tx web3.TxRequest) (*provider.Transaction, error) {
	client, err := p.client(chain)
	if err != nil {
		return nil, err
	}
	key, err := w.PrivateKey(wallet.NetworkBNB)
	if err != nil {
		return nil, err
	}
	hash, err := client.SendTransaction(ctx, key, tx)
	if err != nil {
		return nil, err
	}
	if _, err := client.WaitMined(ctx, hash); err != nil {
		return nil, fmt.Errorf("Venus 交易 %s 未成功: %w", hash.Hex(), err)
	}
	return &provider.Transaction{
		Provider: p.Name(),
		Chain:    "bnb",
		Hash:     hash.Hex(),
		From:     crypto.PubkeyToAddress(key.PublicKey).Hex(),
		To:       p.market.Hex(),
		Status:   "success",
	}, nil
}

func (p *Provider) client(chain string) (web3.Client, error) {
	if chain != "" && !strings.EqualFold(chain, "bnb") {
		return nil, fmt.Errorf("Venus 不支持链 %s", chain)
	}
	client, ok := p.clients.Client(wallet.NetworkBNB)
	if !ok {
		return nil, errors.New("BNB Chain 未连接")
	}
	return client, nil
}

// apy 按 Venus 文档的日复利公式换算年化百分比。
func (p *Provider) apy(ratePerBlock *big.Int) float64 {
	if ratePerBlock == nil {
		return 0
	}
	rate, _ := new(big.Float).Quo(new(big.Float).SetInt(ratePerBlock), big.NewFloat(1e18)).Float64()
	return (math.Pow(rate*p.blocksPerDay+1, 365) - 1) * 100
}

var _ provider.StakingProvider = (*Provider)(nil)
