// Package dex 通过 Uniswap V2 风格的路由合约报价并执行兑换，
// 内置 BNB Chain 上的 PancakeSwap V2 与 Ethereum 上的 Uniswap V2。
package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const routerJSON = `[
 {"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"},
 {"inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactETHForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"payable","type":"function"},
 {"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForETH","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

// RouterABI 是 V2 路由合约中用到的方法。
var RouterABI = web3.MustParseABI(routerJSON)

const swapDeadline = 20 * time.Minute

// Venue 描述某条链上的一个 V2 路由。
type Venue struct {
	Name    string
	Chain   wallet.NetworkName
	Router  common.Address
	Wrapped common.Address
	// Symbols 把常见符号映射到代币地址。
	Symbols map[string]common.Address
}

// DefaultVenues 返回内置路由。
func DefaultVenues() []Venue {
	return []Venue{
		{
			Name:    "pancakeswap",
			Chain:   wallet.NetworkBNB,
			Router:  common.HexToAddress("0x10ED43C718714eb63d5aA57B78B54704E256024E"),
			Wrapped: common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"),
			Symbols: map[string]common.Address{
				"WBNB": common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"),
				"USDT": common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"),
				"USDC": common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"),
				"CAKE": common.HexToAddress("0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82"),
			},
		},
		{
			Name:    "uniswap",
			Chain:   wallet.NetworkEthereum,
			Router:  common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcF4c4a9cbE7a5"),
			Wrapped: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
			Symbols: map[string]common.Address{
				"WETH": common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				"USDT": common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
				"USDC": common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
			},
		},
	}
}

// ClientSource 按网络名返回链客户端。
type ClientSource interface {
	Client(name wallet.NetworkName) (web3.Client, bool)
}

// Provider 实现 SwapProvider。
type Provider struct {
	clients ClientSource
	venues  map[wallet.NetworkName]Venue
	now     func() time.Time
}

// New 创建路由提供方，只保留有链客户端的路由。
func New(clients ClientSource, venues []Venue) (*Provider, error) {
	if clients == nil {
		return nil, errors.New("未提供链客户端")
	}
	if venues == nil {
		venues = DefaultVenues()
	}
	p := &Provider{clients: clients, venues: make(map[wallet.NetworkName]Venue), now: time.Now}
	for _, v := range venues {
		if _, ok := clients.Client(v.Chain); ok {
			p.venues[v.Chain] = v
		}
	}
	if len(p.venues) == 0 {
		return nil, errors.New("没有可用的兑换路由")
	}
	return p, nil
}

// Name 实现 provider.Provider。
func (p *Provider) Name() string { return "dex" }

// SupportedChains 实现 provider.Provider。
func (p *Provider) SupportedChains() []string {
	out := make([]string, 0, len(p.venues))
	for chain := range p.venues {
		out = append(out, string(chain))
	}
	sort.Strings(out)
	return out
}

type plan struct {
	venue     Venue
	client    web3.Client
	fromNat   bool
	toNat     bool
	path      []common.Address
	amountIn  *big.Int
	amountOut *big.Int
	minOut    *big.Int
	quote     provider.SwapQuote
}

// Quote 通过 getAmountsOut 报价，直连路径失败时经包装原生代币中转。
func (p *Provider) Quote(ctx context.Context, req provider.SwapRequest) (*provider.SwapQuote, error) {
	pl, err := p.plan(ctx, req)
	if err != nil {
		return nil, err
	}
	return &pl.quote, nil
}

// Swap 报价后签名并广播兑换交易，代币输入时先完成授权。
func (p *Provider) Swap(ctx context.Context, w wallet.Handle, req provider.SwapRequest) (*provider.SwapResult, error) {
	pl, err := p.plan(ctx, req)
	if err != nil {
		return nil, err
	}
	key, err := w.PrivateKey(pl.venue.Chain)
	if err != nil {
		return nil, err
	}
	owner := crypto.PubkeyToAddress(key.PublicKey)
	deadline := big.NewInt(p.now().Add(swapDeadline).Unix())

	var tx web3.TxRequest
	switch {
	case pl.fromNat:
		data, err := RouterABI.Pack("swapExactETHForTokens", pl.minOut, pl.path, owner, deadline)
		if err != nil {
			return nil, fmt.Errorf("编码兑换调用失败: %w", err)
		}
		tx = web3.TxRequest{To: pl.venue.Router, Value: pl.amountIn, Data: data}
	default:
		if err := web3.EnsureAllowance(ctx, pl.client, key, pl.path[0], pl.venue.Router, pl.amountIn); err != nil {
			return nil, err
		}
		method := "swapExactTokensForTokens"
		if pl.toNat {
			method = "swapExactTokensForETH"
		}
		data, err := RouterABI.Pack(method, pl.amountIn, pl.minOut, pl.path, owner, deadline)
		if err != nil {
			return nil, fmt.Errorf("编码兑换调用失败: %w", err)
		}
		tx = web3.TxRequest{To: pl.venue.Router, Data: data}
	}

	hash, err := pl.client.SendTransaction(ctx, key, tx)
	if err != nil {
		return nil, err
	}
	if _, err := pl.client.WaitMined(ctx, hash); err != nil {
		return nil, fmt.Errorf("兑换交易 %s 未成功: %w", hash.Hex(), err)
	}
	return &provider.SwapResult{
		Quote: pl.quote,
		Transaction: provider.Transaction{
			Provider: pl.venue.Name,
			Chain:    string(pl.venue.Chain),
			Hash:     hash.Hex(),
			From:     owner.Hex(),
			To:       pl.venue.Router.Hex(),
			Status:   "success",
		},
	}, nil
}

func (p *Provider) plan(ctx context.Context, req provider.SwapRequest) (*plan, error) {
	chain := wallet.NetworkName(strings.ToLower(strings.TrimSpace(req.Chain)))
	venue, ok := p.venues[chain]
	if !ok {
		return nil, fmt.Errorf("链 %s 没有可用的兑换路由", req.Chain)
	}
	client, ok := p.clients.Client(chain)
	if !ok {
		return nil, fmt.Errorf("链 %s 未连接", req.Chain)
	}

	pl := &plan{venue: venue, client: client, fromNat: provider.IsNative(req.FromToken), toNat: provider.IsNative(req.ToToken)}
	if pl.fromNat && pl.toNat {
		return nil, errors.New("输入与输出不能同为原生代币")
	}
	from, err := venue.resolve(req.FromToken)
	if err != nil {
		return nil, err
	}
	to, err := venue.resolve(req.ToToken)
	if err != nil {
		return nil, err
	}
	if from == to {
		return nil, errors.New("输入与输出代币相同")
	}

	inDecimals, err := decimalsOf(ctx, client, from, pl.fromNat)
	if err != nil {
		return nil, err
	}
	outDecimals, err := decimalsOf(ctx, client, to, pl.toNat)
	if err != nil {
		return nil, err
	}
	pl.amountIn, err = provider.ParseUnits(req.Amount, inDecimals)
	if err != nil {
		return nil, err
	}

	candidates := [][]common.Address{{from, to}}
	if from != venue.Wrapped && to != venue.Wrapped {
		candidates = append(candidates, []common.Address{from, venue.Wrapped, to})
	}
	var lastErr error
	for _, path := range candidates {
		out, err := web3.CallABI(ctx, client, venue.Router, RouterABI, "getAmountsOut", pl.amountIn, path)
		if err != nil {
			lastErr = err
			continue
		}
		amounts, ok := out[0].([]*big.Int)
		if !ok || len(amounts) != len(path) || amounts[len(amounts)-1].Sign() == 0 {
			lastErr = errors.New("路由返回了空报价")
			continue
		}
		pl.path = path
		pl.amountOut = amounts[len(amounts)-1]
		break
	}
	if pl.path == nil {
		return nil, fmt.Errorf("没有找到 %s 到 %s 的兑换路径: %w", req.FromToken, req.ToToken, lastErr)
	}

	pl.minOut = provider.ApplySlippage(pl.amountOut, req.Slippage)
	hops := make([]string, 0, len(pl.path))
	for _, addr := range pl.path {
		hops = append(hops, addr.Hex())
	}
	pl.quote = provider.SwapQuote{
		Provider:     venue.Name,
		Chain:        string(chain),
		FromToken:    req.FromToken,
		ToToken:      req.ToToken,
		AmountIn:     provider.FormatUnits(pl.amountIn, inDecimals),
		AmountOut:    provider.FormatUnits(pl.amountOut, outDecimals),
		MinAmountOut: provider.FormatUnits(pl.minOut, outDecimals),
		Slippage:     req.Slippage,
		Path:         hops,
	}
	return pl, nil
}

func (v Venue) resolve(token string) (common.Address, error) {
	token = strings.TrimSpace(token)
	if provider.IsNative(token) {
		return v.Wrapped, nil
	}
	if common.IsHexAddress(token) {
		return common.HexToAddress(token), nil
	}
	if addr, ok := v.Symbols[strings.ToUpper(token)]; ok {
		return addr, nil
	}
	return common.Address{}, fmt.Errorf("无法识别代币 %q，请先查询代币地址", token)
}

func decimalsOf(ctx context.Context, client web3.Client, token common.Address, native bool) (uint8, error) {
	if native {
		return 18, nil
	}
	out, err := web3.CallABI(ctx, client, token, web3.ERC20ABI, "decimals")
	if err != nil {
		return 0, fmt.Errorf("查询代币 %s 精度失败: %w", token.Hex(), err)
	}
	d, _ := out[0].(uint8)
	return d, nil
}

var _ provider.SwapProvider = (*Provider)(nil)
