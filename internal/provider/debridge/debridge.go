// Package debridge 通过 deBridge DLN API 报价并执行跨链转移，源链需为 EVM 网络。
package debridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const defaultBaseURL = "https://dln.debridge.finance/v1.0"

// deBridge 的链编号，Solana 使用内部编号。
var chainIDs = map[wallet.NetworkName]string{
	wallet.NetworkBNB:      "56",
	wallet.NetworkEthereum: "1",
	wallet.NetworkSolana:   "7565164",
}

const (
	evmNative    = "0x0000000000000000000000000000000000000000"
	solanaNative = "11111111111111111111111111111111"
)

// ClientSource 按网络名返回链客户端。
type ClientSource interface {
	Client(name wallet.NetworkName) (web3.Client, bool)
}

// Config 描述 deBridge 接入参数。
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Provider 实现 BridgeProvider。
type Provider struct {
	baseURL string
	http    *http.Client
	clients ClientSource
}

// New 创建 deBridge 提供方。
func New(clients ClientSource, cfg Config) (*Provider, error) {
	if clients == nil {
		return nil, errors.New("未提供链客户端")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: provider.DefaultHTTPTimeout}
	}
	return &Provider{baseURL: base, http: client, clients: clients}, nil
}

// Name 实现 provider.Provider。
func (p *Provider) Name() string { return "debridge" }

// SupportedChains 实现 provider.Provider。
func (p *Provider) SupportedChains() []string { return []string{"bnb", "ethereum", "solana"} }

type tokenAmount struct {
	Address           string `json:"address"`
	Symbol            string `json:"symbol"`
	Decimals          uint8  `json:"decimals"`
	Amount            string `json:"amount"`
	RecommendedAmount string `json:"recommendedAmount"`
}

type createTxResponse struct {
	Estimation struct {
		SrcChainTokenIn  tokenAmount `json:"srcChainTokenIn"`
		DstChainTokenOut tokenAmount `json:"dstChainTokenOut"`
	} `json:"estimation"`
	Tx struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
	} `json:"tx"`
	Order struct {
		ApproximateFulfillmentDelay int `json:"approximateFulfillmentDelay"`
	} `json:"order"`
	FixFee   string `json:"fixFee"`
	ErrorID  string `json:"errorId"`
	ErrorMsg string `json:"errorMessage"`
}

type prepared struct {
	src      wallet.NetworkName
	srcToken string
	amount   *big.Int
	resp     createTxResponse
}

// Quote 调用 create-tx 获取报价。
func (p *Provider) Quote(ctx context.Context, w wallet.Handle, req provider.BridgeRequest) (*provider.BridgeQuote, error) {
	prep, err := p.prepare(ctx, w, req)
	if err != nil {
		return nil, err
	}
	return p.quote(req, prep), nil
}

// Bridge 报价后签名并广播源链交易。
func (p *Provider) Bridge(ctx context.Context, w wallet.Handle, req provider.BridgeRequest) (*provider.Transaction, error) {
	prep, err := p.prepare(ctx, w, req)
	if err != nil {
		return nil, err
	}
	client, ok := p.clients.Client(prep.src)
	if !ok {
		return nil, fmt.Errorf("源链 %s 未连接", prep.src)
	}
	key, err := w.PrivateKey(prep.src)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(prep.resp.Tx.To) {
		return nil, fmt.Errorf("deBridge 返回了无效的交易目标 %q", prep.resp.Tx.To)
	}
	to := common.HexToAddress(prep.resp.Tx.To)
	data, err := hexutil.Decode(prep.resp.Tx.Data)
	if err != nil {
		return nil, fmt.Errorf("解析 deBridge 交易数据失败: %w", err)
	}
	value := new(big.Int)
	if v := strings.TrimSpace(prep.resp.Tx.Value); v != "" {
		if _, ok := value.SetString(v, 0); !ok {
			return nil, fmt.Errorf("解析 deBridge 交易金额失败: %q", v)
		}
	}

	if prep.srcToken != evmNative {
		if err := web3.EnsureAllowance(ctx, client, key, common.HexToAddress(prep.srcToken), to, prep.amount); err != nil {
			return nil, err
		}
	}
	hash, err := client.SendTransaction(ctx, key, web3.TxRequest{To: to, Value: value, Data: data})
	if err != nil {
		return nil, err
	}
	if _, err := client.WaitMined(ctx, hash); err != nil {
		return nil, fmt.Errorf("跨链交易 %s 未成功: %w", hash.Hex(), err)
	}
	return &provider.Transaction{
		Provider: p.Name(),
		Chain:    string(prep.src),
		Hash:     hash.Hex(),
		From:     crypto.PubkeyToAddress(key.PublicKey).Hex(),
		To:       to.Hex(),
		Status:   "submitted",
	}, nil
}

func (p *Provider) prepare(ctx context.Context, w wallet.Handle, req provider.BridgeRequest) (*prepared, error) {
	src := wallet.NetworkName(strings.ToLower(strings.TrimSpace(req.FromChain)))
	dst := wallet.NetworkName(strings.ToLower(strings.TrimSpace(req.ToChain)))
	srcID, ok := chainIDs[src]
	if !ok {
		return nil, fmt.Errorf("deBridge 不支持源链 %s", req.FromChain)
	}
	dstID, ok := chainIDs[dst]
	if !ok {
		return nil, fmt.Errorf("deBridge 不支持目标链 %s", req.ToChain)
	}
	if src == dst {
		return nil, errors.New("源链与目标链相同")
	}
	if src == wallet.NetworkSolana {
		return nil, errors.New("暂不支持从 Solana 发起跨链")
	}
	client, ok := p.clients.Client(src)
	if !ok {
		return nil, fmt.Errorf("源链 %s 未连接", src)
	}

	sender, err := w.Address(ctx, src)
	if err != nil || sender == "" {
		return nil, fmt.Errorf("钱包在 %s 上没有地址", src)
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		recipient, err = w.Address(ctx, dst)
		if err != nil || recipient == "" {
			return nil, fmt.Errorf("钱包在 %s 上没有地址", dst)
		}
	}

	srcToken, decimals, err := sourceToken(ctx, client, req.FromToken)
	if err != nil {
		return nil, err
	}
	amount, err := provider.ParseUnits(req.Amount, decimals)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("srcChainId", srcID)
	params.Set("srcChainTokenIn", srcToken)
	params.Set("srcChainTokenInAmount", amount.String())
	params.Set("dstChainId", dstID)
	params.Set("dstChainTokenOut", destinationToken(dst, req.ToToken))
	params.Set("dstChainTokenOutAmount", "auto")
	params.Set("dstChainTokenOutRecipient", recipient)
	params.Set("senderAddress", sender)
	params.Set("srcChainOrderAuthorityAddress", sender)
	params.Set("dstChainOrderAuthorityAddress", recipient)
	params.Set("prependOperatingExpenses", "true")

	var resp createTxResponse
	endpoint := p.baseURL + "/dln/order/create-tx?" + params.Encode()
	if err := provider.DoJSON(ctx, p.http, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("请求 deBridge 报价失败: %w", err)
	}
	if resp.ErrorID != "" {
		return nil, fmt.Errorf("deBridge 拒绝了请求 %s: %s", resp.ErrorID, resp.ErrorMsg)
	}
	return &prepared{src: src, srcToken: srcToken, amount: amount, resp: resp}, nil
}

func (p *Provider) quote(req provider.BridgeRequest, prep *prepared) *provider.BridgeQuote {
	in := prep.resp.Estimation.SrcChainTokenIn
	out := prep.resp.Estimation.DstChainTokenOut
	amountOut := out.RecommendedAmount
	if amountOut == "" {
		amountOut = out.Amount
	}
	q := &provider.BridgeQuote{
		Provider:         p.Name(),
		FromChain:        req.FromChain,
		ToChain:          req.ToChain,
		AmountIn:         formatRaw(in.Amount, in.Decimals),
		AmountOut:        formatRaw(amountOut, out.Decimals),
		EstimatedSeconds: prep.resp.Order.ApproximateFulfillmentDelay,
	}
	if prep.resp.FixFee != "" {
		q.Fee = formatRaw(prep.resp.FixFee, 18)
	}
	return q
}

func sourceToken(ctx context.Context, client web3.Client, token string) (string, uint8, error) {
	if provider.IsNative(token) {
		return evmNative, 18, nil
	}
	if !common.IsHexAddress(token) {
		return "", 0, fmt.Errorf("跨链需要代币地址，收到 %q", token)
	}
	addr := common.HexToAddress(token)
	out, err := web3.CallABI(ctx, client, addr, web3.ERC20ABI, "decimals")
	if err != nil {
		return "", 0, fmt.Errorf("查询代币 %s 精度失败: %w", addr.Hex(), err)
	}
	d, _ := out[0].(uint8)
	return addr.Hex(), d, nil
}

func destinationToken(dst wallet.NetworkName, token string) string {
	if provider.IsNative(token) {
		if dst == wallet.NetworkSolana {
			return solanaNative
		}
		return evmNative
	}
	return strings.TrimSpace(token)
}

func formatRaw(raw string, decimals uint8) string {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return raw
	}
	return provider.FormatUnits(v, decimals)
}

var _ provider.BridgeProvider = (*Provider)(nil)
