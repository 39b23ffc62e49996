package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"BinkAgent-Bridge/internal/web3"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

const defaultPollInterval = 2 * time.Second

// Config describes how to construct an EVM compatible client.
type Config struct {
	Name    string
	RPCURL  string
	ChainID int64
	Notes   string
	// PollInterval controls how often WaitMined checks for a receipt.
	PollInterval time.Duration
}

// Client implements the web3.Client interface for EVM compatible chains.
type Client struct {
	name         string
	notes        string
	rpcClient    *gethrpc.Client
	eth          *ethclient.Client
	chainID      *big.Int
	pollInterval time.Duration
	mu           sync.Mutex
	sendMu       sync.Mutex
}

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置 EVM RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接节点 %s 失败: %w", cfg.Name, err)
	}

	var chainID *big.Int
	if cfg.ChainID > 0 {
		chainID = big.NewInt(cfg.ChainID)
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Client{
		name:         cfg.Name,
		notes:        cfg.Notes,
		rpcClient:    rpcClient,
		eth:          ethclient.NewClient(rpcClient),
		chainID:      chainID,
		pollInterval: interval,
	}, nil
}

// Name returns the network name the client was created for.
func (c *Client) Name() string { return c.name }

// RPC exposes the underlying JSON-RPC client for provider specific methods.
func (c *Client) RPC() *gethrpc.Client { return c.rpcClient }

// Close releases network connections held by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
	c.rpcClient = nil
}

func (c *Client) backend() (*ethclient.Client, error) {
	if c == nil {
		return nil, errors.New("未初始化的以太坊客户端")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth == nil {
		return nil, errors.New("以太坊客户端已关闭")
	}
	return c.eth, nil
}

// FetchChainSnapshot gathers lightweight metadata from the chain.
func (c *Client) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	eth, err := c.backend()
	if err != nil {
		return web3.ChainSnapshot{}, err
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("获取链 ID 失败: %w", err)
	}
	blockNumber, err := eth.BlockNumber(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("获取最新区块高度失败: %w", err)
	}
	return web3.ChainSnapshot{
		ChainID:     toHexBig(chainID),
		BlockNumber: fmt.Sprintf("0x%x", blockNumber),
		Notes:       c.notes,
	}, nil
}

// NativeBalance returns the latest native coin balance in wei.
func (c *Client) NativeBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	eth, err := c.backend()
	if err != nil {
		return nil, err
	}
	balance, err := eth.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("查询余额失败: %w", err)
	}
	return balance, nil
}

// CallContract executes a read-only call against the latest block.
func (c *Client) CallContract(ctx context.Context, msg gethcore.CallMsg) ([]byte, error) {
	eth, err := c.backend()
	if err != nil {
		return nil, err
	}
	out, err := eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("调用合约失败: %w", err)
	}
	return out, nil
}

// SendTransaction signs a legacy transaction with key and broadcasts it.
// Sends from one client are serialized so pending nonces do not collide.
func (c *Client) SendTransaction(ctx context.Context, key *ecdsa.PrivateKey, req web3.TxRequest) (common.Hash, error) {
	if key == nil {
		return common.Hash{}, errors.New("未提供交易签名私钥")
	}
	eth, err := c.backend()
	if err != nil {
		return common.Hash{}, err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	chainID, err := c.resolveChainID(ctx, eth)
	if err != nil {
		return common.Hash{}, err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("查询交易计数失败: %w", err)
	}
	gasPrice, err := eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("获取 gas 价格失败: %w", err)
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}
	to := req.To
	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit, err = eth.EstimateGas(ctx, gethcore.CallMsg{From: from, To: &to, Value: value, Data: req.Data})
		if err != nil {
			return common.Hash{}, fmt.Errorf("估算 gas 失败: %w", err)
		}
	}

	tx := coretypes.NewTx(&coretypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     req.Data,
	})
	signed, err := coretypes.SignTx(tx, coretypes.LatestSignerForChainID(chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("签名交易失败: %w", err)
	}
	if err := eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("发送交易失败: %w", err)
	}
	return signed.Hash(), nil
}

// WaitMined polls for the receipt of hash until it is available or ctx ends.
func (c *Client) WaitMined(ctx context.Context, hash common.Hash) (*coretypes.Receipt, error) {
	eth, err := c.backend()
	if err != nil {
		return nil, err
	}
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := eth.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != coretypes.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("交易 %s 执行失败", hash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, gethcore.NotFound) {
			return nil, fmt.Errorf("查询交易回执失败: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) resolveChainID(ctx context.Context, eth *ethclient.Client) (*big.Int, error) {
	if c.chainID != nil {
		return c.chainID, nil
	}
	id, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取链 ID 失败: %w", err)
	}
	c.chainID = id
	return id, nil
}

func toHexBig(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return "0x" + n.Text(16)
}

var _ web3.Client = (*Client)(nil)
