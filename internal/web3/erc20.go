package web3

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const erc20JSON = `[
 {"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
 {"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
 {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
 {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
 {"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
 {"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// ERC20ABI is the parsed subset of the ERC-20 interface used by providers.
var ERC20ABI = MustParseABI(erc20JSON)

// MustParseABI parses a contract ABI and panics on malformed input. Only use
// it with compile-time constants.
func MustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// CallABI packs a read-only call, executes it and unpacks the outputs.
func CallABI(ctx context.Context, c Client, contract common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("编码 %s 调用失败: %w", method, err)
	}
	out, err := c.CallContract(ctx, gethcore.CallMsg{To: &contract, Data: data})
	if err != nil {
		return nil, err
	}
	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("解码 %s 返回值失败: %w", method, err)
	}
	return values, nil
}

// TokenMetadata is the on-chain descriptive data of an ERC-20 token.
type TokenMetadata struct {
	Address  common.Address
	Name     string
	Symbol   string
	Decimals uint8
}

// ERC20Metadata reads name, symbol and decimals of token.
func ERC20Metadata(ctx context.Context, c Client, token common.Address) (TokenMetadata, error) {
	meta := TokenMetadata{Address: token}
	name, err := CallABI(ctx, c, token, ERC20ABI, "name")
	if err != nil {
		return meta, err
	}
	symbol, err := CallABI(ctx, c, token, ERC20ABI, "symbol")
	if err != nil {
		return meta, err
	}
	decimals, err := CallABI(ctx, c, token, ERC20ABI, "decimals")
	if err != nil {
		return meta, err
	}
	meta.Name, _ = name[0].(string)
	meta.Symbol, _ = symbol[0].(string)
	meta.Decimals, _ = decimals[0].(uint8)
	return meta, nil
}

// ERC20BalanceOf returns the raw token balance of owner.
func ERC20BalanceOf(ctx context.Context, c Client, token, owner common.Address) (*big.Int, error) {
	out, err := CallABI(ctx, c, token, ERC20ABI, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf 返回了意外的类型 %T", out[0])
	}
	return balance, nil
}

// ERC20Allowance returns how much spender may transfer on behalf of owner.
func ERC20Allowance(ctx context.Context, c Client, token, owner, spender common.Address) (*big.Int, error) {
	out, err := CallABI(ctx, c, token, ERC20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allowance 返回了意外的类型 %T", out[0])
	}
	return allowance, nil
}

// EnsureAllowance approves spender for amount when the current allowance is
// lower, waiting for the approval to be mined.
func EnsureAllowance(ctx context.Context, c Client, key *ecdsa.PrivateKey, token, spender common.Address, amount *big.Int) error {
	owner := crypto.PubkeyToAddress(key.PublicKey)
	current, err := ERC20Allowance(ctx, c, token, owner, spender)
	if err != nil {
		return err
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}
	data, err := ERC20ABI.Pack("approve", spender, amount)
	if err != nil {
		return fmt.Errorf("编码 approve 调用失败: %w", err)
	}
	hash, err := c.SendTransaction(ctx, key, TxRequest{To: token, Data: data})
	if err != nil {
		return fmt.Errorf("发送授权交易失败: %w", err)
	}
	if _, err := c.WaitMined(ctx, hash); err != nil {
		return fmt.Errorf("等待授权交易确认失败: %w", err)
	}
	return nil
}
