// Package web3test provides an in-memory web3.Client for provider tests.
package web3test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"BinkAgent-Bridge/internal/web3"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// CallHandler answers a contract call with the method's output values.
type CallHandler func(args []any) ([]any, error)

type route struct {
	method abi.Method
	fn     CallHandler
}

// SentTx records a transaction passed to SendTransaction.
type SentTx struct {
	From common.Address
	web3.TxRequest
}

// FakeClient is a scriptable web3.Client.
type FakeClient struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	routes   map[string]route
	sent     []SentTx
	SendErr  error
	Snapshot web3.ChainSnapshot
	closed   bool
}

// NewFakeClient returns an empty fake.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		balances: make(map[common.Address]*big.Int),
		routes:   make(map[string]route),
	}
}

// SetBalance sets the native balance of addr.
func (f *FakeClient) SetBalance(addr common.Address, wei *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr] = wei
}

// Handle registers fn for calls of method on contract.
func (f *FakeClient) Handle(contract common.Address, parsed abi.ABI, method string, fn CallHandler) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("method %s not in abi", method))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[routeKey(contract, m.ID)] = route{method: m, fn: fn}
}

// Sent returns the transactions sent so far.
func (f *FakeClient) Sent() []SentTx {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentTx(nil), f.sent...)
}

// Closed reports whether Close was called.
func (f *FakeClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeClient) FetchChainSnapshot(context.Context) (web3.ChainSnapshot, error) {
	return f.Snapshot, nil
}

func (f *FakeClient) NativeBalance(_ context.Context, address common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[address]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (f *FakeClient) CallContract(_ context.Context, msg gethcore.CallMsg) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("malformed call")
	}
	f.mu.Lock()
	r, ok := f.routes[routeKey(*msg.To, msg.Data[:4])]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no handler for %s selector %x", msg.To.Hex(), msg.Data[:4])
	}
	args, err := r.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	outs, err := r.fn(args)
	if err != nil {
		return nil, err
	}
	return r.method.Outputs.Pack(outs...)
}

func (f *FakeClient) SendTransaction(_ context.Context, key *ecdsa.PrivateKey, req web3.TxRequest) (common.Hash, error) {
	if f.SendErr != nil {
		return common.Hash{}, f.SendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, SentTx{From: crypto.PubkeyToAddress(key.PublicKey), TxRequest: req})
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("tx-%d", len(f.sent)))), nil
}

func (f *FakeClient) WaitMined(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(1)}, nil
}

func (f *FakeClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func routeKey(contract common.Address, selector []byte) string {
	return fmt.Sprintf("%s:%x", contract.Hex(), selector)
}

var _ web3.Client = (*FakeClient)(nil)
