package web3

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainSnapshot represents summarized network metadata for UI/reporting.
type ChainSnapshot struct {
	ChainID     string
	BlockNumber string
	Notes       string
}

// TxRequest describes a contract call or value transfer to be signed locally.
type TxRequest struct {
	To    common.Address
	Value *big.Int
	Data  []byte
	// GasLimit is estimated when zero.
	GasLimit uint64
}

// Client defines the common interface that any chain implementation must
// provide so higher layers can interact with different networks uniformly.
type Client interface {
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	NativeBalance(ctx context.Context, address common.Address) (*big.Int, error)
	CallContract(ctx context.Context, msg gethcore.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, key *ecdsa.PrivateKey, req TxRequest) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	Close()
}
