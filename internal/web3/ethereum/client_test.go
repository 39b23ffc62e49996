package ethereum

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"BinkAgent-Bridge/internal/web3"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type fakeNode struct {
	mu       sync.Mutex
	calls    []string
	rawTx    string
	receipts int
}

func (n *fakeNode) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}
		n.mu.Lock()
		n.calls = append(n.calls, req.Method)
		var result any
		switch req.Method {
		case "eth_chainId":
			result = "0x38"
		case "eth_blockNumber":
			result = "0x10"
		case "eth_getBalance":
			result = "0xde0b6b3a7640000"
		case "eth_call":
			result = "0x000000000000000000000000000000000000000000000000000000000000002a"
		case "eth_getTransactionCount":
			result = "0x3"
		case "eth_gasPrice":
			result = "0x3b9aca00"
		case "eth_estimateGas":
			result = "0x5208"
		case "eth_sendRawTransaction":
			var raw string
			_ = json.Unmarshal(req.Params[0], &raw)
			n.rawTx = raw
			result = crypto.Keccak256Hash(common.FromHex(raw)).Hex()
		case "eth_getTransactionReceipt":
			n.receipts++
			if n.receipts == 1 {
				result = nil
				break
			}
			var hash string
			_ = json.Unmarshal(req.Params[0], &hash)
			result = map[string]any{
				"status":            "0x1",
				"cumulativeGasUsed": "0x5208",
				"gasUsed":           "0x5208",
				"logsBloom":         "0x" + strings.Repeat("0", 512),
				"logs":              []any{},
				"transactionHash":   hash,
				"blockHash":         common.Hash{1}.Hex(),
				"blockNumber":       "0x11",
				"transactionIndex":  "0x0",
				"type":              "0x0",
			}
		default:
			t.Errorf("unexpected rpc method %s", req.Method)
		}
		n.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}
}

func newTestClient(t *testing.T) (*Client, *fakeNode) {
	t.Helper()
	node := &fakeNode{}
	srv := httptest.NewServer(node.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), Config{Name: "bnb", RPCURL: srv.URL, PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(client.Close)
	return client, node
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error when rpc url is missing")
	}
}

func TestFetchSnapshotAndBalance(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	snapshot, err := client.FetchChainSnapshot(ctx)
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if snapshot.ChainID != "0x38" || snapshot.BlockNumber != "0x10" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	balance, err := client.NativeBalance(ctx, common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94"))
	if err != nil {
		t.Fatalf("native balance: %v", err)
	}
	if balance.Cmp(big.NewInt(1_000_000_000_000_000_000)) != 0 {
		t.Fatalf("unexpected balance %s", balance)
	}

	to := common.HexToAddress("0x10ED43C718714eb63d5aA57B78B54704E256024E")
	out, err := client.CallContract(ctx, gethcore.CallMsg{To: &to, Data: []byte{0x01}})
	if err != nil {
		t.Fatalf("call contract: %v", err)
	}
	if new(big.Int).SetBytes(out).Int64() != 42 {
		t.Fatalf("unexpected call output %x", out)
	}
}

func TestSendTransactionAndWait(t *testing.T) {
	client, node := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	hash, err := client.SendTransaction(ctx, key, web3.TxRequest{
		To:    common.HexToAddress("0xA07c5b74C9B40447a954e1466938b865b6BBea36"),
		Value: big.NewInt(1000),
	})
	if err != nil {
		t.Fatalf("send transaction: %v", err)
	}
	if node.rawTx == "" {
		t.Fatalf("expected raw transaction to be broadcast")
	}
	if hash != crypto.Keccak256Hash(common.FromHex(node.rawTx)) {
		t.Fatalf("hash mismatch: %s", hash.Hex())
	}

	receipt, err := client.WaitMined(ctx, hash)
	if err != nil {
		t.Fatalf("wait mined: %v", err)
	}
	if receipt.BlockNumber.Int64() != 0x11 {
		t.Fatalf("unexpected receipt block %v", receipt.BlockNumber)
	}
	if node.receipts < 2 {
		t.Fatalf("expected receipt polling, got %d calls", node.receipts)
	}
}

func TestClosedClient(t *testing.T) {
	client, _ := newTestClient(t)
	client.Close()
	if _, err := client.FetchChainSnapshot(context.Background()); err == nil {
		t.Fatalf("expected error after close")
	}
}
