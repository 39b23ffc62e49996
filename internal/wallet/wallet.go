package wallet

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	xerrors "BinkAgent-Bridge/internal/errors"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// Handle 是绑定到助记词与派生序号的多链钱包。
type Handle interface {
	// ID 返回钱包身份摘要，不泄露助记词。
	ID() string
	Networks() Networks
	// Address 返回钱包在指定网络上的地址，未配置的网络返回空字符串。
	Address(ctx context.Context, network NetworkName) (string, error)
	// PrivateKey 返回 EVM 网络的签名私钥。
	PrivateKey(network NetworkName) (*ecdsa.PrivateKey, error)
}

// SeedWallet 由 BIP-39 助记词派生出各网络的密钥。
type SeedWallet struct {
	id        string
	index     uint32
	networks  Networks
	evmKey    *ecdsa.PrivateKey
	evmAddr   string
	solanaKey ed25519.PrivateKey
	solAddr   string
}

// Identity 计算 sha256(助记词 + 序号)，用于缓存键。
func Identity(seedPhrase string, index uint32) string {
	normalized := strings.Join(strings.Fields(seedPhrase), " ")
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", normalized, index)))
	return hex.EncodeToString(sum[:])
}

// New 从助记词创建钱包。EVM 密钥位于 m/44'/60'/0'/0/index，
// Solana 密钥按 SLIP-0010 位于 m/44'/501'/index'/0'。
func New(seedPhrase string, index uint32, networks Networks) (*SeedWallet, error) {
	normalized := strings.Join(strings.Fields(seedPhrase), " ")
	seed, err := bip39.NewSeedWithErrorChecking(normalized, "")
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "助记词无效")
	}

	evmKey, err := deriveEVM(seed, index)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "派生 EVM 密钥失败")
	}
	solKey := deriveSolana(seed, index)

	return &SeedWallet{
		id:        Identity(normalized, index),
		index:     index,
		networks:  networks.Clone(),
		evmKey:    evmKey,
		evmAddr:   crypto.PubkeyToAddress(evmKey.PublicKey).Hex(),
		solanaKey: solKey,
		solAddr:   base58.Encode(solKey.Public().(ed25519.PublicKey)),
	}, nil
}

// ID 实现 Handle。
func (w *SeedWallet) ID() string { return w.id }

// Index 返回派生序号。
func (w *SeedWallet) Index() uint32 { return w.index }

// Networks 实现 Handle。
func (w *SeedWallet) Networks() Networks { return w.networks.Clone() }

// Address 实现 Handle。
func (w *SeedWallet) Address(ctx context.Context, network NetworkName) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg, ok := w.networks[network]
	if !ok {
		return "", nil
	}
	switch cfg.Type {
	case NetworkTypeEVM:
		return w.evmAddr, nil
	case NetworkTypeSolana:
		return w.solAddr, nil
	default:
		return "", fmt.Errorf("网络 %s 的类型 %s 不受支持", network, cfg.Type)
	}
}

// PrivateKey 实现 Handle。
func (w *SeedWallet) PrivateKey(network NetworkName) (*ecdsa.PrivateKey, error) {
	cfg, ok := w.networks[network]
	if !ok {
		return nil, fmt.Errorf("网络 %s 未配置", network)
	}
	if cfg.Type != NetworkTypeEVM {
		return nil, fmt.Errorf("网络 %s 不是 EVM 网络", network)
	}
	return w.evmKey, nil
}

// SolanaKey 返回 Solana ed25519 私钥。
func (w *SeedWallet) SolanaKey() ed25519.PrivateKey { return w.solanaKey }

func deriveEVM(seed []byte, index uint32) (*ecdsa.PrivateKey, error) {
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + 60,
		hdkeychain.HardenedKeyStart + 0,
		0,
		index,
	}
	for _, step := range path {
		key, err = key.Derive(step)
		if err != nil {
			return nil, err
		}
	}
	ecKey, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return crypto.ToECDSA(ecKey.Serialize())
}

const hardened uint32 = 0x80000000

func deriveSolana(seed []byte, index uint32) ed25519.PrivateKey {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chainCode := sum[:32], sum[32:]

	for _, step := range []uint32{44, 501, index, 0} {
		data := make([]byte, 0, 37)
		data = append(data, 0x00)
		data = append(data, key...)
		data = binary.BigEndian.AppendUint32(data, step|hardened)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write(data)
		sum = mac.Sum(nil)
		key, chainCode = sum[:32], sum[32:]
	}
	return ed25519.NewKeyFromSeed(key)
}

var _ Handle = (*SeedWallet)(nil)
