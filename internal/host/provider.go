package host

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"BinkAgent-Bridge/internal/action"
	"BinkAgent-Bridge/internal/config"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/pkg/logger"
)

// Provider 为宿主的对话上下文提供一段文本，无内容时返回空串。
type Provider interface {
	Name() string
	Get(ctx context.Context, host Settings) string
}

// WalletInfoProvider 把钱包在各网络上的地址提供给宿主。
type WalletInfoProvider struct {
	NewWallet action.WalletFactory
}

// Name 实现 Provider。
func (p *WalletInfoProvider) Name() string { return "walletInfo" }

var walletInfoNetworks = []struct {
	label   string
	network wallet.NetworkName
}{
	{"BNB", wallet.NetworkBNB},
	{"Ethereum", wallet.NetworkEthereum},
	{"Solana", wallet.NetworkSolana},
}

// Get 返回各网络的钱包地址。未配置助记词或派生失败时返回空串。
func (p *WalletInfoProvider) Get(ctx context.Context, host Settings) string {
	log := logger.Named("host.wallet")
	settings, err := config.Load(host)
	if err != nil || !settings.WalletConfigured() {
		log.WarnContext(ctx, "SEED_PHRASE is missing")
		return ""
	}
	factory := p.NewWallet
	if factory == nil {
		factory = action.SeedWalletFactory("", 0)
	}
	w, err := factory(settings)
	if err != nil {
		log.ErrorContext(ctx, "派生钱包失败", slog.Any("error", err))
		return ""
	}

	var b strings.Builder
	for _, n := range walletInfoNetworks {
		addr, err := w.Address(ctx, n.network)
		if err != nil {
			log.ErrorContext(ctx, "读取钱包地址失败", slog.String("network", string(n.network)), slog.Any("error", err))
			return ""
		}
		fmt.Fprintf(&b, "%s chain Wallet Address: %s\n Name: %s\n", n.label, addr, n.network)
	}
	return b.String()
}
