package facade

import (
	"context"
	"fmt"
	"strings"

	"BinkAgent-Bridge/internal/wallet"
)

// NotAvailable 替代无法解析的钱包地址。
const NotAvailable = "Not available"

var promptWallets = []struct {
	label   string
	network wallet.NetworkName
}{
	{"BNB", wallet.NetworkBNB},
	{"ETH", wallet.NetworkEthereum},
	{"SOL", wallet.NetworkSolana},
}

// BuildPrompt 在模板后追加三条钱包地址，各地址独立解析，失败或为空时写入 NotAvailable。
func BuildPrompt(ctx context.Context, template string, w wallet.Handle) string {
	var b strings.Builder
	b.WriteString(template)
	if !strings.HasSuffix(template, "\n") {
		b.WriteString("\n")
	}
	for _, pw := range promptWallets {
		fmt.Fprintf(&b, "Wallet %s: %s\n", pw.label, addressOrNA(ctx, w, pw.network))
	}
	return b.String()
}

func addressOrNA(ctx context.Context, w wallet.Handle, network wallet.NetworkName) string {
	if w == nil {
		return NotAvailable
	}
	addr, err := w.Address(ctx, network)
	if err != nil || strings.TrimSpace(addr) == "" {
		return NotAvailable
	}
	return addr
}
