package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	xerrors "BinkAgent-Bridge/internal/errors"
	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/pkg/plugin"
)

const pluginVersion = "1.0.0"

// collect 检查每个提供方都实现了 T，且至少提供一个。
func collect[T provider.Provider](id string, providers []any) ([]T, error) {
	if len(providers) == 0 {
		return nil, initError(id, errors.New("未提供任何提供方"))
	}
	out := make([]T, 0, len(providers))
	for i, p := range providers {
		typed, ok := p.(T)
		if !ok {
			return nil, initError(id, fmt.Errorf("第 %d 个提供方 %T 类型不匹配", i, p))
		}
		out = append(out, typed)
	}
	return out, nil
}

// checkChains 校验默认链，并要求每个提供方至少覆盖一条支持的链。
func checkChains[T provider.Provider](id string, opts plugin.Options, providers []T) error {
	if err := plugin.ValidateChains(opts); err != nil {
		return initError(id, err)
	}
	for _, p := range providers {
		covered := false
		for _, chain := range opts.SupportedChains {
			if provider.Supports(p, chain) {
				covered = true
				break
			}
		}
		if !covered {
			return initError(id, fmt.Errorf("提供方 %s 不支持任何已配置的链 %v", p.Name(), opts.SupportedChains))
		}
	}
	return nil
}

func initError(id string, err error) error {
	return xerrors.Wrap(xerrors.CodeInitializationFailure, err, fmt.Sprintf("插件 %s 初始化失败", id))
}

// resolveChain 返回调用方指定的链或默认链，并确认其受支持。
func resolveChain(opts plugin.Options, chain string) (string, error) {
	chain = strings.ToLower(strings.TrimSpace(chain))
	if chain == "" {
		chain = opts.DefaultChain
	}
	if chain == "" {
		return "", errors.New("需要指定链")
	}
	if !opts.Supports(chain) {
		return "", fmt.Errorf("不支持的链 %s，可选 %v", chain, opts.SupportedChains)
	}
	return chain, nil
}

// firstSuccess 依次尝试支持 chain 的提供方，返回首个成功结果。
func firstSuccess[T provider.Provider, R any](providers []T, chain string, fn func(T) (R, error)) (R, error) {
	var zero R
	var errs []error
	tried := 0
	for _, p := range providers {
		if chain != "" && !provider.Supports(p, chain) {
			continue
		}
		tried++
		out, err := fn(p)
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	if tried == 0 {
		return zero, fmt.Errorf("没有提供方支持链 %s", chain)
	}
	return zero, errors.Join(errs...)
}

// pick 返回第一个支持 chain 的提供方。写操作只交给一个提供方，避免重复上链。
func pick[T provider.Provider](providers []T, chain string) (T, error) {
	for _, p := range providers {
		if provider.Supports(p, chain) {
			return p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("没有提供方支持链 %s", chain)
}

func walletFrom(ctx context.Context) (wallet.Handle, error) {
	w, ok := wallet.FromContext(ctx)
	if !ok {
		return nil, errors.New("当前会话未绑定钱包")
	}
	return w, nil
}

func walletAddress(ctx context.Context, chain string) (string, error) {
	w, err := walletFrom(ctx)
	if err != nil {
		return "", err
	}
	addr, err := w.Address(ctx, wallet.NetworkName(chain))
	if err != nil {
		return "", err
	}
	if addr == "" {
		return "", fmt.Errorf("钱包在 %s 上没有地址", chain)
	}
	return addr, nil
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("缺少参数 %s", name)
	}
	return nil
}

// schema 构造 JSON Schema 对象，required 为必填字段。
func schema(props map[string]any, required ...string) map[string]any {
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func chainProp(opts plugin.Options) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": fmt.Sprintf("链名称，默认 %s", opts.DefaultChain),
		"enum":        append([]string(nil), opts.SupportedChains...),
	}
}
