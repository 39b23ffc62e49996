package wallet

import "context"

type contextKey struct{}

// NewContext 返回携带钱包的上下文，工具执行时通过 FromContext 取回。
func NewContext(ctx context.Context, h Handle) context.Context {
	return context.WithValue(ctx, contextKey{}, h)
}

// FromContext 取出上下文中的钱包。
func FromContext(ctx context.Context) (Handle, bool) {
	h, ok := ctx.Value(contextKey{}).(Handle)
	return h, ok && h != nil
}
