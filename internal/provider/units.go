package provider

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits 把十进制可读数量按 decimals 转为最小单位整数。
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("数量不能为空")
	}
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("无法解析数量 %q", amount)
	}
	if r.Sign() <= 0 {
		return nil, fmt.Errorf("数量必须大于 0: %s", amount)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	if !r.IsInt() {
		return nil, fmt.Errorf("数量 %s 超出 %d 位精度", amount, decimals)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FormatUnits 把最小单位整数按 decimals 转为可读数量，去掉末尾多余的 0。
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	text := new(big.Rat).SetFrac(value, scale).FloatString(int(decimals))
	if strings.Contains(text, ".") {
		text = strings.TrimRight(strings.TrimRight(text, "0"), ".")
	}
	return text
}

// ApplySlippage 按百分比计算最少可接受数量。
func ApplySlippage(amount *big.Int, slippagePercent float64) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	if slippagePercent < 0 {
		slippagePercent = 0
	}
	bps := int64(slippagePercent * 100)
	if bps > 10000 {
		bps = 10000
	}
	out := new(big.Int).Mul(amount, big.NewInt(10000-bps))
	return out.Div(out, big.NewInt(10000))
}
