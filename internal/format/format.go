// Package format 把模型输出整理成 Telegram 支持的 HTML 子集。
package format

import (
	"regexp"
	"strings"
)

// Fallback 是模型无有效输出或执行失败时返回给用户的固定文本。
const Fallback = "⚠️ System is currently experiencing high load. Our AI models are working overtime! Please try again in a few moments."

type rule struct {
	pattern *regexp.Regexp
	replace string
}

// 按顺序执行；<b>、<i>、<li> 原样保留，<ul> 被展开。
var rules = []rule{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "<b>$1</b>"},
	{regexp.MustCompile(`<b>(.*?)</b>`), "<b>$1</b>"},
	{regexp.MustCompile(`<i>(.*?)</i>`), "<i>$1</i>"},
	{regexp.MustCompile(`<ul>(.*?)</ul>`), "$1"},
	{regexp.MustCompile(`<li>(.*?)</li>`), "<li>$1</li>"},
}

// Telegram 执行替换流水线，结果为空时返回 Fallback。
func Telegram(raw string) string {
	out := raw
	for _, r := range rules {
		out = r.pattern.ReplaceAllString(out, r.replace)
	}
	if strings.TrimSpace(out) == "" {
		return Fallback
	}
	return out
}
