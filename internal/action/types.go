package action

import (
	"context"
	"strings"
)

// Content 是入站消息的内容，Text 可能不是字符串。
type Content struct {
	Text   any    `json:"text"`
	Action string `json:"action,omitempty"`
}

// Memory 是宿主传入的一条消息。
type Memory struct {
	User    string  `json:"user,omitempty"`
	Content Content `json:"content"`
}

// Response 是回调给宿主的内容。
type Response struct {
	Text string `json:"text"`
}

// Callback 把回复交给宿主。
type Callback func(ctx context.Context, resp Response) error

// Action 描述一个动作的元数据。
type Action struct {
	Name        string
	Description string
	Similes     []string
	// Examples 中每一项是一段示例对话。
	Examples     [][]Memory
	Template     string
	Capabilities []string
}

// ExtractText 返回去除首尾空白的文本，非字符串内容视为空串。
func ExtractText(msg Memory) string {
	text, ok := msg.Content.Text.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}
