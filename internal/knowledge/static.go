// Package knowledge 提供基于本地 JSON 文件的静态知识库，作为 Bink 知识 API 的离线补充。
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"BinkAgent-Bridge/internal/provider"
)

// Snippet 描述可供大模型引用的一段知识。
type Snippet struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	URL      string   `json:"url,omitempty"`
	Keywords []string `json:"keywords"`
	Tags     []string `json:"tags"`
}

// StaticProvider 通过加载 JSON 文件提供静态知识检索能力。
type StaticProvider struct {
	items      []Snippet
	maxResults int
}

// NewStaticProvider 创建静态知识库实例。
func NewStaticProvider(items []Snippet, maxResults int) *StaticProvider {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &StaticProvider{
		items:      items,
		maxResults: maxResults,
	}
}

// LoadStaticProvider 从 JSON 文件加载知识条目。
func LoadStaticProvider(path string, maxResults int) (*StaticProvider, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("知识库文件路径不能为空")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("解析知识库路径失败: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("读取知识库文件失败: %w", err)
	}
	defer file.Close()

	var entries []Snippet
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return nil, fmt.Errorf("解析知识库文件失败: %w", err)
	}

	return NewStaticProvider(entries, maxResults), nil
}

// Name 实现 provider.Provider。
func (p *StaticProvider) Name() string { return "static" }

// SupportedChains 实现 provider.Provider。
func (p *StaticProvider) SupportedChains() []string { return nil }

// Query 返回与问题匹配的条目，最多 maxResults 条。
func (p *StaticProvider) Query(question string) []Snippet {
	if p == nil {
		return nil
	}

	question = strings.ToLower(strings.TrimSpace(question))

	results := make([]Snippet, 0, p.maxResults)
	for _, item := range p.items {
		if matches(item, question) {
			results = append(results, item)
			if len(results) >= p.maxResults {
				break
			}
		}
	}
	return results
}

// Ask 把匹配到的条目拼接为回答。
func (p *StaticProvider) Ask(_ context.Context, question string) (*provider.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("问题不能为空")
	}
	snippets := p.Query(question)
	if len(snippets) == 0 {
		return nil, fmt.Errorf("知识库中没有与 %q 相关的内容", question)
	}

	answer := &provider.Answer{Provider: p.Name()}
	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		parts = append(parts, strings.TrimSpace(s.Content))
		answer.Sources = append(answer.Sources, provider.Source{Title: s.Title, URL: s.URL})
	}
	answer.Text = strings.Join(parts, "\n\n")
	return answer, nil
}

func matches(snippet Snippet, question string) bool {
	if len(snippet.Keywords) == 0 && len(snippet.Tags) == 0 {
		return true
	}
	for _, words := range [][]string{snippet.Keywords, snippet.Tags} {
		for _, word := range words {
			normalized := strings.ToLower(strings.TrimSpace(word))
			if normalized != "" && strings.Contains(question, normalized) {
				return true
			}
		}
	}
	return false
}

var _ provider.KnowledgeProvider = (*StaticProvider)(nil)
