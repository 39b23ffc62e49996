// Package bink 接入 Bink 知识库 API。
package bink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"BinkAgent-Bridge/internal/provider"
)

const askPath = "/v1/knowledge/ask"

// Config 描述 Bink API 的接入参数。
type Config struct {
	APIKey string
	// APIURL 为 API 根地址。
	APIURL string
	// BaseURL 用于把相对来源路径补全为可访问的链接。
	BaseURL    string
	HTTPClient *http.Client
}

// Provider 实现 KnowledgeProvider。
type Provider struct {
	apiKey  string
	apiURL  string
	baseURL *url.URL
	http    *http.Client
}

// New 校验配置并创建提供方。
func New(cfg Config) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 Bink API Key")
	}
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		return nil, errors.New("未提供 Bink API 地址")
	}
	p := &Provider{apiKey: apiKey, apiURL: apiURL, http: cfg.HTTPClient}
	if p.http == nil {
		p.http = &http.Client{Timeout: provider.DefaultHTTPTimeout}
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("解析 Bink 站点地址失败: %w", err)
		}
		p.baseURL = parsed
	}
	return p, nil
}

// Name 实现 provider.Provider。
func (p *Provider) Name() string { return "bink" }

// SupportedChains 实现 provider.Provider。知识库与链无关。
func (p *Provider) SupportedChains() []string { return nil }

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer  string `json:"answer"`
	Sources []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Path  string `json:"path"`
	} `json:"sources"`
}

// Ask 向知识库提问。
func (p *Provider) Ask(ctx context.Context, question string) (*provider.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("问题不能为空")
	}

	var resp askResponse
	headers := map[string]string{"x-api-key": p.apiKey}
	if err := provider.DoJSON(ctx, p.http, http.MethodPost, p.apiURL+askPath, headers, askRequest{Question: question}, &resp); err != nil {
		return nil, fmt.Errorf("请求 Bink 知识库失败: %w", err)
	}

	answer := &provider.Answer{Provider: p.Name(), Text: strings.TrimSpace(resp.Answer)}
	for _, src := range resp.Sources {
		link := src.URL
		if link == "" {
			link = p.resolve(src.Path)
		}
		answer.Sources = append(answer.Sources, provider.Source{Title: src.Title, URL: link})
	}
	return answer, nil
}

func (p *Provider) resolve(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || p.baseURL == nil {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return p.baseURL.ResolveReference(ref).String()
}

var _ provider.KnowledgeProvider = (*Provider)(nil)
