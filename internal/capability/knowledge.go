package capability

import (
	"context"
	"encoding/json"

	"BinkAgent-Bridge/internal/provider"
	"BinkAgent-Bridge/pkg/plugin"
)

// KnowledgePlugin 回答 Bink 生态相关问题。知识库与链无关，不校验链配置。
type KnowledgePlugin struct {
	*plugin.Base
	providers []provider.KnowledgeProvider
}

// NewKnowledgePlugin 创建未初始化的知识库插件。
func NewKnowledgePlugin() *KnowledgePlugin {
	return &KnowledgePlugin{Base: plugin.NewBase(plugin.Info{
		ID:          "knowledge",
		Name:        "Knowledge",
		Description: "Answers questions about the Bink ecosystem",
		Version:     pluginVersion,
		Category:    plugin.CategoryKnowledge,
	})}
}

// Initialize 实现 plugin.Plugin。
func (p *KnowledgePlugin) Initialize(_ context.Context, opts plugin.Options) error {
	providers, err := collect[provider.KnowledgeProvider]("knowledge", opts.Providers)
	if err != nil {
		return err
	}
	p.providers = providers
	p.Activate(opts, []plugin.Tool{{
		Name:        "ask_knowledge",
		Description: "Ask the Bink knowledge base a question about the product, protocols or supported features.",
		Parameters:  schema(map[string]any{"question": str("The question to answer")}, "question"),
		Handler:     p.ask,
	}})
	return nil
}

type knowledgeArgs struct {
	Question string `json:"question"`
}

func (p *KnowledgePlugin) ask(ctx context.Context, raw json.RawMessage) (any, error) {
	var args knowledgeArgs
	if err := plugin.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := required("question", args.Question); err != nil {
		return nil, err
	}
	return firstSuccess(p.providers, "", func(kp provider.KnowledgeProvider) (*provider.Answer, error) {
		return kp.Ask(ctx, args.Question)
	})
}

var _ plugin.Plugin = (*KnowledgePlugin)(nil)
