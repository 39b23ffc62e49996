package agent

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	xerrors "BinkAgent-Bridge/internal/errors"
	"BinkAgent-Bridge/internal/llm"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/pkg/logger"
	"BinkAgent-Bridge/pkg/plugin"

	"github.com/google/uuid"
)

// defaultMaxSteps 是一次执行中调用大模型的最大轮数。
const defaultMaxSteps = 8

// Config 描述智能体的模型参数与系统提示词。
type Config struct {
	Model        string
	Temperature  float32
	SystemPrompt string
	MaxSteps     int
}

// ExecuteRequest 是一次执行的输入，ThreadID 为空时自动生成。
type ExecuteRequest struct {
	Input    string `json:"input"`
	ThreadID string `json:"thread_id"`
}

// Agent 协调大模型与能力插件，是系统的业务核心。
type Agent struct {
	cfg        Config
	wallet     wallet.Handle
	networks   wallet.Networks
	llmClient  llm.Client
	plugins    *plugin.Manager
	threads    ThreadStore
	llmTimeout time.Duration
	log        *slog.Logger

	mu          sync.RWMutex
	initialized bool
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// WithThreadStore 设置对话记录的存储。
func WithThreadStore(store ThreadStore) Option {
	return func(a *Agent) {
		if store != nil {
			a.threads = store
		}
	}
}

// WithLLMTimeout 设置单次调用大模型的超时时间。
func WithLLMTimeout(timeout time.Duration) Option {
	return func(a *Agent) {
		if timeout <= 0 {
			a.llmTimeout = 0
			return
		}
		a.llmTimeout = timeout
	}
}

// New 创建一个 Agent。
func New(cfg Config, w wallet.Handle, networks wallet.Networks, llmClient llm.Client, opts ...Option) *Agent {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	ag := &Agent{
		cfg:       cfg,
		wallet:    w,
		networks:  networks.Clone(),
		llmClient: llmClient,
		plugins:   plugin.NewManager(),
		threads:   NewMemoryThreadStore(0, 0, 0),
		log:       logger.Named("agent"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ag)
		}
	}
	return ag
}

// Initialize 校验依赖并允许后续注册插件。重复调用无副作用。
func (a *Agent) Initialize(_ context.Context) error {
	if a.llmClient == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置大模型客户端")
	}
	if a.wallet == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置钱包")
	}
	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()
	return nil
}

// RegisterPlugin 注册已初始化的插件，工具名在所有插件间唯一。
func (a *Agent) RegisterPlugin(_ context.Context, p plugin.Plugin) error {
	if !a.ready() {
		return xerrors.New(xerrors.CodeInitializationFailure, "智能体尚未初始化")
	}
	if err := a.plugins.Register(p); err != nil {
		return xerrors.Wrap(xerrors.CodeInitializationFailure, err, "注册插件失败")
	}
	return nil
}

// Plugins 返回已注册插件的元数据，按注册顺序排列。
func (a *Agent) Plugins() []plugin.Info {
	return a.plugins.Plugins()
}

// Wallet 返回智能体绑定的钱包。
func (a *Agent) Wallet() wallet.Handle { return a.wallet }

// Networks 返回智能体可用的网络配置。
func (a *Agent) Networks() wallet.Networks { return a.networks.Clone() }

func (a *Agent) ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

// Execute 运行一次对话：模型可多轮调用工具，直到给出文本回复或达到轮数上限。
// 并发调用安全，单次执行的状态都保存在局部变量中。
func (a *Agent) Execute(ctx context.Context, req ExecuteRequest) (string, error) {
	if !a.ready() {
		return "", xerrors.New(xerrors.CodeInitializationFailure, "智能体尚未初始化")
	}
	// 空输入同样交给模型，由模型决定如何回复。
	input := req.Input
	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	history, err := a.threads.Load(ctx, threadID)
	if err != nil {
		a.log.WarnContext(ctx, "加载对话记录失败", slog.String("thread_id", threadID), slog.Any("error", err))
		history = nil
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.cfg.SystemPrompt})
	messages = append(messages, history...)
	fresh := []llm.Message{{Role: llm.RoleUser, Content: input}}
	messages = append(messages, fresh[0])

	specs := a.toolSpecs()
	toolCtx := wallet.NewContext(ctx, a.wallet)

	for step := 0; step < a.cfg.MaxSteps; step++ {
		resp, err := a.complete(ctx, llm.Request{
			Model:       a.cfg.Model,
			Temperature: a.cfg.Temperature,
			Messages:    messages,
			Tools:       specs,
		})
		if err != nil {
			return "", err
		}

		reply := resp.Message
		reply.Role = llm.RoleAssistant
		messages = append(messages, reply)
		fresh = append(fresh, reply)

		if len(reply.ToolCalls) == 0 {
			a.persist(ctx, threadID, fresh)
			return strings.TrimSpace(reply.Content), nil
		}

		for _, call := range reply.ToolCalls {
			result := a.invoke(toolCtx, call)
			msg := llm.Message{Role: llm.RoleTool, Content: result, ToolCallID: call.ID, Name: call.Name}
			messages = append(messages, msg)
			fresh = append(fresh, msg)
		}
	}

	a.persist(ctx, threadID, fresh)
	return "", xerrors.New(xerrors.CodeUpstreamExecution,
		fmt.Sprintf("超过最大推理轮数 %d 仍未得到回复", a.cfg.MaxSteps))
}

func (a *Agent) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	llmCtx := ctx
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}
	resp, err := a.llmClient.Complete(llmCtx, req)
	if err != nil {
		if stdErrors.Is(err, context.DeadlineExceeded) {
			return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "大模型推理超时")
		}
		return nil, xerrors.Wrap(xerrors.CodeUpstreamExecution, err, "大模型推理失败")
	}
	if resp == nil {
		return nil, xerrors.New(xerrors.CodeUpstreamExecution, "大模型返回空响应")
	}
	return resp, nil
}

// invoke 执行一次工具调用，错误以 {"error": ...} 的形式交还给模型。
func (a *Agent) invoke(ctx context.Context, call llm.ToolCall) string {
	tool, ok := a.plugins.Tool(call.Name)
	if !ok {
		return errorPayload(fmt.Sprintf("unknown tool %s", call.Name))
	}

	started := time.Now()
	out, err := tool.Handler(ctx, json.RawMessage(call.Arguments))
	attrs := []any{
		slog.String("tool", call.Name),
		slog.Duration("elapsed", time.Since(started)),
	}
	if err != nil {
		a.log.WarnContext(ctx, "工具执行失败", append(attrs, slog.Any("error", err))...)
		return errorPayload(err.Error())
	}
	a.log.DebugContext(ctx, "工具执行完成", attrs...)

	payload, err := json.Marshal(out)
	if err != nil {
		return errorPayload(fmt.Sprintf("serialize result: %v", err))
	}
	return string(payload)
}

func (a *Agent) toolSpecs() []llm.ToolSpec {
	tools := a.plugins.Tools()
	specs := make([]llm.ToolSpec, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, llm.ToolSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	return specs
}

func (a *Agent) persist(ctx context.Context, threadID string, msgs []llm.Message) {
	if err := a.threads.Append(ctx, threadID, msgs...); err != nil {
		a.log.WarnContext(ctx, "保存对话记录失败", slog.String("thread_id", threadID), slog.Any("error", err))
	}
}

func errorPayload(msg string) string {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return string(payload)
}
