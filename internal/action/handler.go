package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"BinkAgent-Bridge/internal/config"
	xerrors "BinkAgent-Bridge/internal/errors"
	"BinkAgent-Bridge/internal/events"
	"BinkAgent-Bridge/internal/facade"
	"BinkAgent-Bridge/internal/format"
	"BinkAgent-Bridge/internal/observability/alerting"
	"BinkAgent-Bridge/internal/observability/metrics"
	"BinkAgent-Bridge/internal/storage/mysql"
	"BinkAgent-Bridge/internal/wallet"
	"BinkAgent-Bridge/pkg/logger"

	"github.com/google/uuid"
)

// Executor 根据配置与钱包执行一条指令，失败时也返回可展示的文本。
type Executor interface {
	Execute(ctx context.Context, settings *config.Settings, w wallet.Handle, instruction string) (string, error)
}

// WalletFactory 由已校验的配置派生钱包。
type WalletFactory func(settings *config.Settings) (wallet.Handle, error)

// SeedWalletFactory 使用助记词派生钱包，chainConfig 为可选的网络覆盖文件。
func SeedWalletFactory(chainConfig string, index uint32) WalletFactory {
	return func(settings *config.Settings) (wallet.Handle, error) {
		networks, err := facade.Networks(settings, chainConfig)
		if err != nil {
			return nil, err
		}
		return wallet.New(settings.SeedPhrase, index, networks)
	}
}

// Handler 处理单个动作的入站消息。
type Handler struct {
	action    Action
	exec      Executor
	newWallet WalletFactory
	history   mysql.ExecutionRepository
	events    events.Publisher
	alerts    alerting.Dispatcher
	log       *slog.Logger
	now       func() time.Time
}

// Option 定义可选配置。
type Option func(*Handler)

// WithWalletFactory 替换钱包派生方式。
func WithWalletFactory(f WalletFactory) Option {
	return func(h *Handler) {
		if f != nil {
			h.newWallet = f
		}
	}
}

// WithHistory 记录每次处理结果。
func WithHistory(repo mysql.ExecutionRepository) Option {
	return func(h *Handler) { h.history = repo }
}

// WithEvents 发布执行事件。
func WithEvents(p events.Publisher) Option {
	return func(h *Handler) {
		if p != nil {
			h.events = p
		}
	}
}

// WithAlerts 在需要告警的失败上通知。
func WithAlerts(d alerting.Dispatcher) Option {
	return func(h *Handler) { h.alerts = d }
}

// NewHandler 创建动作处理器。
func NewHandler(a Action, exec Executor, opts ...Option) *Handler {
	h := &Handler{
		action:    a,
		exec:      exec,
		newWallet: SeedWalletFactory("", 0),
		events:    events.Nop{},
		log:       logger.Named("action").With(slog.String("action", a.Name)),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Action 返回动作元数据。
func (h *Handler) Action() Action { return h.action }

// Validate 检查配置是否完整，不会 panic，失败原因写入日志。
func (h *Handler) Validate(ctx context.Context, host config.HostSettings) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.ErrorContext(ctx, "配置校验异常", slog.Any("panic", r))
			ok = false
		}
	}()

	settings, err := config.Load(host)
	if err != nil {
		h.log.ErrorContext(ctx, "读取配置失败", slog.Any("error", err))
		return false
	}
	if err := config.ValidateSeedPhrase(settings.SeedPhrase); err != nil {
		h.log.ErrorContext(ctx, "Missing or invalid seed phrase", slog.String("reason", err.Error()))
		return false
	}
	if err := settings.Validate(); err != nil {
		h.log.ErrorContext(ctx, "Blockchain configuration validation failed", slog.Any("error", err))
		return false
	}
	return true
}

// Handle 处理一条消息并恰好回调一次，返回是否成功。
func (h *Handler) Handle(ctx context.Context, host config.HostSettings, msg Memory, cb Callback) (ok bool) {
	start := h.now()
	correlationID := uuid.NewString()
	ctx = logger.WithCorrelation(ctx, correlationID)
	text := ExtractText(msg)

	// 回调自身异常时不再重复回调。
	replied := false
	send := func(out string) {
		replied = true
		h.reply(ctx, cb, out)
	}

	defer func() {
		if r := recover(); r != nil {
			err := xerrors.New(xerrors.CodeUnknown, fmt.Sprintf("处理消息时发生异常: %v", r))
			h.logFailure(ctx, err)
			if !replied {
				h.reply(ctx, cb, format.Fallback)
			}
			h.finish(ctx, correlationID, text, format.Fallback, start, err)
			ok = false
		}
	}()

	h.log.DebugContext(ctx, "开始处理消息", slog.Int("text_length", len(text)))

	settings, err := config.Resolve(host)
	if err != nil {
		h.log.ErrorContext(ctx, "配置校验失败，跳过执行", slog.Any("error", err))
		send(format.Fallback)
		h.finish(ctx, correlationID, text, format.Fallback, start, err)
		return false
	}

	w, err := h.newWallet(settings)
	if err != nil {
		h.logFailure(ctx, err)
		send(format.Fallback)
		h.finish(ctx, correlationID, text, format.Fallback, start, err)
		return false
	}

	out, err := h.exec.Execute(ctx, settings, w, text)
	if err != nil {
		h.logFailure(ctx, err)
		send(format.Fallback)
		h.finish(ctx, correlationID, text, format.Fallback, start, err)
		return false
	}

	send(out)
	h.finish(ctx, correlationID, text, out, start, nil)
	return true
}

func (h *Handler) reply(ctx context.Context, cb Callback, text string) {
	if cb == nil {
		return
	}
	if err := cb(ctx, Response{Text: text}); err != nil {
		h.log.WarnContext(ctx, "回调宿主失败", slog.Any("error", err))
	}
}

func (h *Handler) finish(ctx context.Context, correlationID, input, output string, start time.Time, cause error) {
	duration := h.now().Sub(start)
	status := mysql.StatusSucceeded
	code := ""
	if cause != nil {
		status = mysql.StatusFailed
		if xerrors.IsCode(cause, xerrors.CodeConfiguration) {
			status = mysql.StatusRejected
		}
		code = string(xerrors.CodeOf(cause))
	}

	metrics.ObserveAction(h.action.Name, status, duration)

	if h.history != nil {
		record := &mysql.ExecutionRecord{
			CorrelationID:  correlationID,
			Action:         h.action.Name,
			Input:          input,
			Output:         output,
			Status:         status,
			ErrorCode:      code,
			DurationMillis: duration.Milliseconds(),
			CreatedAt:      start.Unix(),
		}
		if err := h.history.Save(ctx, record); err != nil {
			h.log.WarnContext(ctx, "保存执行记录失败", slog.Any("error", err))
		}
	}

	evt := events.Event{
		CorrelationID:  correlationID,
		Action:         h.action.Name,
		Status:         status,
		ErrorCode:      code,
		DurationMillis: duration.Milliseconds(),
		OccurredAt:     start.UTC(),
	}
	if err := h.events.Publish(ctx, evt); err != nil {
		h.log.WarnContext(ctx, "发布执行事件失败", slog.Any("error", err))
	}

	if cause != nil && h.alerts != nil && xerrors.ShouldAlert(cause) {
		if err := h.alerts.Notify(ctx, alerting.FromError(h.action.Name, correlationID, cause)); err != nil {
			h.log.WarnContext(ctx, "发送告警失败", slog.Any("error", err))
		}
	}
}

// detailer 由携带额外诊断字段的错误实现。
type detailer interface {
	Details() map[string]any
}

// logFailure 以 JSON 记录完整错误；无法序列化时逐个字段记录。
func (h *Handler) logFailure(ctx context.Context, err error) {
	h.log.ErrorContext(ctx, "动作执行失败", slog.String("error", err.Error()))

	detail := errorDetail(err)
	encoded, jerr := json.Marshal(detail)
	if jerr == nil {
		h.log.ErrorContext(ctx, "错误详情", slog.String("detail", string(encoded)))
		return
	}

	h.log.ErrorContext(ctx, "错误详情无法序列化，逐项记录", slog.String("reason", jerr.Error()))
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		value := "[Error serializing property]"
		if b, err := json.Marshal(detail[k]); err == nil {
			value = string(b)
		}
		h.log.ErrorContext(ctx, "错误详情字段", slog.String("field", k), slog.String("value", value))
	}
}

func errorDetail(err error) map[string]any {
	detail := map[string]any{
		"message":  err.Error(),
		"code":     string(xerrors.CodeOf(err)),
		"severity": string(xerrors.SeverityOf(err)),
	}
	if e, ok := xerrors.From(err); ok {
		if md := e.Metadata(); len(md) > 0 {
			detail["metadata"] = md
		}
		if v := e.Violations(); len(v) > 0 {
			detail["violations"] = v
		}
	}
	var chain []string
	for cur := errors.Unwrap(err); cur != nil; cur = errors.Unwrap(cur) {
		chain = append(chain, cur.Error())
	}
	if len(chain) > 0 {
		detail["causes"] = chain
	}
	var d detailer
	if errors.As(err, &d) {
		for k, v := range d.Details() {
			detail[k] = v
		}
	}
	return detail
}
