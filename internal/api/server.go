package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"BinkAgent-Bridge/internal/action"
	"BinkAgent-Bridge/internal/host"
	"BinkAgent-Bridge/internal/observability/metrics"
	"BinkAgent-Bridge/internal/storage/mysql"
	"BinkAgent-Bridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Config 描述 API 服务的参数。
type Config struct {
	Address string
	// APIToken 非空时 /api 下的接口需要 Bearer 认证。
	APIToken string
}

// Server 负责暴露 REST 接口，供外部驱动动作执行。
type Server struct {
	cfg      Config
	plugin   *host.Plugin
	settings host.Settings
	history  mysql.ExecutionRepository
	engine   *gin.Engine
	log      *slog.Logger
}

// NewServer 构造 API 服务实例。history 可以为 nil。
func NewServer(cfg Config, plugin *host.Plugin, settings host.Settings, history mysql.ExecutionRepository) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:      cfg,
		plugin:   plugin,
		settings: settings,
		history:  history,
		log:      logger.Named("api"),
	}
	s.engine = s.routes()
	return s
}

// Handler 返回 HTTP 处理器。
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1", s.authenticate())
	{
		v1.GET("/actions", s.listActions)
		v1.POST("/actions/:name", s.invokeAction)
		v1.GET("/executions", s.listExecutions)
	}
	return r
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("API 服务已启动", slog.String("address", s.cfg.Address))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.APIToken == "" {
			c.Next()
			return
		}
		token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.cfg.APIToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// ActionView 是动作列表中的一项。
type ActionView struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Examples     []string `json:"examples"`
}

func (s *Server) listActions(c *gin.Context) {
	handlers := s.plugin.Actions()
	out := make([]ActionView, 0, len(handlers))
	for _, h := range handlers {
		a := h.Action()
		view := ActionView{Name: a.Name, Description: a.Description, Capabilities: a.Capabilities}
		for _, convo := range a.Examples {
			if len(convo) > 0 {
				if text, ok := convo[0].Content.Text.(string); ok {
					view.Examples = append(view.Examples, text)
				}
			}
		}
		out = append(out, view)
	}
	c.JSON(http.StatusOK, gin.H{"plugin": s.plugin.Name, "actions": out})
}

// InvokeRequest 是调用动作的请求体。
type InvokeRequest struct {
	Text any    `json:"text"`
	User string `json:"user,omitempty"`
}

// InvokeResponse 是调用动作的响应体。
type InvokeResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) invokeAction(c *gin.Context) {
	name := strings.ToUpper(c.Param("name"))
	if _, ok := s.plugin.Action(name); !ok {
		c.JSON(http.StatusNotFound, InvokeResponse{Error: "unknown action " + name})
		return
	}
	var req InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, InvokeResponse{Error: "请求体解析失败"})
		return
	}

	resp, ok, err := s.plugin.Dispatch(c.Request.Context(), name, s.settings, action.Memory{
		User:    req.User,
		Content: action.Content{Text: req.Text},
	})
	switch {
	case errors.Is(err, host.ErrInvalidConfiguration):
		c.JSON(http.StatusUnprocessableEntity, InvokeResponse{Error: err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, InvokeResponse{Error: err.Error()})
	case !ok:
		c.JSON(http.StatusBadGateway, InvokeResponse{OK: false, Text: resp.Text})
	default:
		c.JSON(http.StatusOK, InvokeResponse{OK: true, Text: resp.Text})
	}
}

func (s *Server) listExecutions(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "执行记录未启用"})
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxListLimit)
		}
	}
	records, err := s.history.ListLatest(c.Request.Context(), limit)
	if err != nil {
		s.log.ErrorContext(c.Request.Context(), "读取执行记录失败", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []mysql.ExecutionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"executions": records})
}
