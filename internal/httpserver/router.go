package httpserver

import (
	"context"
	"net/http"
	"time"

	"mailassist/internal/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	Engine *gin.Engine
}

type Handlers struct {
	Email   *handler.EmailHandler
	Prompt  *handler.PromptHandler
	Draft   *handler.DraftHandler
	Chat    *handler.ChatHandler
	Process *handler.ProcessHandler
	Ingest  *handler.IngestHandler
}

type Options struct {
	// JWTSecret 为空时业务接口不鉴权
	JWTSecret string
	// Ready /readyz 的检查函数，可以为 nil
	Ready func(ctx context.Context) error
	// LLMState 模型调用熔断器状态，只展示，不影响就绪结果；可以为 nil
	LLMState func() string
	Logger   *zap.Logger
}

func NewRouter(h Handlers, opts Options) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(CORSMiddleware())
	r.Use(MetricsMiddleware())
	r.Use(LoggerMiddleware(opts.Logger))

	// Health endpoints (放在最前面)
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Email assistant API is running"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		body := gin.H{"status": "ready"}
		if opts.LLMState != nil {
			body["llm_circuit"] = opts.LLMState()
		}

		if opts.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
			defer cancel()

			if err := opts.Ready(ctx); err != nil {
				body["status"] = "store_not_ready"
				body["error"] = err.Error()
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
		}
		c.JSON(http.StatusOK, body)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	if opts.JWTSecret != "" {
		api.Use(AuthMiddleware(opts.JWTSecret))
	}
	{
		api.GET("/emails", h.Email.ListEmails)
		api.GET("/emails/:id", h.Email.GetEmail)
		api.POST("/emails", h.Email.CreateEmail)

		api.GET("/prompts", h.Prompt.ListPrompts)
		api.GET("/prompts/:id", h.Prompt.GetPrompt)
		api.PUT("/prompts/:id", h.Prompt.UpdatePrompt)

		api.POST("/ingest", h.Ingest.Ingest)

		api.POST("/process", h.Process.ProcessInbox)
		api.GET("/process/status", h.Process.Status)
		api.POST("/process/:id", h.Process.ProcessEmail)

		api.POST("/chat", h.Chat.Chat)

		api.GET("/drafts", h.Draft.ListDrafts)
		api.POST("/drafts", h.Draft.CreateDraft)
		api.POST("/drafts/generate", h.Chat.GenerateDraft)
		api.PUT("/drafts/:id", h.Draft.UpdateDraft)
		api.DELETE("/drafts/:id", h.Draft.DeleteDraft)
	}

	return &Router{Engine: r}
}
