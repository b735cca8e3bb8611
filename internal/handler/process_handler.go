package handler

import (
	"context"
	"net/http"

	"mailassist/internal/service/processor"
	"mailassist/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BatchRunner 后台批处理
type BatchRunner interface {
	Trigger(ctx context.Context) bool
	Running() bool
	LastSummary() *processor.Summary
}

// EmailProcessor 同步处理单封邮件
type EmailProcessor interface {
	ProcessEmail(ctx context.Context, id string) error
}

type ProcessHandler struct {
	runner    BatchRunner
	processor EmailProcessor
	logger    *zap.Logger
}

func NewProcessHandler(runner BatchRunner, processor EmailProcessor, logger *zap.Logger) *ProcessHandler {
	return &ProcessHandler{
		runner:    runner,
		processor: processor,
		logger:    logger,
	}
}

// ProcessInbox handles POST /process
func (h *ProcessHandler) ProcessInbox(c *gin.Context) {
	if !h.runner.Trigger(c.Request.Context()) {
		c.JSON(http.StatusConflict, gin.H{"error": "Inbox processing already running"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Inbox processing started in background"})
}

// Status handles GET /process/status
func (h *ProcessHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": h.runner.Running(),
		"last":    h.runner.LastSummary(),
	})
}

// ProcessEmail handles POST /process/:id；id 不存在时同样返回 200
func (h *ProcessHandler) ProcessEmail(c *gin.Context) {
	id := c.Param("id")
	if err := h.processor.ProcessEmail(c.Request.Context(), id); err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to process email",
			zap.String("email_id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Processing completed for " + id})
}
