package handler

import (
	"context"
	"net/http"

	"mailassist/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Ingester 导入种子邮件，返回导入数量
type Ingester interface {
	Ingest(ctx context.Context) (int, error)
}

type IngestHandler struct {
	loader Ingester
	logger *zap.Logger
}

func NewIngestHandler(loader Ingester, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{loader: loader, logger: logger}
}

// Ingest handles POST /ingest；按 id 合并，不删除其他来源的邮件
func (h *IngestHandler) Ingest(c *gin.Context) {
	n, err := h.loader.Ingest(c.Request.Context())
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Ingestion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load seed data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ingestion triggered", "loaded": n})
}
