package handler

import (
	"errors"
	"net/http"

	"mailassist/internal/store"
	"mailassist/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondStoreError store.ErrNotFound → 404，其他 → 500
func respondStoreError(c *gin.Context, log *zap.Logger, notFoundMsg string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}
	logger.WithTrace(c.Request.Context(), log).Error("Store operation failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
