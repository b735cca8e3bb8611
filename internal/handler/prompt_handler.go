package handler

import (
	"net/http"

	"mailassist/internal/model"
	"mailassist/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PromptHandler struct {
	store  store.Store
	logger *zap.Logger
}

func NewPromptHandler(st store.Store, logger *zap.Logger) *PromptHandler {
	return &PromptHandler{store: st, logger: logger}
}

// ListPrompts handles GET /prompts
func (h *PromptHandler) ListPrompts(c *gin.Context) {
	prompts, err := h.store.ListPrompts(c.Request.Context())
	if err != nil {
		respondStoreError(c, h.logger, "", err)
		return
	}
	c.JSON(http.StatusOK, prompts)
}

// GetPrompt handles GET /prompts/:id
func (h *PromptHandler) GetPrompt(c *gin.Context) {
	prompt, err := h.store.GetPrompt(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, h.logger, "Prompt not found", err)
		return
	}
	c.JSON(http.StatusOK, prompt)
}

// UpdatePrompt handles PUT /prompts/:id
func (h *PromptHandler) UpdatePrompt(c *gin.Context) {
	var prompt model.PromptConfig
	if err := c.ShouldBindJSON(&prompt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id := c.Param("id")
	if prompt.ID == "" {
		prompt.ID = id
	}
	if prompt.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt ID mismatch"})
		return
	}

	if err := h.store.UpsertPrompt(c.Request.Context(), prompt); err != nil {
		respondStoreError(c, h.logger, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prompt updated"})
}
