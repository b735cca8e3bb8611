package handler

import (
	"net/http"

	"mailassist/internal/service/chat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChatRequest struct {
	Query   string `json:"query" binding:"required"`
	EmailID string `json:"email_id"`
}

type GenerateDraftRequest struct {
	EmailID      string `json:"email_id" binding:"required"`
	Instructions string `json:"instructions"`
}

type ChatHandler struct {
	chat   *chat.Service
	logger *zap.Logger
}

func NewChatHandler(svc *chat.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: svc, logger: logger}
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	answer, err := h.chat.Ask(c.Request.Context(), req.Query, req.EmailID)
	if err != nil {
		respondStoreError(c, h.logger, "Email not found", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}

// GenerateDraft handles POST /drafts/generate；生成的正文不会保存
func (h *ChatHandler) GenerateDraft(c *gin.Context) {
	var req GenerateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email_id is required"})
		return
	}

	body, err := h.chat.GenerateDraft(c.Request.Context(), req.EmailID, req.Instructions)
	if err != nil {
		respondStoreError(c, h.logger, "Email not found", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft_body": body})
}
