package handler

import (
	"net/http"
	"time"

	"mailassist/internal/model"
	"mailassist/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EmailHandler struct {
	store  store.Store
	logger *zap.Logger
}

func NewEmailHandler(st store.Store, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{store: st, logger: logger}
}

// ListEmails handles GET /emails
func (h *EmailHandler) ListEmails(c *gin.Context) {
	emails, err := h.store.ListEmails(c.Request.Context())
	if err != nil {
		respondStoreError(c, h.logger, "", err)
		return
	}
	c.JSON(http.StatusOK, emails)
}

// GetEmail handles GET /emails/:id
func (h *EmailHandler) GetEmail(c *gin.Context) {
	email, err := h.store.GetEmail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, h.logger, "Email not found", err)
		return
	}
	c.JSON(http.StatusOK, email)
}

// CreateEmail handles POST /emails
func (h *EmailHandler) CreateEmail(c *gin.Context) {
	var email model.Email
	if err := c.ShouldBindJSON(&email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if email.ID == "" {
		email.ID = uuid.NewString()
	}
	if email.Timestamp.IsZero() {
		email.Timestamp = time.Now().UTC()
	}
	if email.ActionItems == nil {
		email.ActionItems = []model.ActionItem{}
	}

	if err := h.store.UpsertEmail(c.Request.Context(), email); err != nil {
		respondStoreError(c, h.logger, "", err)
		return
	}
	c.JSON(http.StatusCreated, email)
}
