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

type DraftHandler struct {
	store  store.Store
	logger *zap.Logger
}

func NewDraftHandler(st store.Store, logger *zap.Logger) *DraftHandler {
	return &DraftHandler{store: st, logger: logger}
}

// ListDrafts handles GET /drafts
func (h *DraftHandler) ListDrafts(c *gin.Context) {
	drafts, err := h.store.ListDrafts(c.Request.Context())
	if err != nil {
		respondStoreError(c, h.logger, "", err)
		return
	}
	c.JSON(http.StatusOK, drafts)
}

// CreateDraft handles POST /drafts
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var draft model.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.SavedAt.IsZero() {
		draft.SavedAt = time.Now().UTC()
	}

	if err := h.store.UpsertDraft(c.Request.Context(), draft); err != nil {
		respondStoreError(c, h.logger, "", err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// UpdateDraft handles PUT /drafts/:id
func (h *DraftHandler) UpdateDraft(c *gin.Context) {
	var draft model.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id := c.Param("id")
	if draft.ID == "" {
		draft.ID = id
	}
	if draft.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Draft ID mismatch"})
		return
	}
	draft.SavedAt = time.Now().UTC()

	if err := h.store.UpsertDraft(c.Request.Context(), draft); err != nil {
		respondStoreError(c, h.logger, "", err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// DeleteDraft handles DELETE /drafts/:id
func (h *DraftHandler) DeleteDraft(c *gin.Context) {
	if err := h.store.DeleteDraft(c.Request.Context(), c.Param("id")); err != nil {
		respondStoreError(c, h.logger, "Draft not found", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Draft deleted"})
}
