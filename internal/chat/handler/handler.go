// Package handler exposes the conversational quoting endpoints.
package handler

import (
	"salesquote_backend/internal/chat/service"
	"salesquote_backend/internal/chat/transport"
	"salesquote_backend/platform/apperr"
	"salesquote_backend/platform/httpkit"
	"salesquote_backend/platform/logger"
	"salesquote_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler serves chat endpoints.
type Handler struct {
	service *service.Service
	val     *validator.Validator
	log     *logger.Logger
}

// New creates a new chat handler.
func New(svc *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: svc, val: val, log: log}
}

// Chat runs one turn and returns the complete response.
// POST /chat
func (h *Handler) Chat(c *gin.Context) {
	var req transport.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("message is required").WithDetails(err.Error()))
		return
	}

	resp, err := h.service.Chat(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// ChatStream runs one turn and streams it as server-sent events.
// POST /chat/stream
func (h *Handler) ChatStream(c *gin.Context) {
	var req transport.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("message is required").WithDetails(err.Error()))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	events := h.service.Stream(c.Request.Context(), req)
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(ev.Type), ev.Payload)
			c.Writer.Flush()
		}
	}
}

// GetHistory returns the persisted transcript of a session.
// GET /sessions/:id/history
func (h *Handler) GetHistory(c *gin.Context) {
	sessionID := c.Param("id")

	messages, err := h.service.History(c.Request.Context(), sessionID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.HistoryResponse{
		SessionID: sessionID,
		Messages:  make([]transport.MessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, transport.MessageResponse{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	httpkit.OK(c, resp)
}

// ClearSession deletes a session and its history.
// DELETE /sessions/:id
func (h *Handler) ClearSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.service.ClearSession(c.Request.Context(), sessionID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"deleted": true})
}
