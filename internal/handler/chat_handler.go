package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/hajime-dev/devicekb/internal/pkg/errcode"
	"github.com/hajime-dev/devicekb/internal/pkg/response"
	"github.com/hajime-dev/devicekb/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	DeviceID string     `json:"device_id"`
	Message  string     `json:"message"`
	History  []chatTurn `json:"history"`
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.DeviceID == "" || req.Message == "" {
		response.Error(c, errcode.ErrInvalid, "device_id and message are required")
		return
	}
	history := make([]model.ChatMessage, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, model.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	answer, err := h.chat.Ask(c.Request.Context(), req.DeviceID, req.Message, history)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"response":        answer.Text,
		"sources":         answer.Citations,
		"quality_metrics": answer.Metrics,
	})
}

type searchRequest struct {
	DeviceID string `json:"device_id"`
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
}

func (h *ChatHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.DeviceID == "" || req.Query == "" {
		response.Error(c, errcode.ErrInvalid, "device_id and query are required")
		return
	}
	results, err := h.chat.Search(c.Request.Context(), req.DeviceID, req.Query, req.Limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": results})
}

func (h *ChatHandler) History(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		response.Error(c, errcode.ErrInvalid, "device_id is required")
		return
	}
	limit := 0
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	messages, err := h.chat.History(c.Request.Context(), deviceID, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"messages": messages})
}

func (h *ChatHandler) Clear(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		response.Error(c, errcode.ErrInvalid, "device_id is required")
		return
	}
	if err := h.chat.Clear(c.Request.Context(), deviceID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}
