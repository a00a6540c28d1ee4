package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hajime-dev/devicekb/internal/pkg/errcode"
	"github.com/hajime-dev/devicekb/internal/pkg/response"
	"github.com/hajime-dev/devicekb/internal/service"
)

type TemplateHandler struct {
	templates *service.TemplateService
}

func NewTemplateHandler(templates *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

func (h *TemplateHandler) Download(c *gin.Context) {
	rc, err := h.templates.Open(c.Request.Context(), c.Param("key"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Disposition", `attachment; filename="`+c.Param("key")+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

type templateRequest struct {
	DeviceID string `json:"device_id"`
	Template string `json:"template"`
}

func (h *TemplateHandler) Analyze(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.DeviceID == "" {
		response.Error(c, errcode.ErrInvalid, "device_id is required")
		return
	}
	analysis, err := h.templates.Analyze(c.Request.Context(), req.DeviceID, req.Template)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"field_analysis": analysis})
}

func (h *TemplateHandler) Fill(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.DeviceID == "" {
		response.Error(c, errcode.ErrInvalid, "device_id is required")
		return
	}
	result, err := h.templates.Fill(c.Request.Context(), req.DeviceID, req.Template)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"filled_fields":  result.FilledFields,
		"missing_fields": result.MissingFields,
		"output":         result.Output,
		"output_key":     result.OutputKey,
	})
}
