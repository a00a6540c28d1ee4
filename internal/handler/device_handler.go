package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hajime-dev/devicekb/internal/pkg/errcode"
	"github.com/hajime-dev/devicekb/internal/pkg/response"
	"github.com/hajime-dev/devicekb/internal/service"
)

type DeviceHandler struct {
	devices *service.DeviceService
}

func NewDeviceHandler(devices *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

type deviceCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *DeviceHandler) Create(c *gin.Context) {
	var req deviceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	device, err := h.devices.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, device)
}

func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.devices.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"devices": devices})
}

func (h *DeviceHandler) Get(c *gin.Context) {
	device, err := h.devices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, device)
}

func (h *DeviceHandler) Delete(c *gin.Context) {
	if err := h.devices.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}
