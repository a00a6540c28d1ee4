package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/pkg/errcode"
	appErr "github.com/hajime-dev/devicekb/internal/pkg/errors"
	"github.com/hajime-dev/devicekb/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTemplateParse):
		response.Error(c, errcode.ErrTemplateParse, "template is empty or not valid utf-8")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "generation service unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
