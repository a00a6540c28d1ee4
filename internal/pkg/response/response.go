// Package response renders the API envelope. Failures carry an application
// error code and still return HTTP 200; clients switch on the code.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// apiError satisfies proxyutil's coded-error contract so failures render
// through the same JSON envelope as successes.
type apiError struct {
	code    uint32
	message string
}

func (e *apiError) Error() string {
	return e.message
}

func (e *apiError) Code() uint32 {
	return e.code
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, http.StatusOK, &apiError{code: uint32(code), message: message})
}
