package handler

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hajime-dev/devicekb/internal/pkg/errcode"
	"github.com/hajime-dev/devicekb/internal/pkg/response"
	"github.com/hajime-dev/devicekb/internal/service"
)

const maxUploadBytes = 32 << 20

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Upload ingests one document. The request is multipart: field "device_id",
// the source file under "file", and optionally "text" carrying externally
// extracted text. Without "text" the file bytes themselves are used, which
// works for plain text and markdown sources.
func (h *DocumentHandler) Upload(c *gin.Context) {
	deviceID := c.PostForm("device_id")
	if deviceID == "" {
		response.Error(c, errcode.ErrInvalid, "device_id is required")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size > maxUploadBytes {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	raw, err := io.ReadAll(io.LimitReader(opened, maxUploadBytes+1))
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}

	text := c.PostForm("text")
	if text == "" && isTextual(file.Filename) {
		text = string(raw)
	}
	if text == "" {
		response.Error(c, errcode.ErrInvalid, "text is required for non-text files")
		return
	}

	doc, stats, err := h.documents.Ingest(c.Request.Context(), deviceID, file.Filename,
		bytesFile{bytes.NewReader(raw)}, int64(len(raw)), text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"document": doc, "stats": stats})
}

func (h *DocumentHandler) List(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		response.Error(c, errcode.ErrInvalid, "device_id is required")
		return
	}
	docs, err := h.documents.ListByDevice(c.Request.Context(), deviceID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	rc, doc, err := h.documents.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(doc.Filename, `"`, "")+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}

func isTextual(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown", ".text":
		return true
	}
	return false
}

type bytesFile struct {
	*bytes.Reader
}

func (bytesFile) Close() error { return nil }
