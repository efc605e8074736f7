package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"litqa/internal/app"
	"litqa/internal/pkg/textextract"
	"litqa/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

type DocumentHandler struct {
	documentService *app.DocumentService
}

type SaveTextRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Content string `json:"content" binding:"required"`
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	docs, err := h.documentService.List(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	doc, err := h.documentService.Get(c.Request.Context(), userID, c.Param("name"))
	if err != nil {
		writeServiceError(c, err, "read document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.documentService.Delete(c.Request.Context(), userID, c.Param("name")); err != nil {
		writeServiceError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted": c.Param("name")})
}

func (h *DocumentHandler) UploadText(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req SaveTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	doc, err := h.documentService.SaveText(c.Request.Context(), userID, req.Name, req.Content)
	if err != nil {
		writeServiceError(c, err, "save document failed")
		return
	}
	response.OK(c, doc)
}

// UploadPDF accepts a multipart "file" field holding a PDF.
func (h *DocumentHandler) UploadPDF(c *gin.Context) {
	h.upload(c, textextract.FormatPDF)
}

// UploadData accepts CSV or Markdown; the format follows the file extension.
func (h *DocumentHandler) UploadData(c *gin.Context) {
	h.upload(c, "")
}

func (h *DocumentHandler) upload(c *gin.Context, format textextract.Format) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}

	if format == "" {
		detected, err := textextract.DetectFormat(file.Filename)
		if err != nil || (detected != textextract.FormatCSV && detected != textextract.FormatMarkdown) {
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedUpload, "only CSV and Markdown files are allowed")
			return
		}
		format = detected
	} else if detected, err := textextract.DetectFormat(file.Filename); err != nil || detected != format {
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedUpload, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	doc, err := h.documentService.Upload(c.Request.Context(), app.UploadInput{
		UserID:   userID,
		Filename: file.Filename,
		Name:     c.PostForm("name"),
		Format:   format,
		Body:     f,
	})
	if err != nil {
		writeServiceError(c, err, "save document failed")
		return
	}
	response.OK(c, doc)
}
