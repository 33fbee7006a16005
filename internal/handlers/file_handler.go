package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusdocs/proof-archive/internal/services"
	"github.com/campusdocs/proof-archive/internal/utils"
)

type FileHandler struct {
	BaseHandler
	fileService services.FileService
}

func NewFileHandler(fileService services.FileService, logger utils.Logger) *FileHandler {
	return &FileHandler{
		BaseHandler: NewBaseHandler(logger),
		fileService: fileService,
	}
}

// Preview serves a stored document for display. Images and PDFs are inline,
// other types download under their original name.
// @Summary Preview a document
// @Tags files
// @Param filename path string true "Stored file name"
// @Param width query int false "Resize images to this width (16-2048)"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /preview/{filename} [get]
func (h *FileHandler) Preview(c *gin.Context) {
	width := 0
	if raw := c.Query("width"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid width",
				Details: raw,
			})
			return
		}
		width = w
	}
	h.serve(c, width, true)
}

// Raw serves the stored bytes without preview handling
func (h *FileHandler) Raw(c *gin.Context) {
	h.serve(c, 0, false)
}

func (h *FileHandler) serve(c *gin.Context, width int, withDisposition bool) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	content, err := h.fileService.Open(c.Request.Context(), user, c.Param("filename"), width)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer content.Close()

	c.Header("Content-Type", content.ContentType)
	if withDisposition && content.Disposition != "" {
		c.Header("Content-Disposition", content.Disposition)
	}
	c.Header("Cache-Control", "private, max-age=300")

	if content.File != nil {
		http.ServeContent(c.Writer, c.Request, content.Name, content.ModTime, content.File)
		return
	}
	c.Data(http.StatusOK, content.ContentType, content.Data)
}
