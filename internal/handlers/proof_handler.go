package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/campusdocs/proof-archive/internal/export"
	"github.com/campusdocs/proof-archive/internal/services"
	"github.com/campusdocs/proof-archive/internal/utils"
)

// multipartOverhead is the body allowance on top of the file size limit
const multipartOverhead = 1 << 20

type ProofHandler struct {
	BaseHandler
	proofService  services.ProofService
	sessions      *SessionAuth
	maxUploadSize int64
	now           func() time.Time
}

func NewProofHandler(proofService services.ProofService, sessions *SessionAuth, maxUploadSize int64, logger utils.Logger) *ProofHandler {
	return &ProofHandler{
		BaseHandler:   NewBaseHandler(logger),
		proofService:  proofService,
		sessions:      sessions,
		maxUploadSize: maxUploadSize,
		now:           time.Now,
	}
}

// Upload stores a proof document with its event metadata
// @Summary Upload a proof document
// @Tags proofs
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document"
// @Param eventName formData string true "Event name"
// @Param proofType formData string true "Proof type"
// @Success 200 {object} services.UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /upload [post]
func (h *ProofHandler) Upload(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)

	var file *services.UploadFile
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			h.LogError(c, err, "Failed to open uploaded part")
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid file upload"})
			return
		}
		defer f.Close()

		file = &services.UploadFile{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Reader:      f,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// reported by the service as a missing file
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Message: "File too large",
				Details: gin.H{"max_bytes": h.maxUploadSize},
			})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	// Form fields are read even without a file part so a mismatched
	// legacy identity is refused before the missing file is reported
	var req services.UploadRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if !h.sessions.checkLegacyIdentity(c, req.LegacyIdentity) {
		return
	}

	if file != nil {
		h.LogRequest(c, "Uploading proof", "file_name", file.Name, "size", file.Size)
	}

	resp, err := h.proofService.Upload(c.Request.Context(), user, &req, file, services.RequestMeta{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateStatus records a review decision
// @Summary Approve or reject a proof
// @Tags proofs
// @Accept json
// @Produce json
// @Param id path int true "Proof ID"
// @Param request body services.StatusUpdateRequest true "Decision"
// @Success 200 {object} services.StatusUpdateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /proofs/{id}/status [put]
func (h *ProofHandler) UpdateStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if !h.sessions.checkLegacyIdentity(c, req.LegacyIdentity) {
		return
	}

	h.LogRequest(c, "Updating proof status", "proof_id", id, "status", req.Status)

	resp, err := h.proofService.UpdateStatus(c.Request.Context(), user, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListProofs returns the proofs visible to the caller
// @Summary List proofs
// @Tags proofs
// @Produce json
// @Param status query string false "pending, approved, rejected or all"
// @Success 200 {array} models.ProofListItem
// @Router /proofs [get]
func (h *ProofHandler) ListProofs(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	proofs, err := h.proofService.List(c.Request.Context(), user, c.Query("status"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, proofs)
}

func (h *ProofHandler) GetProof(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	proof, err := h.proofService.Get(c.Request.Context(), user, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, proof)
}

// GetHistory returns the review trail of a proof, oldest first
func (h *ProofHandler) GetHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	reviews, err := h.proofService.History(c.Request.Context(), user, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// Search finds student proofs by identifier
// @Summary Search student proofs
// @Tags proofs
// @Produce json
// @Param studentUSN query string false "Substring of the student email"
// @Param status query string false "pending, approved, rejected or all"
// @Success 200 {array} models.SearchResult
// @Failure 403 {object} ErrorResponse
// @Router /search [get]
func (h *ProofHandler) Search(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Searching proofs", "student_usn", c.Query("studentUSN"))

	results, err := h.proofService.Search(c.Request.Context(), user, c.Query("studentUSN"), c.Query("status"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ExportSearch returns the search results as a spreadsheet download
func (h *ProofHandler) ExportSearch(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	data, err := h.proofService.ExportSearch(c.Request.Context(), user, c.Query("studentUSN"), c.Query("status"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(h.now())+`"`)
	c.Data(http.StatusOK, export.ContentType, data)
}
