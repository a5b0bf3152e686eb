package submissions

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docuflow/approval-portal/approval-portal-backend/internal/apperrors"
	"docuflow/approval-portal/approval-portal-backend/internal/identity"
	"docuflow/approval-portal/approval-portal-backend/pkg/security"
)

type Handler struct {
	service   *Service
	validator security.Validator
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validator: security.NewValidator()}
}

// checkUpload structurally validates PDF attachments before they reach
// storage, then rewinds the file for the service to consume.
func (h *Handler) checkUpload(c *gin.Context, name string, f multipart.File) bool {
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return true
	}
	if _, err := h.validator.ValidatePDF(c.Request.Context(), f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if _, err := f.Seek(0, 0); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
		return false
	}
	return true
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	subs := rg.Group("/submissions")
	{
		subs.POST("", h.Create)
		subs.GET("/mine", h.ListMine)
		subs.GET("/inbox", h.ListInbox)
		subs.GET("/:id", h.Get)
		subs.GET("/:id/file", h.DownloadFile)
		subs.PUT("/:id", h.Update)
		subs.DELETE("/:id", h.Delete)
		subs.POST("/:id/approve", h.Approve)
		subs.POST("/:id/reject", h.Reject)
		subs.POST("/:id/request-next", h.RequestNext)
	}
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := identity.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	req := &CreateSubmissionRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}
	if payload := c.PostForm("form_payload"); payload != "" {
		if !json.Valid([]byte(payload)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "form_payload must be valid JSON"})
			return
		}
		req.FormPayload = json.RawMessage(payload)
	}

	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()
		if !h.checkUpload(c, file.Filename, f) {
			return
		}
		req.FileName = file.Filename
		req.FileContent = f
	}

	sub, err := h.service.CreateSubmission(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, ok := identity.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	limit, offset := pagination(c)
	subs, err := h.service.ListMine(c.Request.Context(), actor, limit, offset)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	c.JSON(http.StatusOK, subs)
}

func (h *Handler) ListInbox(c *gin.Context) {
	actor, ok := identity.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	limit, offset := pagination(c)
	subs, err := h.service.ListInbox(c.Request.Context(), actor, limit, offset)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	c.JSON(http.StatusOK, subs)
}

func (h *Handler) Get(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	detail, err := h.service.GetSubmissionDetail(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *Handler) DownloadFile(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	reader, err := h.service.DownloadFile(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", reader, nil)
}

func (h *Handler) Update(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	req := &UpdateSubmissionRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}
	if payload := c.PostForm("form_payload"); payload != "" {
		if !json.Valid([]byte(payload)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "form_payload must be valid JSON"})
			return
		}
		req.FormPayload = json.RawMessage(payload)
	}
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()
		if !h.checkUpload(c, file.Filename, f) {
			return
		}
		req.FileName = file.Filename
		req.FileContent = f
	}

	sub, err := h.service.UpdateSubmissionContent(c.Request.Context(), actor, id, req)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteSubmission(c.Request.Context(), actor, id); err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	c.Status(http.StatusNoContent)
}

type actionRequest struct {
	Note string `json:"note"`
}

func (h *Handler) Approve(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req actionRequest
	_ = c.ShouldBindJSON(&req)

	sub, err := h.service.Approve(c.Request.Context(), actor, id, req.Note)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (h *Handler) Reject(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req actionRequest
	_ = c.ShouldBindJSON(&req)

	sub, err := h.service.Reject(c.Request.Context(), actor, id, req.Note)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (h *Handler) RequestNext(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	sub, err := h.service.RequestToNextStep(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (h *Handler) actorAndID(c *gin.Context) (identity.Actor, uuid.UUID, bool) {
	actor, ok := identity.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return identity.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return identity.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	page := 1
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	return limit, (page - 1) * limit
}
