package permissions

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docuflow/approval-portal/approval-portal-backend/internal/apperrors"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	perms := rg.Group("/permissions")
	{
		perms.GET("/global", h.ListGlobal)
		perms.GET("/global/:subdivision_id", h.GetGlobal)
		perms.PUT("/global/:subdivision_id", h.SetGlobal)
		perms.GET("/steps/:step_id", h.ListForStep)
	}
}

func (h *Handler) ListGlobal(c *gin.Context) {
	perms, err := h.service.ListGlobal(c.Request.Context())
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

func (h *Handler) GetGlobal(c *gin.Context) {
	subdivisionID, err := uuid.Parse(c.Param("subdivision_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subdivision id"})
		return
	}

	perm, err := h.service.GetGlobal(c.Request.Context(), subdivisionID)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}
	c.JSON(http.StatusOK, perm)
}

func (h *Handler) SetGlobal(c *gin.Context) {
	subdivisionID, err := uuid.Parse(c.Param("subdivision_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subdivision id"})
		return
	}

	var perm GlobalPermission
	if err := c.ShouldBindJSON(&perm); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	perm.SubdivisionID = subdivisionID

	saved, err := h.service.SetGlobal(c.Request.Context(), &perm)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) ListForStep(c *gin.Context) {
	stepID, err := uuid.Parse(c.Param("step_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step id"})
		return
	}

	perms, err := h.service.ListForStep(c.Request.Context(), stepID)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}
