package verification

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

// RegisterRoutes mounts the public verification endpoint. No auth: the
// token itself is the credential.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/verify/:token", h.Verify)
}

func (h *Handler) Verify(c *gin.Context) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
		return
	}

	summary, err := h.service.Lookup(c.Request.Context(), token)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	c.JSON(http.StatusOK, summary)
}
