package identity

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	repo   Repository
	logger *zap.Logger
}

func NewHandler(repo Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes registers identity routes on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, handler *Handler) {
	rg.GET("/me", handler.Me)
	rg.GET("/divisions", handler.ListDivisions)
	rg.GET("/subdivisions", handler.ListSubdivisions)
}

// Me returns the authenticated user's profile with division context.
func (h *Handler) Me(c *gin.Context) {
	actor, ok := ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	user, err := h.repo.GetUserByID(c.Request.Context(), actor.ID)
	if err != nil {
		h.logger.Error("Failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	division, err := h.repo.GetDivisionByID(c.Request.Context(), actor.DivisionID)
	if err != nil {
		h.logger.Error("Failed to load division", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "division": division})
}

func (h *Handler) ListDivisions(c *gin.Context) {
	divisions, err := h.repo.ListDivisions(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list divisions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"divisions": divisions})
}

func (h *Handler) ListSubdivisions(c *gin.Context) {
	var divisionID *uuid.UUID
	if v := c.Query("division_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid division id"})
			return
		}
		divisionID = &id
	}

	subdivisions, err := h.repo.ListSubdivisions(c.Request.Context(), divisionID)
	if err != nil {
		h.logger.Error("Failed to list subdivisions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subdivisions": subdivisions})
}
