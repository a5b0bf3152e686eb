package reports

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docuflow/approval-portal/approval-portal-backend/internal/apperrors"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	r := rg.Group("/reports")
	{
		r.GET("/summary", h.Summary)
		r.GET("/export", h.Export)
	}
}

func parsePeriod(c *gin.Context) (Period, error) {
	var period Period
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return period, apperrors.NewValidation("from", "must be a YYYY-MM-DD date")
		}
		period.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return period, apperrors.NewValidation("to", "must be a YYYY-MM-DD date")
		}
		// Inclusive end of day.
		period.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return period, nil
}

func (h *Handler) Summary(c *gin.Context) {
	period, err := parsePeriod(c)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	summaries, err := h.service.DivisionSummaries(c.Request.Context(), period)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

func (h *Handler) Export(c *gin.Context) {
	period, err := parsePeriod(c)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	workbook, err := h.service.ExportWorkbook(c.Request.Context(), period)
	if err != nil {
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.Message(err)})
		return
	}

	filename := fmt.Sprintf("submissions-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeContent(c.Writer, c.Request, filename, time.Now(), workbook)
}
