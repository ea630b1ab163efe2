package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trailhq/trail-api/internal/dto"
	"github.com/trailhq/trail-api/internal/middleware"
	"github.com/trailhq/trail-api/internal/models"
	appErrors "github.com/trailhq/trail-api/pkg/errors"
	"github.com/trailhq/trail-api/pkg/response"
)

type dashboardService interface {
	Overview(ctx context.Context, selectedDate time.Time) (*dto.OverviewResponse, bool, error)
}

// DashboardHandler wires the dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Overview godoc
// @Summary Attendance overview for a date
// @Tags Dashboard
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}

	var selected time.Time
	if dateStr := strings.TrimSpace(c.Query("date")); dateStr != "" {
		parsed, err := time.Parse(models.EventDateLayout, dateStr)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
			return
		}
		selected = parsed
	}

	start := time.Now()
	overview, cacheHit, err := h.service.Overview(c.Request.Context(), selected)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, overview, nil, meta)
}
