package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trailhq/trail-api/pkg/response"
)

type exportService interface {
	AttendanceCSV(ctx context.Context) ([]byte, error)
	AttendancePDF(ctx context.Context) ([]byte, error)
}

// ExportHandler serves attendance log downloads.
type ExportHandler struct {
	service exportService
	now     func() time.Time
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service, now: time.Now}
}

// AttendanceCSV godoc
// @Summary Download the attendance log as CSV
// @Tags Export
// @Produce text/csv
// @Success 200 {string} string "CSV payload"
// @Router /export/attendance.csv [get]
func (h *ExportHandler) AttendanceCSV(c *gin.Context) {
	payload, err := h.service.AttendanceCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("attendance_%s.csv", h.now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", payload)
}

// AttendancePDF godoc
// @Summary Download the attendance log as PDF
// @Tags Export
// @Produce application/pdf
// @Success 200 {string} string "PDF payload"
// @Router /export/attendance.pdf [get]
func (h *ExportHandler) AttendancePDF(c *gin.Context) {
	payload, err := h.service.AttendancePDF(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("attendance_%s.pdf", h.now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}
