package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trailhq/trail-api/internal/models"
	appErrors "github.com/trailhq/trail-api/pkg/errors"
	"github.com/trailhq/trail-api/pkg/response"
)

type attendanceService interface {
	LogScan(ctx context.Context, rfid string) (*models.ScanResult, error)
	RecentScans(ctx context.Context, limit int) ([]models.ScanRecord, error)
}

// AttendanceHandler wires scan ingestion and the recent feed to HTTP endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Scan godoc
// @Summary Record an RFID scan
// @Description Resolve a tag to a student and append one attendance event
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body object{rfid=string} true "Scan payload"
// @Success 200 {object} object{status=string,student=models.ScanResult}
// @Failure 400 {object} object{status=string,message=string}
// @Failure 404 {object} object{status=string,message=string}
// @Router /api/attendance [post]
func (h *AttendanceHandler) Scan(c *gin.Context) {
	// Flat payloads keep the endpoint compatible with scanner firmware
	// already deployed in the field.
	var req struct {
		RFID string `json:"rfid"`
	}
	// A bind failure is treated the same as an absent tag value.
	_ = c.ShouldBindJSON(&req)

	result, err := h.service.LogScan(c.Request.Context(), req.RFID)
	if err != nil {
		h.writeScanError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"student": result,
	})
}

func (h *AttendanceHandler) writeScanError(c *gin.Context, err error) {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status, gin.H{"status": "error", "message": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal error"})
}

// Recent godoc
// @Summary Recent scans feed
// @Tags Attendance
// @Produce json
// @Param limit query int false "Maximum rows to return"
// @Success 200 {object} response.Envelope
// @Router /attendance/recent [get]
func (h *AttendanceHandler) Recent(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	records, err := h.service.RecentScans(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
