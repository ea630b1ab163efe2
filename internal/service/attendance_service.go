package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trailhq/trail-api/internal/models"
	appErrors "github.com/trailhq/trail-api/pkg/errors"
)

const (
	scanResultOK       = "ok"
	scanResultMissing  = "missing_rfid"
	scanResultUnknown  = "unknown_rfid"
	scanResultUpstream = "upstream_error"
)

type studentResolver interface {
	List(ctx context.Context) ([]models.Student, error)
	FindByRFID(ctx context.Context, rfid string) (*models.Student, error)
}

type eventStore interface {
	Insert(ctx context.Context, event *models.AttendanceEvent) error
	ListRecent(ctx context.Context, limit int) ([]models.AttendanceEvent, error)
}

// AttendanceService handles RFID scan ingestion and the recent scan feed.
type AttendanceService struct {
	students    studentResolver
	events      eventStore
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	recentLimit int
}

// AttendanceServiceParams groups constructor dependencies.
type AttendanceServiceParams struct {
	Students    studentResolver
	Events      eventStore
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	RecentLimit int
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(params AttendanceServiceParams) *AttendanceService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := params.RecentLimit
	if limit <= 0 {
		limit = 50
	}
	return &AttendanceService{
		students:    params.Students,
		events:      params.Events,
		cache:       params.Cache,
		metrics:     params.Metrics,
		logger:      logger,
		now:         time.Now,
		recentLimit: limit,
	}
}

// LogScan resolves the tag to a student and appends one attendance event.
// Every scan is recorded, including repeat scans by the same student on the
// same day; deduplication happens at read time.
func (s *AttendanceService) LogScan(ctx context.Context, rfid string) (*models.ScanResult, error) {
	rfid = strings.TrimSpace(rfid)
	if rfid == "" {
		s.recordScan(scanResultMissing)
		return nil, appErrors.ErrMissingRFID
	}

	student, err := s.students.FindByRFID(ctx, rfid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordScan(scanResultUnknown)
			s.logger.Info("scan with unknown tag", zap.String("rfid", rfid))
			return nil, appErrors.ErrUnknownRFID
		}
		s.recordScan(scanResultUpstream)
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to resolve tag")
	}

	event := &models.AttendanceEvent{
		StudentID: student.ID,
		Timestamp: s.now().UTC().Format(models.EventTimeLayout),
	}
	if err := s.events.Insert(ctx, event); err != nil {
		s.recordScan(scanResultUpstream)
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to record scan")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "dash:overview:*"); err != nil {
			s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
		}
	}

	s.recordScan(scanResultOK)
	s.logger.Info("scan recorded",
		zap.String("student_id", student.ID),
		zap.String("ts", event.Timestamp),
	)
	return &models.ScanResult{StudentID: student.ID, StudentName: student.FullName}, nil
}

// RecentScans returns the newest scans first with resolved student names.
// Events pointing at students missing from the roster are kept and labelled
// with the unknown placeholder.
func (s *AttendanceService) RecentScans(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	if limit <= 0 || limit > s.recentLimit {
		limit = s.recentLimit
	}

	events, err := s.events.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load recent scans")
	}

	students, err := s.students.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load roster")
	}
	byID := make(map[string]models.Student, len(students))
	for _, student := range students {
		byID[student.ID] = student
	}

	records := make([]models.ScanRecord, 0, len(events))
	for _, event := range events {
		record := models.ScanRecord{
			StudentName: models.UnknownLabel,
			RFID:        models.UnknownLabel,
			Timestamp:   event.Timestamp,
		}
		if student, ok := byID[event.StudentID]; ok {
			record.StudentName = student.FullName
			record.RFID = student.RFID
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *AttendanceService) recordScan(result string) {
	if s.metrics != nil {
		s.metrics.RecordScan(result)
	}
}
