package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trailhq/trail-api/internal/models"
)

// AttendanceRepository manages the append-only attendance event log.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Insert appends one event. The log is never updated or deleted.
func (r *AttendanceRepository) Insert(ctx context.Context, event *models.AttendanceEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_events (id, student_id, ts, created_at)
        VALUES (:id, :student_id, :ts, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert attendance event: %w", err)
	}
	return nil
}

// ListAll returns every event in insertion order.
func (r *AttendanceRepository) ListAll(ctx context.Context) ([]models.AttendanceEvent, error) {
	const query = `SELECT id, student_id, ts, created_at FROM attendance_events ORDER BY created_at, id`
	var events []models.AttendanceEvent
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list attendance events: %w", err)
	}
	return events, nil
}

// ListRecent returns the most recent events first, capped at limit.
func (r *AttendanceRepository) ListRecent(ctx context.Context, limit int) ([]models.AttendanceEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, student_id, ts, created_at FROM attendance_events ORDER BY ts DESC, created_at DESC LIMIT $1`
	var events []models.AttendanceEvent
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("list recent attendance events: %w", err)
	}
	return events, nil
}
