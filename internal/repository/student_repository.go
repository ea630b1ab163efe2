package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trailhq/trail-api/internal/models"
)

// StudentRepository reads the roster maintained by the external provisioning
// process.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns the full roster in creation order.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT id, full_name, rfid, created_at FROM students ORDER BY created_at, id`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a single student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, rfid, created_at FROM students WHERE id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByRFID resolves a tag value to a student. When duplicate tags exist the
// oldest roster entry wins, which keeps resolution deterministic.
func (r *StudentRepository) FindByRFID(ctx context.Context, rfid string) (*models.Student, error) {
	const query = `SELECT id, full_name, rfid, created_at FROM students WHERE rfid = $1 ORDER BY created_at, id LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, rfid); err != nil {
		return nil, err
	}
	return &student, nil
}
