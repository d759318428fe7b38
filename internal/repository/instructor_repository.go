package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/didar-dev/didar-api/internal/models"
)

const instructorSelect = `SELECT i.id, i.user_id, i.bio, i.room_phone, i.room_number, i.is_available_now, i.department_id,
	u.first_name, u.last_name, d.name AS department_name, i.created_at, i.updated_at
	FROM instructors i
	JOIN users u ON u.id = i.user_id
	JOIN departments d ON d.id = i.department_id`

// InstructorRepository provides read access to instructor records.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository creates a new instructor repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns instructors with optional department/faculty filtering.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error) {
	var conditions []string
	var args []interface{}

	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("i.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("d.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}

	query := instructorSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY u.last_name ASC, u.first_name ASC"

	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	return instructors, nil
}

// FindByID loads an instructor by id.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	query := instructorSelect + " WHERE i.id = $1"
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// FindByUserID loads the instructor record backing a user, if any.
func (r *InstructorRepository) FindByUserID(ctx context.Context, userID string) (*models.Instructor, error) {
	query := instructorSelect + " WHERE i.user_id = $1"
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, userID); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// ListByDepartment returns a department's instructors.
func (r *InstructorRepository) ListByDepartment(ctx context.Context, departmentID string) ([]models.Instructor, error) {
	return r.List(ctx, models.InstructorFilter{DepartmentID: departmentID})
}

// ListAll returns every instructor; used by the availability poller.
func (r *InstructorRepository) ListAll(ctx context.Context) ([]models.Instructor, error) {
	return r.List(ctx, models.InstructorFilter{})
}

// SetAvailableNow flips the live-availability flag.
func (r *InstructorRepository) SetAvailableNow(ctx context.Context, id string, available bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE instructors SET is_available_now = $2, updated_at = NOW() WHERE id = $1`, id, available); err != nil {
		return fmt.Errorf("set instructor availability: %w", err)
	}
	return nil
}
