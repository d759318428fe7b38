package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/didar-dev/didar-api/internal/models"
)

const departmentSelect = `SELECT d.id, d.name, d.faculty_id, f.name AS faculty_name
	FROM departments d JOIN faculties f ON f.id = d.faculty_id`

// FacultyRepository provides read access to faculty reference data.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new faculty repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// ListFaculties returns all faculties ordered by name.
func (r *FacultyRepository) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	var faculties []models.Faculty
	if err := r.db.SelectContext(ctx, &faculties, "SELECT id, name FROM faculties ORDER BY name ASC"); err != nil {
		return nil, fmt.Errorf("list faculties: %w", err)
	}
	return faculties, nil
}

// FindFacultyByID loads one faculty.
func (r *FacultyRepository) FindFacultyByID(ctx context.Context, id string) (*models.Faculty, error) {
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, "SELECT id, name FROM faculties WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// ListDepartmentsByFaculty returns a faculty's departments.
func (r *FacultyRepository) ListDepartmentsByFaculty(ctx context.Context, facultyID string) ([]models.Department, error) {
	query := departmentSelect + " WHERE d.faculty_id = $1 ORDER BY d.name ASC"
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query, facultyID); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// FindDepartmentByID loads one department with its parent faculty joined in.
func (r *FacultyRepository) FindDepartmentByID(ctx context.Context, id string) (*models.Department, error) {
	query := departmentSelect + " WHERE d.id = $1"
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, id); err != nil {
		return nil, err
	}
	return &department, nil
}
