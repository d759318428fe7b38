package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/didar-dev/didar-api/internal/models"
	appErrors "github.com/didar-dev/didar-api/pkg/errors"
)

type facultyRepository interface {
	ListFaculties(ctx context.Context) ([]models.Faculty, error)
	FindFacultyByID(ctx context.Context, id string) (*models.Faculty, error)
	ListDepartmentsByFaculty(ctx context.Context, facultyID string) ([]models.Department, error)
	FindDepartmentByID(ctx context.Context, id string) (*models.Department, error)
}

type facultyInstructorRepository interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error)
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
}

// FacultyService serves the faculty and department reference data together
// with the public instructor directory.
type FacultyService struct {
	faculties   facultyRepository
	instructors facultyInstructorRepository
	logger      *zap.Logger
}

// NewFacultyService constructs a FacultyService.
func NewFacultyService(faculties facultyRepository, instructors facultyInstructorRepository, logger *zap.Logger) *FacultyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{faculties: faculties, instructors: instructors, logger: logger}
}

// ListFaculties returns every faculty.
func (s *FacultyService) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	faculties, err := s.faculties.ListFaculties(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	return faculties, nil
}

// GetFaculty loads one faculty with its departments.
func (s *FacultyService) GetFaculty(ctx context.Context, id string) (*models.Faculty, []models.Department, error) {
	faculty, err := s.faculties.FindFacultyByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrFacultyNotExists
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	departments, err := s.faculties.ListDepartmentsByFaculty(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	return faculty, departments, nil
}

// GetDepartment loads one department.
func (s *FacultyService) GetDepartment(ctx context.Context, id string) (*models.DepartmentDetail, error) {
	department, err := s.faculties.FindDepartmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrDepartmentNotExists
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	detail := department.Detail()
	return &detail, nil
}

// ListInstructors returns the instructor directory, optionally narrowed to
// a department or faculty. Unknown filter targets surface their own errors
// so clients can tell a bad filter from an empty directory.
func (s *FacultyService) ListInstructors(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error) {
	if filter.DepartmentID != "" {
		if _, err := s.faculties.FindDepartmentByID(ctx, filter.DepartmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrDepartmentNotExists
			}
			return nil, appErrors.Wrap(err, appErrors.ErrServer)
		}
	}
	if filter.FacultyID != "" {
		if _, err := s.faculties.FindFacultyByID(ctx, filter.FacultyID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrFacultyNotExists
			}
			return nil, appErrors.Wrap(err, appErrors.ErrServer)
		}
	}

	instructors, err := s.instructors.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	return instructors, nil
}

// GetInstructor loads one instructor profile.
func (s *FacultyService) GetInstructor(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, err := s.instructors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInstructorNotExists
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	return instructor, nil
}
