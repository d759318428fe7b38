package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didar-dev/didar-api/internal/models"
	appErrors "github.com/didar-dev/didar-api/pkg/errors"
)

type memFacultyRepo struct {
	faculties   map[string]*models.Faculty
	departments map[string]*models.Department
}

func (m *memFacultyRepo) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	out := make([]models.Faculty, 0, len(m.faculties))
	for _, f := range m.faculties {
		out = append(out, *f)
	}
	return out, nil
}

func (m *memFacultyRepo) FindFacultyByID(ctx context.Context, id string) (*models.Faculty, error) {
	f, ok := m.faculties[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return f, nil
}

func (m *memFacultyRepo) ListDepartmentsByFaculty(ctx context.Context, facultyID string) ([]models.Department, error) {
	var out []models.Department
	for _, d := range m.departments {
		if d.FacultyID == facultyID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memFacultyRepo) FindDepartmentByID(ctx context.Context, id string) (*models.Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d, nil
}

type memDirectoryRepo struct {
	instructors []models.Instructor
}

func (m *memDirectoryRepo) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error) {
	var out []models.Instructor
	for _, i := range m.instructors {
		if filter.DepartmentID != "" && i.DepartmentID != filter.DepartmentID {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (m *memDirectoryRepo) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	for _, i := range m.instructors {
		if i.ID == id {
			clone := i
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func newFacultyServiceForTest() *FacultyService {
	faculties := &memFacultyRepo{
		faculties: map[string]*models.Faculty{
			"faculty-1": {ID: "faculty-1", Name: "Engineering"},
		},
		departments: map[string]*models.Department{
			"dept-1": {ID: "dept-1", Name: "Computer Engineering", FacultyID: "faculty-1"},
			"dept-2": {ID: "dept-2", Name: "Civil Engineering", FacultyID: "faculty-1"},
		},
	}
	directory := &memDirectoryRepo{instructors: []models.Instructor{
		{ID: "instructor-1", UserID: "user-1", DepartmentID: "dept-1"},
		{ID: "instructor-2", UserID: "user-2", DepartmentID: "dept-2"},
	}}
	return NewFacultyService(faculties, directory, nil)
}

func TestGetFacultyWithDepartments(t *testing.T) {
	svc := newFacultyServiceForTest()

	faculty, departments, err := svc.GetFaculty(context.Background(), "faculty-1")
	require.NoError(t, err)
	assert.Equal(t, "Engineering", faculty.Name)
	assert.Len(t, departments, 2)

	_, _, err = svc.GetFaculty(context.Background(), "faculty-404")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrFacultyNotExists))
}

func TestGetDepartmentNotFound(t *testing.T) {
	svc := newFacultyServiceForTest()

	detail, err := svc.GetDepartment(context.Background(), "dept-1")
	require.NoError(t, err)
	assert.Equal(t, "Computer Engineering", detail.Name)

	_, err = svc.GetDepartment(context.Background(), "dept-404")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDepartmentNotExists))
}

func TestListInstructorsFilterValidation(t *testing.T) {
	svc := newFacultyServiceForTest()

	instructors, err := svc.ListInstructors(context.Background(), models.InstructorFilter{})
	require.NoError(t, err)
	assert.Len(t, instructors, 2)

	instructors, err = svc.ListInstructors(context.Background(), models.InstructorFilter{DepartmentID: "dept-1"})
	require.NoError(t, err)
	require.Len(t, instructors, 1)
	assert.Equal(t, "instructor-1", instructors[0].ID)

	// An unknown filter target is an error, not an empty result.
	_, err = svc.ListInstructors(context.Background(), models.InstructorFilter{DepartmentID: "dept-404"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDepartmentNotExists))

	_, err = svc.ListInstructors(context.Background(), models.InstructorFilter{FacultyID: "faculty-404"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrFacultyNotExists))
}

func TestGetInstructorNotFound(t *testing.T) {
	svc := newFacultyServiceForTest()

	instructor, err := svc.GetInstructor(context.Background(), "instructor-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", instructor.UserID)

	_, err = svc.GetInstructor(context.Background(), "instructor-404")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInstructorNotExists))
}
