package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/didar-dev/didar-api/internal/models"
	"github.com/didar-dev/didar-api/internal/service"
	"github.com/didar-dev/didar-api/pkg/response"
)

// FacultyHandler serves faculty, department and instructor directory
// endpoints.
type FacultyHandler struct {
	service *service.FacultyService
}

// NewFacultyHandler constructs handler.
func NewFacultyHandler(svc *service.FacultyService) *FacultyHandler {
	return &FacultyHandler{service: svc}
}

// ListFaculties godoc
// @Summary List faculties
// @Tags Faculties
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faculties [get]
func (h *FacultyHandler) ListFaculties(c *gin.Context) {
	faculties, err := h.service.ListFaculties(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculties)
}

// GetFaculty godoc
// @Summary Get a faculty with its departments
// @Tags Faculties
// @Security BearerAuth
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /faculties/{id} [get]
func (h *FacultyHandler) GetFaculty(c *gin.Context) {
	faculty, departments, err := h.service.GetFaculty(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"faculty": faculty, "departments": departments})
}

// GetDepartment godoc
// @Summary Get a department
// @Tags Faculties
// @Security BearerAuth
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [get]
func (h *FacultyHandler) GetDepartment(c *gin.Context) {
	department, err := h.service.GetDepartment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, department)
}

// ListInstructors godoc
// @Summary List the instructor directory
// @Tags Instructors
// @Security BearerAuth
// @Produce json
// @Param department_id query string false "Filter by department"
// @Param faculty_id query string false "Filter by faculty"
// @Success 200 {object} response.Envelope
// @Router /instructors [get]
func (h *FacultyHandler) ListInstructors(c *gin.Context) {
	filter := models.InstructorFilter{
		DepartmentID: c.Query("department_id"),
		FacultyID:    c.Query("faculty_id"),
	}

	instructors, err := h.service.ListInstructors(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors)
}

// GetInstructor godoc
// @Summary Get an instructor profile
// @Tags Instructors
// @Security BearerAuth
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id} [get]
func (h *FacultyHandler) GetInstructor(c *gin.Context) {
	instructor, err := h.service.GetInstructor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor)
}
