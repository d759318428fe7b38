package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/didar-dev/didar-api/internal/service"
	appErrors "github.com/didar-dev/didar-api/pkg/errors"
	"github.com/didar-dev/didar-api/pkg/response"
)

// ScheduleHandler manages weekly schedule endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
	export  *service.ExportService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService, export *service.ExportService) *ScheduleHandler {
	return &ScheduleHandler{service: svc, export: export}
}

// ListOwn godoc
// @Summary List the caller's schedule slots
// @Tags Schedules
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /instructor/schedules [get]
func (h *ScheduleHandler) ListOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	slots, err := h.service.ListOwn(c.Request.Context(), claims.InstructorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots)
}

// GetOwn godoc
// @Summary Get one of the caller's slots by code
// @Tags Schedules
// @Security BearerAuth
// @Produce json
// @Param code path string true "Slot code"
// @Success 200 {object} response.Envelope
// @Router /instructor/schedules/{code} [get]
func (h *ScheduleHandler) GetOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	slot, err := h.service.GetOwn(c.Request.Context(), c.Param("code"), claims.InstructorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot)
}

// Create godoc
// @Summary Create a schedule slot
// @Tags Schedules
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequest true "Slot"
// @Success 201 {object} response.Envelope
// @Failure 406 {object} response.Envelope
// @Router /instructor/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest))
		return
	}

	slot, err := h.service.Create(c.Request.Context(), claims.InstructorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Update a schedule slot
// @Tags Schedules
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param code path string true "Slot code"
// @Param payload body service.UpdateScheduleRequest true "Fields to change"
// @Success 204
// @Failure 406 {object} response.Envelope
// @Router /instructor/schedules/{code} [patch]
func (h *ScheduleHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest))
		return
	}

	if err := h.service.Update(c.Request.Context(), c.Param("code"), claims.InstructorID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a schedule slot
// @Tags Schedules
// @Security BearerAuth
// @Param code path string true "Slot code"
// @Success 204
// @Router /instructor/schedules/{code} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), c.Param("code"), claims.InstructorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Download the caller's schedule as PDF or CSV
// @Tags Schedules
// @Security BearerAuth
// @Produce application/pdf,text/csv
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Router /instructor/schedules/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)

	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatPDF)))
	file, err := h.export.ExportSchedules(c.Request.Context(), claims.InstructorID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// ListByInstructor godoc
// @Summary List an instructor's schedule
// @Tags Schedules
// @Security BearerAuth
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/schedules [get]
func (h *ScheduleHandler) ListByInstructor(c *gin.Context) {
	slots, err := h.service.ListByInstructor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots)
}
