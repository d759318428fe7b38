package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/didar-dev/didar-api/internal/service"
	"github.com/didar-dev/didar-api/pkg/response"
)

// CalendarHandler exposes the caller's Google Calendar events.
type CalendarHandler struct {
	service *service.CalendarService
}

// NewCalendarHandler constructs handler.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// CurrentWeek godoc
// @Summary List the caller's calendar events for the current teaching week
// @Tags Calendar
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 406 {object} response.Envelope
// @Router /events/current-week [get]
func (h *CalendarHandler) CurrentWeek(c *gin.Context) {
	claims := claimsFromContext(c)
	events, err := h.service.CurrentWeekEvents(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events)
}
