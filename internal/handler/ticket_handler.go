package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/didar-dev/didar-api/internal/models"
	"github.com/didar-dev/didar-api/internal/service"
	appErrors "github.com/didar-dev/didar-api/pkg/errors"
	"github.com/didar-dev/didar-api/pkg/response"
)

// TicketHandler serves the support-ticket endpoints for both students and
// instructors.
type TicketHandler struct {
	service *service.TicketService
}

// NewTicketHandler constructs handler.
func NewTicketHandler(svc *service.TicketService) *TicketHandler {
	return &TicketHandler{service: svc}
}

// List godoc
// @Summary List the caller's tickets
// @Tags Tickets
// @Security BearerAuth
// @Produce json
// @Param status query int false "Filter by status (1 pending, 2 answered, 3 closed)"
// @Success 200 {object} response.Envelope
// @Router /tickets [get]
func (h *TicketHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)

	filter, err := ticketFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	var tickets []models.Ticket
	if claims.IsInstructor() {
		tickets, err = h.service.ListForInstructor(ctx, claims.InstructorID, filter)
	} else {
		tickets, err = h.service.ListForUser(ctx, claims.UserID, filter)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tickets)
}

// Get godoc
// @Summary Get a ticket with its message thread
// @Tags Tickets
// @Security BearerAuth
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.Envelope
// @Router /tickets/{id} [get]
func (h *TicketHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)

	ctx := c.Request.Context()
	var detail *models.TicketDetail
	var err error
	if claims.IsInstructor() {
		detail, err = h.service.GetForInstructor(ctx, c.Param("id"), claims.InstructorID)
	} else {
		detail, err = h.service.GetForUser(ctx, c.Param("id"), claims.UserID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Create godoc
// @Summary Open a ticket
// @Tags Tickets
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body service.CreateTicketRequest true "Ticket"
// @Success 201 {object} response.Envelope
// @Router /tickets [post]
func (h *TicketHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest))
		return
	}

	ticket, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ticket)
}

// AddMessage godoc
// @Summary Append a message to a ticket
// @Tags Tickets
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Ticket ID"
// @Param payload body service.TicketMessageRequest true "Message"
// @Success 200 {object} response.Envelope
// @Router /tickets/{id}/messages [post]
func (h *TicketHandler) AddMessage(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.TicketMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest))
		return
	}

	ctx := c.Request.Context()
	var detail *models.TicketDetail
	var err error
	if claims.IsInstructor() {
		detail, err = h.service.AddInstructorMessage(ctx, c.Param("id"), claims.InstructorID, req)
	} else {
		detail, err = h.service.AddUserMessage(ctx, c.Param("id"), claims.UserID, req)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Close godoc
// @Summary Close a ticket
// @Tags Tickets
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Success 204
// @Router /tickets/{id}/close [post]
func (h *TicketHandler) Close(c *gin.Context) {
	claims := claimsFromContext(c)

	ctx := c.Request.Context()
	var err error
	if claims.IsInstructor() {
		err = h.service.CloseForInstructor(ctx, c.Param("id"), claims.InstructorID)
	} else {
		err = h.service.CloseForUser(ctx, c.Param("id"), claims.UserID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func ticketFilter(c *gin.Context) (models.TicketFilter, error) {
	var filter models.TicketFilter
	raw := c.Query("status")
	if raw == "" {
		return filter, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return filter, appErrors.WithParams(appErrors.ErrBadRequest, map[string]interface{}{"status": "must be an integer"})
	}
	status := models.TicketStatus(value)
	if !status.Valid() {
		return filter, appErrors.WithParams(appErrors.ErrBadRequest, map[string]interface{}{"status": "unknown status"})
	}
	filter.Status = &status
	return filter, nil
}
