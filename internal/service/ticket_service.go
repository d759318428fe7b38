package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/didar-dev/didar-api/internal/models"
	appErrors "github.com/didar-dev/didar-api/pkg/errors"
)

const ticketNumberMaxAttempts = 50

type ticketRepository interface {
	ListByUser(ctx context.Context, userID string, filter models.TicketFilter) ([]models.Ticket, error)
	ListByInstructor(ctx context.Context, instructorID string, filter models.TicketFilter) ([]models.Ticket, error)
	FindForUser(ctx context.Context, id, userID string) (*models.Ticket, error)
	FindForInstructor(ctx context.Context, id, instructorID string) (*models.Ticket, error)
	TicketNumberExists(ctx context.Context, number string) (bool, error)
	Create(ctx context.Context, ticket *models.Ticket, message *models.TicketMessage) error
	AddMessage(ctx context.Context, message *models.TicketMessage, newStatus models.TicketStatus) error
	UpdateStatus(ctx context.Context, id string, status models.TicketStatus) error
	ListMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error)
	CountPending(ctx context.Context) (int, error)
}

type ticketInstructorFinder interface {
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Instructor, error)
}

// CreateTicketRequest opens a new ticket with its first message.
type CreateTicketRequest struct {
	Title        string  `json:"title" validate:"required,max=255"`
	Message      string  `json:"message" validate:"required"`
	InstructorID *string `json:"instructor_id"`
}

// TicketMessageRequest appends a message to an existing ticket.
type TicketMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// TicketService implements the support-ticket workflows for students and
// instructors.
type TicketService struct {
	repo        ticketRepository
	instructors ticketInstructorFinder
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTicketService constructs a TicketService. metrics may be nil.
func NewTicketService(repo ticketRepository, instructors ticketInstructorFinder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TicketService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{repo: repo, instructors: instructors, metrics: metrics, validator: validate, logger: logger}
}

// ListForUser returns the student's tickets, newest first.
func (s *TicketService) ListForUser(ctx context.Context, userID string, filter models.TicketFilter) ([]models.Ticket, error) {
	tickets, err := s.repo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	return tickets, nil
}

// ListForInstructor returns tickets addressed to the instructor.
func (s *TicketService) ListForInstructor(ctx context.Context, instructorID string, filter models.TicketFilter) ([]models.Ticket, error) {
	tickets, err := s.repo.ListByInstructor(ctx, instructorID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	return tickets, nil
}

// GetForUser loads one of the student's tickets with its thread.
func (s *TicketService) GetForUser(ctx context.Context, id, userID string) (*models.TicketDetail, error) {
	ticket, err := s.repo.FindForUser(ctx, id, userID)
	if err != nil {
		return nil, ticketLookupError(err)
	}
	return s.detail(ctx, ticket)
}

// GetForInstructor loads one of the instructor's tickets with its thread.
func (s *TicketService) GetForInstructor(ctx context.Context, id, instructorID string) (*models.TicketDetail, error) {
	ticket, err := s.repo.FindForInstructor(ctx, id, instructorID)
	if err != nil {
		return nil, ticketLookupError(err)
	}
	return s.detail(ctx, ticket)
}

// Create opens a ticket in PENDING with the student's first message.
func (s *TicketService) Create(ctx context.Context, userID string, req CreateTicketRequest) (*models.Ticket, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest)
	}

	if req.InstructorID != nil {
		if _, err := s.instructors.FindByID(ctx, *req.InstructorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrInstructorNotExists
			}
			return nil, appErrors.Wrap(err, appErrors.ErrServer)
		}
	}

	number, err := s.generateTicketNumber(ctx)
	if err != nil {
		return nil, err
	}

	ticket := &models.Ticket{
		TicketNumber: number,
		UserID:       userID,
		InstructorID: req.InstructorID,
		Title:        req.Title,
		Status:       models.TicketPending,
	}
	message := &models.TicketMessage{
		UserID:    userID,
		Message:   req.Message,
		IsStudent: true,
	}

	if err := s.repo.Create(ctx, ticket, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	s.refreshPendingGauge(ctx)
	return ticket, nil
}

// AddUserMessage appends a student message. The ticket returns to PENDING
// when it was ANSWERED; CLOSED tickets reject new messages.
func (s *TicketService) AddUserMessage(ctx context.Context, id, userID string, req TicketMessageRequest) (*models.TicketDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest)
	}

	ticket, err := s.repo.FindForUser(ctx, id, userID)
	if err != nil {
		return nil, ticketLookupError(err)
	}
	if ticket.Status == models.TicketClosed {
		return nil, appErrors.WithParams(appErrors.ErrNotAcceptable, map[string]interface{}{"status": "ticket is closed"})
	}

	message := &models.TicketMessage{
		TicketID:  ticket.ID,
		UserID:    userID,
		Message:   req.Message,
		IsStudent: true,
	}
	if err := s.repo.AddMessage(ctx, message, models.TicketPending); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	ticket.Status = models.TicketPending
	s.refreshPendingGauge(ctx)
	return s.detail(ctx, ticket)
}

// AddInstructorMessage appends an instructor answer and moves the ticket to
// ANSWERED.
func (s *TicketService) AddInstructorMessage(ctx context.Context, id, instructorID string, req TicketMessageRequest) (*models.TicketDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest)
	}

	instructor, err := s.instructors.FindByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInstructorNotExists
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}

	ticket, err := s.repo.FindForInstructor(ctx, id, instructorID)
	if err != nil {
		return nil, ticketLookupError(err)
	}
	if ticket.Status == models.TicketClosed {
		return nil, appErrors.WithParams(appErrors.ErrNotAcceptable, map[string]interface{}{"status": "ticket is closed"})
	}

	message := &models.TicketMessage{
		TicketID:  ticket.ID,
		UserID:    instructor.UserID,
		Message:   req.Message,
		IsStudent: false,
	}
	if err := s.repo.AddMessage(ctx, message, models.TicketAnswered); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	ticket.Status = models.TicketAnswered
	s.refreshPendingGauge(ctx)
	return s.detail(ctx, ticket)
}

// CloseForUser moves one of the student's tickets to CLOSED. Closing an
// already closed ticket is a no-op.
func (s *TicketService) CloseForUser(ctx context.Context, id, userID string) error {
	ticket, err := s.repo.FindForUser(ctx, id, userID)
	if err != nil {
		return ticketLookupError(err)
	}
	return s.closeTicket(ctx, ticket)
}

// CloseForInstructor moves one of the instructor's assigned tickets to
// CLOSED. Closing an already closed ticket is a no-op.
func (s *TicketService) CloseForInstructor(ctx context.Context, id, instructorID string) error {
	ticket, err := s.repo.FindForInstructor(ctx, id, instructorID)
	if err != nil {
		return ticketLookupError(err)
	}
	return s.closeTicket(ctx, ticket)
}

func (s *TicketService) closeTicket(ctx context.Context, ticket *models.Ticket) error {
	if ticket.Status == models.TicketClosed {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, ticket.ID, models.TicketClosed); err != nil {
		return appErrors.Wrap(err, appErrors.ErrServer)
	}
	s.refreshPendingGauge(ctx)
	return nil
}

// refreshPendingGauge republishes the pending-ticket count after a status
// transition. Failures only log, a stale gauge never fails the request.
func (s *TicketService) refreshPendingGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	count, err := s.repo.CountPending(ctx)
	if err != nil {
		s.logger.Warn("failed to count pending tickets", zap.Error(err))
		return
	}
	s.metrics.SetPendingTickets(count)
}

func (s *TicketService) detail(ctx context.Context, ticket *models.Ticket) (*models.TicketDetail, error) {
	messages, err := s.repo.ListMessages(ctx, ticket.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	return &models.TicketDetail{Ticket: *ticket, Messages: messages}, nil
}

// generateTicketNumber draws numbers like #00459217 until one is free,
// bounded to keep a full number space from spinning forever.
func (s *TicketService) generateTicketNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < ticketNumberMaxAttempts; attempt++ {
		number := fmt.Sprintf("#%08d", rand.Intn(100000000))
		exists, err := s.repo.TicketNumberExists(ctx, number)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrServer)
		}
		if !exists {
			return number, nil
		}
	}
	return "", appErrors.Wrap(fmt.Errorf("ticket number space exhausted after %d attempts", ticketNumberMaxAttempts), appErrors.ErrServer)
}

func ticketLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrTicketNotFound
	}
	return appErrors.Wrap(err, appErrors.ErrServer)
}
