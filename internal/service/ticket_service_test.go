package service

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didar-dev/didar-api/internal/models"
	appErrors "github.com/didar-dev/didar-api/pkg/errors"
)

type memTicketRepo struct {
	tickets  map[string]*models.Ticket
	messages map[string][]models.TicketMessage
	nextID   int
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]*models.Ticket), messages: make(map[string][]models.TicketMessage)}
}

func (m *memTicketRepo) ListByUser(ctx context.Context, userID string, filter models.TicketFilter) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range m.tickets {
		if t.UserID != userID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *memTicketRepo) ListByInstructor(ctx context.Context, instructorID string, filter models.TicketFilter) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range m.tickets {
		if t.InstructorID == nil || *t.InstructorID != instructorID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *memTicketRepo) FindForUser(ctx context.Context, id, userID string) (*models.Ticket, error) {
	t, ok := m.tickets[id]
	if !ok || t.UserID != userID {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (m *memTicketRepo) FindForInstructor(ctx context.Context, id, instructorID string) (*models.Ticket, error) {
	t, ok := m.tickets[id]
	if !ok || t.InstructorID == nil || *t.InstructorID != instructorID {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (m *memTicketRepo) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	for _, t := range m.tickets {
		if t.TicketNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTicketRepo) Create(ctx context.Context, ticket *models.Ticket, message *models.TicketMessage) error {
	m.nextID++
	ticket.ID = "ticket-" + string(rune('0'+m.nextID))
	clone := *ticket
	m.tickets[ticket.ID] = &clone
	message.TicketID = ticket.ID
	m.messages[ticket.ID] = append(m.messages[ticket.ID], *message)
	return nil
}

func (m *memTicketRepo) AddMessage(ctx context.Context, message *models.TicketMessage, newStatus models.TicketStatus) error {
	m.messages[message.TicketID] = append(m.messages[message.TicketID], *message)
	m.tickets[message.TicketID].Status = newStatus
	return nil
}

func (m *memTicketRepo) UpdateStatus(ctx context.Context, id string, status models.TicketStatus) error {
	m.tickets[id].Status = status
	return nil
}

func (m *memTicketRepo) ListMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error) {
	return m.messages[ticketID], nil
}

func (m *memTicketRepo) CountPending(ctx context.Context) (int, error) {
	count := 0
	for _, t := range m.tickets {
		if t.Status == models.TicketPending {
			count++
		}
	}
	return count, nil
}

func newTicketServiceForTest(repo *memTicketRepo) *TicketService {
	instructors := &ticketInstructorFinderMock{known: map[string]*models.Instructor{
		"instructor-1": {ID: "instructor-1", UserID: "user-instructor-1"},
	}}
	return NewTicketService(repo, instructors, nil, nil, nil)
}

type ticketInstructorFinderMock struct {
	known map[string]*models.Instructor
}

func (m *ticketInstructorFinderMock) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, ok := m.known[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return instructor, nil
}

func (m *ticketInstructorFinderMock) FindByUserID(ctx context.Context, userID string) (*models.Instructor, error) {
	for _, instructor := range m.known {
		if instructor.UserID == userID {
			return instructor, nil
		}
	}
	return nil, sql.ErrNoRows
}

func openTicket(t *testing.T, svc *TicketService) *models.Ticket {
	t.Helper()
	instructorID := "instructor-1"
	ticket, err := svc.Create(context.Background(), "student-1", CreateTicketRequest{
		Title:        "Missing grade",
		Message:      "My midterm grade is not listed.",
		InstructorID: &instructorID,
	})
	require.NoError(t, err)
	return ticket
}

func TestTicketCreateStartsPendingWithNumber(t *testing.T) {
	repo := newMemTicketRepo()
	svc := newTicketServiceForTest(repo)

	ticket := openTicket(t, svc)
	assert.Equal(t, models.TicketPending, ticket.Status)
	assert.Regexp(t, regexp.MustCompile(`^#\d{8}$`), ticket.TicketNumber)

	messages := repo.messages[ticket.ID]
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsStudent)
}

func TestTicketCreateRejectsUnknownInstructor(t *testing.T) {
	repo := newMemTicketRepo()
	svc := newTicketServiceForTest(repo)

	ghost := "instructor-404"
	_, err := svc.Create(context.Background(), "student-1", CreateTicketRequest{
		Title:        "Question",
		Message:      "Hello",
		InstructorID: &ghost,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInstructorNotExists))
}

func TestTicketStatusMachine(t *testing.T) {
	repo := newMemTicketRepo()
	svc := newTicketServiceForTest(repo)
	ctx := context.Background()

	ticket := openTicket(t, svc)

	// Instructor answer moves the ticket to ANSWERED.
	detail, err := svc.AddInstructorMessage(ctx, ticket.ID, "instructor-1", TicketMessageRequest{Message: "Check again now."})
	require.NoError(t, err)
	assert.Equal(t, models.TicketAnswered, detail.Status)

	// Student follow-up reopens it.
	detail, err = svc.AddUserMessage(ctx, ticket.ID, "student-1", TicketMessageRequest{Message: "Still missing."})
	require.NoError(t, err)
	assert.Equal(t, models.TicketPending, detail.Status)
	assert.Len(t, detail.Messages, 3)

	// CLOSED is terminal for both sides.
	require.NoError(t, svc.CloseForUser(ctx, ticket.ID, "student-1"))
	assert.Equal(t, models.TicketClosed, repo.tickets[ticket.ID].Status)

	_, err = svc.AddUserMessage(ctx, ticket.ID, "student-1", TicketMessageRequest{Message: "One more thing"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotAcceptable))

	_, err = svc.AddInstructorMessage(ctx, ticket.ID, "instructor-1", TicketMessageRequest{Message: "Too late"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotAcceptable))

	// Closing again is a no-op.
	require.NoError(t, svc.CloseForUser(ctx, ticket.ID, "student-1"))
}

func TestTicketOwnershipIsolation(t *testing.T) {
	repo := newMemTicketRepo()
	svc := newTicketServiceForTest(repo)
	ctx := context.Background()

	ticket := openTicket(t, svc)

	_, err := svc.GetForUser(ctx, ticket.ID, "student-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTicketNotFound))

	_, err = svc.GetForInstructor(ctx, ticket.ID, "instructor-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTicketNotFound))

	err = svc.CloseForUser(ctx, ticket.ID, "student-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTicketNotFound))
}

func TestTicketCloseByAssignedInstructor(t *testing.T) {
	repo := newMemTicketRepo()
	svc := newTicketServiceForTest(repo)
	ctx := context.Background()

	ticket := openTicket(t, svc)

	// Only the assigned instructor may close; others see no ticket at all.
	err := svc.CloseForInstructor(ctx, ticket.ID, "instructor-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTicketNotFound))

	require.NoError(t, svc.CloseForInstructor(ctx, ticket.ID, "instructor-1"))
	assert.Equal(t, models.TicketClosed, repo.tickets[ticket.ID].Status)

	// Closing again is a no-op.
	require.NoError(t, svc.CloseForInstructor(ctx, ticket.ID, "instructor-1"))
}

func TestTicketPendingGaugeTracksTransitions(t *testing.T) {
	repo := newMemTicketRepo()
	instructors := &ticketInstructorFinderMock{known: map[string]*models.Instructor{
		"instructor-1": {ID: "instructor-1", UserID: "user-instructor-1"},
	}}
	metrics := NewMetricsService()
	svc := NewTicketService(repo, instructors, metrics, nil, nil)
	ctx := context.Background()

	scrape := func() string {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		metrics.Handler().ServeHTTP(rec, req)
		return rec.Body.String()
	}

	ticket := openTicket(t, svc)
	assert.Contains(t, scrape(), "tickets_pending 1")

	_, err := svc.AddInstructorMessage(ctx, ticket.ID, "instructor-1", TicketMessageRequest{Message: "Answered."})
	require.NoError(t, err)
	assert.Contains(t, scrape(), "tickets_pending 0")

	_, err = svc.AddUserMessage(ctx, ticket.ID, "student-1", TicketMessageRequest{Message: "Reopening."})
	require.NoError(t, err)
	assert.Contains(t, scrape(), "tickets_pending 1")

	require.NoError(t, svc.CloseForUser(ctx, ticket.ID, "student-1"))
	assert.Contains(t, scrape(), "tickets_pending 0")
}

func TestTicketListFilterByStatus(t *testing.T) {
	repo := newMemTicketRepo()
	svc := newTicketServiceForTest(repo)
	ctx := context.Background()

	first := openTicket(t, svc)
	openTicket(t, svc)

	_, err := svc.AddInstructorMessage(ctx, first.ID, "instructor-1", TicketMessageRequest{Message: "Done."})
	require.NoError(t, err)

	pending := models.TicketPending
	tickets, err := svc.ListForUser(ctx, "student-1", models.TicketFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.NotEqual(t, first.ID, tickets[0].ID)

	all, err := svc.ListForUser(ctx, "student-1", models.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
