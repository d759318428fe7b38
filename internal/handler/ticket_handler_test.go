package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/didar-dev/didar-api/internal/middleware"
	"github.com/didar-dev/didar-api/internal/models"
	"github.com/didar-dev/didar-api/internal/service"
)

type fakeTicketRepo struct {
	tickets  map[string]*models.Ticket
	messages map[string][]models.TicketMessage
	nextID   int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:  make(map[string]*models.Ticket),
		messages: make(map[string][]models.TicketMessage),
	}
}

func (f *fakeTicketRepo) ListByUser(ctx context.Context, userID string, filter models.TicketFilter) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range f.tickets {
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

func (f *fakeTicketRepo) ListByInstructor(ctx context.Context, instructorID string, filter models.TicketFilter) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range f.tickets {
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

func (f *fakeTicketRepo) FindForUser(ctx context.Context, id, userID string) (*models.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok || t.UserID != userID {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTicketRepo) FindForInstructor(ctx context.Context, id, instructorID string) (*models.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok || t.InstructorID == nil || *t.InstructorID != instructorID {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTicketRepo) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	for _, t := range f.tickets {
		if t.TicketNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *models.Ticket, message *models.TicketMessage) error {
	f.nextID++
	ticket.ID = fmt.Sprintf("ticket-%d", f.nextID)
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	message.TicketID = ticket.ID
	f.messages[ticket.ID] = append(f.messages[ticket.ID], *message)
	return nil
}

func (f *fakeTicketRepo) AddMessage(ctx context.Context, message *models.TicketMessage, newStatus models.TicketStatus) error {
	f.messages[message.TicketID] = append(f.messages[message.TicketID], *message)
	f.tickets[message.TicketID].Status = newStatus
	return nil
}

func (f *fakeTicketRepo) UpdateStatus(ctx context.Context, id string, status models.TicketStatus) error {
	f.tickets[id].Status = status
	return nil
}

func (f *fakeTicketRepo) ListMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error) {
	return f.messages[ticketID], nil
}

func (f *fakeTicketRepo) CountPending(ctx context.Context) (int, error) {
	count := 0
	for _, t := range f.tickets {
		if t.Status == models.TicketPending {
			count++
		}
	}
	return count, nil
}

type fakeTicketInstructors struct {
	known map[string]bool
}

func (f *fakeTicketInstructors) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	if !f.known[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Instructor{ID: id, UserID: "user-" + id}, nil
}

func (f *fakeTicketInstructors) FindByUserID(ctx context.Context, userID string) (*models.Instructor, error) {
	for id := range f.known {
		if "user-"+id == userID {
			return &models.Instructor{ID: id, UserID: userID}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func buildTicketRouter(repo *fakeTicketRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if instructorID := c.GetHeader("X-Test-Instructor"); instructorID != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID:       "user-" + instructorID,
				Username:     instructorID,
				InstructorID: instructorID,
			})
		} else if userID := c.GetHeader("X-Test-User"); userID != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID:   userID,
				Username: userID,
			})
		}
		c.Next()
	})

	finder := &fakeTicketInstructors{known: map[string]bool{"instructor-1": true}}
	ticketHandler := NewTicketHandler(service.NewTicketService(repo, finder, nil, nil, nil))

	router.GET("/tickets", ticketHandler.List)
	router.POST("/tickets", ticketHandler.Create)
	router.GET("/tickets/:id", ticketHandler.Get)
	router.POST("/tickets/:id/messages", ticketHandler.AddMessage)
	router.POST("/tickets/:id/close", ticketHandler.Close)

	return router
}

func asUser(id string) map[string]string {
	return map[string]string{"X-Test-User": id}
}

func TestTicketConversationFlow(t *testing.T) {
	repo := newFakeTicketRepo()
	router := buildTicketRouter(repo)

	payload := `{"title":"Grade question","message":"Could you revisit my midterm grade?","instructor_id":"instructor-1"}`
	resp := doJSON(router, http.MethodPost, "/tickets", payload, asUser("student-1"))
	require.Equal(t, http.StatusCreated, resp.Code)

	var created struct {
		Data models.Ticket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)
	assert.Regexp(t, `^#\d{8}$`, created.Data.TicketNumber)
	assert.Equal(t, models.TicketPending, created.Data.Status)

	// The instructor sees the pending ticket in their list.
	resp = doJSON(router, http.MethodGet, "/tickets?status=1", "", asInstructor("instructor-1"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), created.Data.TicketNumber)

	// Answering moves the ticket to ANSWERED.
	answer := `{"message":"Sure, come by my office on Sunday."}`
	resp = doJSON(router, http.MethodPost, "/tickets/"+created.Data.ID+"/messages", answer, asInstructor("instructor-1"))
	require.Equal(t, http.StatusOK, resp.Code)

	var answered struct {
		Data models.TicketDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &answered))
	assert.Equal(t, models.TicketAnswered, answered.Data.Status)
	assert.Len(t, answered.Data.Messages, 2)

	// A follow-up from the student reopens the ticket.
	followUp := `{"message":"Thanks, see you then."}`
	resp = doJSON(router, http.MethodPost, "/tickets/"+created.Data.ID+"/messages", followUp, asUser("student-1"))
	require.Equal(t, http.StatusOK, resp.Code)

	var reopened struct {
		Data models.TicketDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reopened))
	assert.Equal(t, models.TicketPending, reopened.Data.Status)

	// Closing is a 204 and further messages bounce with 406.
	resp = doJSON(router, http.MethodPost, "/tickets/"+created.Data.ID+"/close", "", asUser("student-1"))
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = doJSON(router, http.MethodPost, "/tickets/"+created.Data.ID+"/messages", followUp, asUser("student-1"))
	require.Equal(t, http.StatusNotAcceptable, resp.Code)

	var rejected struct {
		Error struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rejected))
	assert.Equal(t, 1006, rejected.Error.Code)

	// Closing again stays a no-op.
	resp = doJSON(router, http.MethodPost, "/tickets/"+created.Data.ID+"/close", "", asUser("student-1"))
	require.Equal(t, http.StatusNoContent, resp.Code)
}

func TestTicketUnknownInstructorRejected(t *testing.T) {
	router := buildTicketRouter(newFakeTicketRepo())

	payload := `{"title":"Hello","message":"Anyone there?","instructor_id":"instructor-404"}`
	resp := doJSON(router, http.MethodPost, "/tickets", payload, asUser("student-1"))
	require.Equal(t, http.StatusNotFound, resp.Code)

	var body struct {
		Error struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 1105, body.Error.Code)
}

func TestTicketInstructorCanCloseAssigned(t *testing.T) {
	repo := newFakeTicketRepo()
	router := buildTicketRouter(repo)

	payload := `{"title":"Resolved offline","message":"We talked after class.","instructor_id":"instructor-1"}`
	resp := doJSON(router, http.MethodPost, "/tickets", payload, asUser("student-1"))
	require.Equal(t, http.StatusCreated, resp.Code)

	var created struct {
		Data models.Ticket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	// An instructor the ticket is not assigned to does not see it.
	resp = doJSON(router, http.MethodPost, "/tickets/"+created.Data.ID+"/close", "", asInstructor("instructor-2"))
	require.Equal(t, http.StatusNotFound, resp.Code)

	// The assigned instructor closes it.
	resp = doJSON(router, http.MethodPost, "/tickets/"+created.Data.ID+"/close", "", asInstructor("instructor-1"))
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, resp.Body.String())
	assert.Equal(t, models.TicketClosed, repo.tickets[created.Data.ID].Status)

	// The student still sees the closed thread, and re-closing stays a no-op.
	resp = doJSON(router, http.MethodGet, "/tickets/"+created.Data.ID, "", asUser("student-1"))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(router, http.MethodPost, "/tickets/"+created.Data.ID+"/close", "", asInstructor("instructor-1"))
	require.Equal(t, http.StatusNoContent, resp.Code)
}

func TestTicketOwnershipIsolation(t *testing.T) {
	repo := newFakeTicketRepo()
	router := buildTicketRouter(repo)

	payload := `{"title":"Private","message":"For my eyes only","instructor_id":"instructor-1"}`
	resp := doJSON(router, http.MethodPost, "/tickets", payload, asUser("student-1"))
	require.Equal(t, http.StatusCreated, resp.Code)

	var created struct {
		Data models.Ticket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	// Another student cannot read or close someone else's ticket.
	resp = doJSON(router, http.MethodGet, "/tickets/"+created.Data.ID, "", asUser("student-2"))
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = doJSON(router, http.MethodPost, "/tickets/"+created.Data.ID+"/close", "", asUser("student-2"))
	require.Equal(t, http.StatusNotFound, resp.Code)

	var body struct {
		Error struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 4001, body.Error.Code)
}

func TestTicketStatusFilterValidation(t *testing.T) {
	router := buildTicketRouter(newFakeTicketRepo())

	resp := doJSON(router, http.MethodGet, "/tickets?status=9", "", asUser("student-1"))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(router, http.MethodGet, "/tickets?status=abc", "", asUser("student-1"))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
