package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/didar-dev/didar-api/internal/models"
)

const ticketColumns = "id, ticket_number, user_id, instructor_id, title, status, created_at, updated_at"

// TicketRepository provides persistence for support tickets and their
// message threads.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// ListByUser returns a student's tickets, newest first.
func (r *TicketRepository) ListByUser(ctx context.Context, userID string, filter models.TicketFilter) ([]models.Ticket, error) {
	return r.list(ctx, "user_id", userID, filter)
}

// ListByInstructor returns an instructor's assigned tickets, newest first.
func (r *TicketRepository) ListByInstructor(ctx context.Context, instructorID string, filter models.TicketFilter) ([]models.Ticket, error) {
	return r.list(ctx, "instructor_id", instructorID, filter)
}

func (r *TicketRepository) list(ctx context.Context, ownerColumn, ownerID string, filter models.TicketFilter) ([]models.Ticket, error) {
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE %s = $1", ticketColumns, ownerColumn)
	args := []interface{}{ownerID}
	if filter.Status != nil {
		query += " AND status = $2"
		args = append(args, int(*filter.Status))
	}
	query += " ORDER BY created_at DESC"

	var tickets []models.Ticket
	if err := r.db.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// FindForUser loads a ticket scoped to its student owner.
func (r *TicketRepository) FindForUser(ctx context.Context, id, userID string) (*models.Ticket, error) {
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE id = $1 AND user_id = $2", ticketColumns)
	var ticket models.Ticket
	if err := r.db.GetContext(ctx, &ticket, query, id, userID); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FindForInstructor loads a ticket scoped to its assigned instructor.
func (r *TicketRepository) FindForInstructor(ctx context.Context, id, instructorID string) (*models.Ticket, error) {
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE id = $1 AND instructor_id = $2", ticketColumns)
	var ticket models.Ticket
	if err := r.db.GetContext(ctx, &ticket, query, id, instructorID); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// TicketNumberExists reports whether a ticket number is already in use.
func (r *TicketRepository) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM tickets WHERE ticket_number = $1)", number); err != nil {
		return false, fmt.Errorf("check ticket number: %w", err)
	}
	return exists, nil
}

// Create stores a ticket together with its opening message in one
// transaction.
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket, message *models.TicketMessage) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ticket tx: %w", err)
	}

	const insertTicket = `INSERT INTO tickets (id, ticket_number, user_id, instructor_id, title, status, created_at, updated_at)
		VALUES (:id, :ticket_number, :user_id, :instructor_id, :title, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertTicket, ticket); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create ticket: %w", err)
	}

	message.TicketID = ticket.ID
	if err := insertMessage(ctx, tx, message); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ticket tx: %w", err)
	}
	return nil
}

// AddMessage appends a message and moves the ticket to the given status in
// one transaction.
func (r *TicketRepository) AddMessage(ctx context.Context, message *models.TicketMessage, newStatus models.TicketStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin message tx: %w", err)
	}

	if err := insertMessage(ctx, tx, message); err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tickets SET status = $2, updated_at = NOW() WHERE id = $1`, message.TicketID, int(newStatus)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update ticket status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message tx: %w", err)
	}
	return nil
}

// UpdateStatus moves a ticket to the given status.
func (r *TicketRepository) UpdateStatus(ctx context.Context, id string, status models.TicketStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE tickets SET status = $2, updated_at = NOW() WHERE id = $1`, id, int(status)); err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}
	return nil
}

// CountPending returns the number of tickets awaiting an instructor answer.
func (r *TicketRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM tickets WHERE status = $1", int(models.TicketPending)); err != nil {
		return 0, fmt.Errorf("count pending tickets: %w", err)
	}
	return count, nil
}

// ListMessages returns a ticket's thread in chronological order with author
// usernames joined in.
func (r *TicketRepository) ListMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error) {
	const query = `SELECT m.id, m.ticket_id, m.user_id, u.username, m.message, m.is_student, m.created_at
		FROM ticket_messages m JOIN users u ON u.id = m.user_id
		WHERE m.ticket_id = $1 ORDER BY m.created_at ASC`
	var messages []models.TicketMessage
	if err := r.db.SelectContext(ctx, &messages, query, ticketID); err != nil {
		return nil, fmt.Errorf("list ticket messages: %w", err)
	}
	return messages, nil
}

func insertMessage(ctx context.Context, tx *sqlx.Tx, message *models.TicketMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO ticket_messages (id, ticket_id, user_id, message, is_student, created_at)
		VALUES (:id, :ticket_id, :user_id, :message, :is_student, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("insert ticket message: %w", err)
	}
	return nil
}
