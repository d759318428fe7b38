package models

import "time"

// TicketStatus is the support-ticket state machine:
// PENDING -> ANSWERED -> CLOSED. A student message on an ANSWERED ticket
// moves it back to PENDING; CLOSED is terminal.
type TicketStatus int

const (
	TicketPending  TicketStatus = 1
	TicketAnswered TicketStatus = 2
	TicketClosed   TicketStatus = 3
)

// Valid reports whether the status is inside the closed set.
func (s TicketStatus) Valid() bool {
	return s >= TicketPending && s <= TicketClosed
}

// Ticket is a support thread opened by a student toward an instructor.
type Ticket struct {
	ID           string       `db:"id" json:"id"`
	TicketNumber string       `db:"ticket_number" json:"ticket_number"`
	UserID       string       `db:"user_id" json:"-"`
	InstructorID *string      `db:"instructor_id" json:"instructor_id,omitempty"`
	Title        string       `db:"title" json:"title"`
	Status       TicketStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// TicketMessage is one entry in a ticket thread.
type TicketMessage struct {
	ID        string    `db:"id" json:"id"`
	TicketID  string    `db:"ticket_id" json:"-"`
	UserID    string    `db:"user_id" json:"-"`
	Username  *string   `db:"username" json:"username,omitempty"`
	Message   string    `db:"message" json:"message"`
	IsStudent bool      `db:"is_student" json:"is_student"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TicketDetail is a ticket with its full message thread.
type TicketDetail struct {
	Ticket
	Messages []TicketMessage `json:"messages"`
}

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	Status *TicketStatus
}
