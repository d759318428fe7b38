package models

import (
	"strings"
	"time"
)

// Gender is the closed gender enumeration used on user profiles.
type Gender int

const (
	GenderMale   Gender = 1
	GenderFemale Gender = 2
)

// User represents an application user stored in the users table. A user may
// optionally be an instructor; the instructor row is the capability marker.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Email        *string   `db:"email" json:"email,omitempty"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	FirstName    *string   `db:"first_name" json:"first_name,omitempty"`
	LastName     *string   `db:"last_name" json:"last_name,omitempty"`
	Gender       *Gender   `db:"gender" json:"gender,omitempty"`
	FacultyID    *string   `db:"faculty_id" json:"faculty_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the optional name parts.
func (u *User) FullName() string {
	parts := make([]string, 0, 2)
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	return strings.Join(parts, " ")
}

// MaskedPhone hides the middle digits of the phone number for profile
// responses, keeping the trailing three digits visible.
func (u *User) MaskedPhone() *string {
	if u.Phone == nil || *u.Phone == "" {
		return u.Phone
	}
	digits := []rune(*u.Phone)
	if len(digits) < 7 {
		masked := strings.Repeat("*", len(digits))
		return &masked
	}
	for i := len(digits) - 6; i < len(digits)-3; i++ {
		digits[i] = '*'
	}
	masked := string(digits)
	return &masked
}

// Instructor marks a user as teaching staff and carries office metadata.
// FirstName, LastName and DepartmentName are joined in for list responses.
type Instructor struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Bio            *string   `db:"bio" json:"bio,omitempty"`
	RoomPhone      *string   `db:"room_phone" json:"room_phone,omitempty"`
	RoomNumber     *int      `db:"room_number" json:"room_number,omitempty"`
	AvailableNow   bool      `db:"is_available_now" json:"is_available_now"`
	DepartmentID   string    `db:"department_id" json:"department_id"`
	FirstName      *string   `db:"first_name" json:"first_name,omitempty"`
	LastName       *string   `db:"last_name" json:"last_name,omitempty"`
	DepartmentName *string   `db:"department_name" json:"department,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorFilter captures filtering options for listing instructors.
type InstructorFilter struct {
	DepartmentID string
	FacultyID    string
}
