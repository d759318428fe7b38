package models

import "time"

// GoogleCredential is a stored OAuth2 grant for a user's Google account.
type GoogleCredential struct {
	ID           string    `db:"id" json:"-"`
	UserID       string    `db:"user_id" json:"-"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	TokenExpiry  time.Time `db:"token_expiry" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// CalendarEvent is one event returned by the calendar provider.
type CalendarEvent struct {
	ID       string            `json:"id"`
	Summary  string            `json:"summary"`
	Status   string            `json:"status,omitempty"`
	HTMLLink string            `json:"htmlLink,omitempty"`
	Start    CalendarEventTime `json:"start"`
	End      CalendarEventTime `json:"end"`
}

// CalendarEventTime carries either a dateTime or an all-day date.
type CalendarEventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}
