package models

import (
	"fmt"
	"time"
)

// DayOfWeek enumerates the six business days of the academic week. The week
// starts on Saturday; there is no day seven in this domain.
type DayOfWeek int

const (
	DaySaturday  DayOfWeek = 1
	DaySunday    DayOfWeek = 2
	DayMonday    DayOfWeek = 3
	DayTuesday   DayOfWeek = 4
	DayWednesday DayOfWeek = 5
	DayThursday  DayOfWeek = 6
)

var dayNames = map[DayOfWeek]string{
	DaySaturday:  "Saturday",
	DaySunday:    "Sunday",
	DayMonday:    "Monday",
	DayTuesday:   "Tuesday",
	DayWednesday: "Wednesday",
	DayThursday:  "Thursday",
}

// Valid reports whether the value is inside the closed set.
func (d DayOfWeek) Valid() bool {
	_, ok := dayNames[d]
	return ok
}

// String returns the display name for the day.
func (d DayOfWeek) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DayOfWeek(%d)", int(d))
}

// ScheduleSlot is one recurring weekly commitment owned by an instructor.
// Start and end times are times of day formatted HH:MM:SS; the fixed-width
// format makes lexicographic comparison equivalent to temporal comparison.
type ScheduleSlot struct {
	ID           string    `db:"id" json:"-"`
	Code         string    `db:"code" json:"code"`
	Title        string    `db:"title" json:"title"`
	InstructorID string    `db:"instructor_id" json:"-"`
	DayOfWeek    DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// PublicScheduleSlot is the sanitized shape exposed to non-owners.
type PublicScheduleSlot struct {
	Title     string    `json:"title"`
	DayOfWeek DayOfWeek `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

// Public strips the owner-only fields from a slot.
func (s ScheduleSlot) Public() PublicScheduleSlot {
	return PublicScheduleSlot{
		Title:     s.Title,
		DayOfWeek: s.DayOfWeek,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
}

// Intervals overlap iff aStart < bEnd && bStart < aEnd; both intervals are
// half-open, so touching boundaries do not conflict.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && bStart < aEnd
}

// Overlaps reports whether the slot's interval intersects the candidate one.
// Only meaningful for slots sharing instructor and day.
func (s ScheduleSlot) Overlaps(start, end string) bool {
	return IntervalsOverlap(s.StartTime, s.EndTime, start, end)
}

// SlotOverlapError is returned when a slot collides with an existing one for
// the same instructor and day.
type SlotOverlapError struct {
	InstructorID string    `json:"-"`
	DayOfWeek    DayOfWeek `json:"day_of_week"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
}

// Error implements the error interface.
func (e *SlotOverlapError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("schedule overlaps an existing slot on %s between %s and %s",
		e.DayOfWeek, e.StartTime, e.EndTime)
}
