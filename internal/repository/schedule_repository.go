package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/didar-dev/didar-api/internal/models"
)

const scheduleColumns = "id, code, title, instructor_id, day_of_week, start_time, end_time, created_at, updated_at"

// ErrCodeTaken is returned when a slot insert loses the race on the unique
// code index; the caller regenerates and retries.
var ErrCodeTaken = fmt.Errorf("schedule code already taken")

// ScheduleRepository provides persistence for weekly schedule slots.
//
// Mutating operations take a per-(instructor, day) advisory transaction lock
// so the overlap check and the write happen atomically; two concurrent
// writers for the same instructor-day serialise on the lock. The composite
// unique index on (instructor_id, day_of_week, start_time, end_time) remains
// as a backstop against exact duplicates.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListByInstructor returns an instructor's slots ordered by descending day.
func (r *ScheduleRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.ScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_slots WHERE instructor_id = $1 ORDER BY day_of_week DESC, start_time ASC", scheduleColumns)
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, instructorID); err != nil {
		return nil, fmt.Errorf("list schedule slots: %w", err)
	}
	return slots, nil
}

// FindByCode loads a slot by code scoped to its owner. Lookups for codes
// owned by someone else behave exactly like missing codes.
func (r *ScheduleRepository) FindByCode(ctx context.Context, code, instructorID string) (*models.ScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_slots WHERE code = $1 AND instructor_id = $2", scheduleColumns)
	var slot models.ScheduleSlot
	if err := r.db.GetContext(ctx, &slot, query, code, instructorID); err != nil {
		return nil, err
	}
	return &slot, nil
}

// HasOverlap runs the half-open interval intersection predicate against the
// store for one instructor-day, excluding the given slot id when updating.
func (r *ScheduleRepository) HasOverlap(ctx context.Context, instructorID string, day models.DayOfWeek, startTime, endTime, excludeID string) (bool, error) {
	return hasOverlap(ctx, r.db, instructorID, day, startTime, endTime, excludeID)
}

// CodeExists reports whether a schedule code is already in use.
func (r *ScheduleRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM schedule_slots WHERE code = $1)", code); err != nil {
		return false, fmt.Errorf("check schedule code: %w", err)
	}
	return exists, nil
}

// Create inserts a new slot. The overlap check and the insert run in one
// transaction under the instructor-day advisory lock. Returns
// *models.SlotOverlapError on conflict and ErrCodeTaken when the code lost
// a uniqueness race.
func (r *ScheduleRepository) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	return r.withSlotLock(ctx, slot.InstructorID, slot.DayOfWeek, func(tx *sqlx.Tx) error {
		overlap, err := hasOverlap(ctx, tx, slot.InstructorID, slot.DayOfWeek, slot.StartTime, slot.EndTime, "")
		if err != nil {
			return err
		}
		if overlap {
			return &models.SlotOverlapError{
				InstructorID: slot.InstructorID,
				DayOfWeek:    slot.DayOfWeek,
				StartTime:    slot.StartTime,
				EndTime:      slot.EndTime,
			}
		}

		const query = `INSERT INTO schedule_slots (id, code, title, instructor_id, day_of_week, start_time, end_time, created_at, updated_at)
			VALUES (:id, :code, :title, :instructor_id, :day_of_week, :start_time, :end_time, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, slot); err != nil {
			return classifyScheduleInsertErr(err, slot)
		}
		return nil
	})
}

// Update persists a merged slot, re-running the overlap check excluding the
// slot's own id, under the same advisory lock discipline as Create.
func (r *ScheduleRepository) Update(ctx context.Context, slot *models.ScheduleSlot) error {
	slot.UpdatedAt = time.Now().UTC()

	return r.withSlotLock(ctx, slot.InstructorID, slot.DayOfWeek, func(tx *sqlx.Tx) error {
		overlap, err := hasOverlap(ctx, tx, slot.InstructorID, slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.ID)
		if err != nil {
			return err
		}
		if overlap {
			return &models.SlotOverlapError{
				InstructorID: slot.InstructorID,
				DayOfWeek:    slot.DayOfWeek,
				StartTime:    slot.StartTime,
				EndTime:      slot.EndTime,
			}
		}

		const query = `UPDATE schedule_slots SET title = :title, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, query, slot); err != nil {
			return classifyScheduleInsertErr(err, slot)
		}
		return nil
	})
}

// Delete removes a slot by id.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM schedule_slots WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete schedule slot: %w", err)
	}
	return nil
}

// withSlotLock runs fn inside a transaction holding the advisory lock for
// one instructor-day. pg_advisory_xact_lock releases on commit/rollback.
func (r *ScheduleRepository) withSlotLock(ctx context.Context, instructorID string, day models.DayOfWeek, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1, $2)", slotLockKey(instructorID), int(day)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("acquire schedule lock: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule tx: %w", err)
	}
	return nil
}

func hasOverlap(ctx context.Context, q sqlx.QueryerContext, instructorID string, day models.DayOfWeek, startTime, endTime, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM schedule_slots
		WHERE instructor_id = $1 AND day_of_week = $2
		  AND start_time < $3 AND end_time > $4
		  AND id <> $5
	)`
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, query, instructorID, int(day), endTime, startTime, excludeID); err != nil {
		return false, fmt.Errorf("check slot overlap: %w", err)
	}
	return exists, nil
}

func classifyScheduleInsertErr(err error, slot *models.ScheduleSlot) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if pqErr.Constraint == "schedule_slots_code_key" {
			return ErrCodeTaken
		}
		// Composite (instructor, day, start, end) uniqueness backstop.
		return &models.SlotOverlapError{
			InstructorID: slot.InstructorID,
			DayOfWeek:    slot.DayOfWeek,
			StartTime:    slot.StartTime,
			EndTime:      slot.EndTime,
		}
	}
	return fmt.Errorf("write schedule slot: %w", err)
}

func slotLockKey(instructorID string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(instructorID))
	return int32(h.Sum32())
}
