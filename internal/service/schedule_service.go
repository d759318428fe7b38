package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/didar-dev/didar-api/internal/models"
	"github.com/didar-dev/didar-api/internal/repository"
	appErrors "github.com/didar-dev/didar-api/pkg/errors"
)

// codeMaxAttempts bounds the unique-code retry loop. The code space holds
// 26 letters x 900 numbers per calendar day, so hitting the bound means the
// store is pathologically full and we fail loudly instead of spinning.
const codeMaxAttempts = 50

type scheduleRepository interface {
	ListByInstructor(ctx context.Context, instructorID string) ([]models.ScheduleSlot, error)
	FindByCode(ctx context.Context, code, instructorID string) (*models.ScheduleSlot, error)
	HasOverlap(ctx context.Context, instructorID string, day models.DayOfWeek, startTime, endTime, excludeID string) (bool, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, slot *models.ScheduleSlot) error
	Update(ctx context.Context, slot *models.ScheduleSlot) error
	Delete(ctx context.Context, id string) error
}

type instructorFinder interface {
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
}

type scheduleCache interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context, key string) error
}

// CreateScheduleRequest describes the payload for creating a slot. The
// owning instructor is never part of the payload; it comes from the caller's
// identity.
type CreateScheduleRequest struct {
	Title     string           `json:"title" validate:"required,max=25"`
	DayOfWeek models.DayOfWeek `json:"day_of_week" validate:"required"`
	StartTime string           `json:"start_time" validate:"required,datetime=15:04:05"`
	EndTime   string           `json:"end_time" validate:"required,datetime=15:04:05"`
}

// UpdateScheduleRequest carries a partial update; nil fields keep their
// stored values.
type UpdateScheduleRequest struct {
	Title     *string           `json:"title" validate:"omitempty,max=25"`
	DayOfWeek *models.DayOfWeek `json:"day_of_week"`
	StartTime *string           `json:"start_time" validate:"omitempty,datetime=15:04:05"`
	EndTime   *string           `json:"end_time" validate:"omitempty,datetime=15:04:05"`
}

// ScheduleService orchestrates slot reads and conflict-checked writes.
type ScheduleService struct {
	repo        scheduleRepository
	instructors instructorFinder
	cache       scheduleCache
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewScheduleService instantiates ScheduleService. cache and metrics may be
// nil.
func NewScheduleService(repo scheduleRepository, instructors instructorFinder, cache scheduleCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:        repo,
		instructors: instructors,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListOwn returns the caller's slots ordered by descending day of week.
func (s *ScheduleService) ListOwn(ctx context.Context, instructorID string) ([]models.ScheduleSlot, error) {
	slots, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	return slots, nil
}

// GetOwn loads one of the caller's slots by code. A code owned by another
// instructor is indistinguishable from a missing one.
func (s *ScheduleService) GetOwn(ctx context.Context, code, instructorID string) (*models.ScheduleSlot, error) {
	slot, err := s.repo.FindByCode(ctx, code, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrScheduleNotExists
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	return slot, nil
}

// ListByInstructor returns a specific instructor's slots in sanitized form
// for any authenticated caller.
func (s *ScheduleService) ListByInstructor(ctx context.Context, instructorID string) ([]models.PublicScheduleSlot, error) {
	if _, err := s.instructors.FindByID(ctx, instructorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInstructorNotExists
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}

	cacheKey := scheduleCacheKey(instructorID)
	if s.cache != nil && s.cache.Enabled() {
		var cached []models.PublicScheduleSlot
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	slots, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}

	public := make([]models.PublicScheduleSlot, 0, len(slots))
	for _, slot := range slots {
		public = append(public, slot.Public())
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, public); err != nil {
			s.logger.Warn("failed to cache instructor schedules", zap.Error(err))
		}
	}

	return public, nil
}

// Create validates the candidate slot, checks it against the instructor's
// day, assigns a fresh code and persists it. The repository re-runs the
// conflict check atomically with the insert.
func (s *ScheduleService) Create(ctx context.Context, instructorID string, req CreateScheduleRequest) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, badRequest(err)
	}
	if err := validateWindow(req.DayOfWeek, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	overlap, err := s.repo.HasOverlap(ctx, instructorID, req.DayOfWeek, req.StartTime, req.EndTime, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	if overlap {
		return nil, s.conflict(req.DayOfWeek, req.StartTime, req.EndTime)
	}

	slot := &models.ScheduleSlot{
		Title:        req.Title,
		InstructorID: instructorID,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	}

	for attempt := 1; ; attempt++ {
		code, err := s.generateCode(ctx)
		if err != nil {
			return nil, err
		}
		slot.Code = code

		err = s.repo.Create(ctx, slot)
		if err == nil {
			break
		}
		var overlapErr *models.SlotOverlapError
		if errors.As(err, &overlapErr) {
			return nil, s.conflict(overlapErr.DayOfWeek, overlapErr.StartTime, overlapErr.EndTime)
		}
		if errors.Is(err, repository.ErrCodeTaken) && attempt < codeMaxAttempts {
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}

	s.invalidate(ctx, instructorID)
	return slot, nil
}

// Update merges a partial payload onto one of the caller's slots and
// persists it after re-checking conflicts excluding the slot itself. The
// code is immutable.
func (s *ScheduleService) Update(ctx context.Context, code, instructorID string, req UpdateScheduleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return badRequest(err)
	}

	slot, err := s.GetOwn(ctx, code, instructorID)
	if err != nil {
		return err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return appErrors.WithParams(appErrors.ErrBadRequest, map[string]interface{}{"title": "must not be empty"})
		}
		slot.Title = *req.Title
	}
	if req.DayOfWeek != nil {
		slot.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}
	if err := validateWindow(slot.DayOfWeek, slot.StartTime, slot.EndTime); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, slot); err != nil {
		var overlapErr *models.SlotOverlapError
		if errors.As(err, &overlapErr) {
			return s.conflict(overlapErr.DayOfWeek, overlapErr.StartTime, overlapErr.EndTime)
		}
		return appErrors.Wrap(err, appErrors.ErrServer)
	}

	s.invalidate(ctx, instructorID)
	return nil
}

// Delete removes one of the caller's slots unconditionally.
func (s *ScheduleService) Delete(ctx context.Context, code, instructorID string) error {
	slot, err := s.GetOwn(ctx, code, instructorID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, slot.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrServer)
	}

	s.invalidate(ctx, instructorID)
	return nil
}

// generateCode proposes codes until one is free, bounded by
// codeMaxAttempts. The final claim happens on insert, where the unique
// index settles races between concurrent generators.
func (s *ScheduleService) generateCode(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= codeMaxAttempts; attempt++ {
		code := newScheduleCode(s.now())
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrServer)
		}
		if !exists {
			if s.metrics != nil {
				s.metrics.ObserveCodeAttempts(attempt)
			}
			return code, nil
		}
	}
	return "", appErrors.Wrap(fmt.Errorf("schedule code space exhausted after %d attempts", codeMaxAttempts), appErrors.ErrServer)
}

// newScheduleCode builds a code like schedule-2023-11-1-A123: the creation
// date without zero padding, one uppercase letter and three digits.
func newScheduleCode(now time.Time) string {
	letter := rune('A' + rand.Intn(26))
	number := 100 + rand.Intn(900)
	return fmt.Sprintf("schedule-%d-%d-%d-%c%d", now.Year(), int(now.Month()), now.Day(), letter, number)
}

func (s *ScheduleService) conflict(day models.DayOfWeek, start, end string) error {
	if s.metrics != nil {
		s.metrics.RecordScheduleConflict()
	}
	return appErrors.WithParams(appErrors.ErrScheduleOverlaps, map[string]interface{}{
		"day_of_week": int(day),
		"start_time":  start,
		"end_time":    end,
	})
}

func (s *ScheduleService) invalidate(ctx context.Context, instructorID string) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, scheduleCacheKey(instructorID)); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.String("instructor_id", instructorID), zap.Error(err))
	}
}

func scheduleCacheKey(instructorID string) string {
	return "schedules:instructor:" + instructorID
}

func validateWindow(day models.DayOfWeek, start, end string) error {
	if !day.Valid() {
		return appErrors.WithParams(appErrors.ErrBadRequest, map[string]interface{}{"day_of_week": "must be between 1 and 6"})
	}
	if start >= end {
		return appErrors.WithParams(appErrors.ErrBadRequest, map[string]interface{}{"start_time": "must be before end_time"})
	}
	return nil
}

func badRequest(err error) error {
	params := map[string]interface{}{}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fieldErr := range validationErrs {
			params[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	return appErrors.WithParams(appErrors.Wrap(err, appErrors.ErrBadRequest), params)
}
