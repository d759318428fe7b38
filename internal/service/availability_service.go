package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/didar-dev/didar-api/internal/models"
	"github.com/didar-dev/didar-api/pkg/config"
	"github.com/didar-dev/didar-api/pkg/jobs"
)

type availabilityInstructorRepository interface {
	ListAll(ctx context.Context) ([]models.Instructor, error)
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
	SetAvailableNow(ctx context.Context, id string, available bool) error
}

type upcomingEventChecker interface {
	HasEventSoon(ctx context.Context, userID string, lookAhead time.Duration) (bool, error)
}

// AvailabilityService keeps instructors' is_available_now flags in sync
// with their calendars. A ticker sweeps the instructor list and fans the
// per-instructor checks out to a worker queue.
type AvailabilityService struct {
	instructors availabilityInstructorRepository
	calendar    upcomingEventChecker
	cfg         config.AvailabilityConfig
	queue       *jobs.Queue
	logger      *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(instructors availabilityInstructorRepository, calendar upcomingEventChecker, cfg config.AvailabilityConfig, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AvailabilityService{
		instructors: instructors,
		calendar:    calendar,
		cfg:         cfg,
		logger:      logger,
	}
	s.queue = jobs.NewQueue("availability", s.refresh, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the poller. It returns immediately; Stop shuts it down.
func (s *AvailabilityService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("availability poller disabled")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.queue.Start(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		s.sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	s.logger.Info("availability poller started",
		zap.Duration("interval", s.cfg.PollInterval), zap.Duration("look_ahead", s.cfg.LookAhead))
}

// Stop halts the ticker and drains the queue.
func (s *AvailabilityService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.queue.Stop()
}

func (s *AvailabilityService) sweep(ctx context.Context) {
	instructors, err := s.instructors.ListAll(ctx)
	if err != nil {
		s.logger.Error("availability sweep failed to list instructors", zap.Error(err))
		return
	}

	for _, instructor := range instructors {
		task := jobs.Task{Key: instructor.ID, Kind: "availability-refresh"}
		if err := s.queue.Enqueue(task); err != nil {
			s.logger.Warn("failed to enqueue availability refresh", zap.String("instructor_id", instructor.ID), zap.Error(err))
			return
		}
	}
}

// refresh recomputes one instructor's flag: busy when an event starts
// inside the look-ahead window. Instructors deleted between the sweep and
// the worker run are skipped.
func (s *AvailabilityService) refresh(ctx context.Context, task jobs.Task) error {
	instructor, err := s.instructors.FindByID(ctx, task.Key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	busy, err := s.calendar.HasEventSoon(ctx, instructor.UserID, s.cfg.LookAhead)
	if err != nil {
		return err
	}
	return s.instructors.SetAvailableNow(ctx, task.Key, !busy)
}
