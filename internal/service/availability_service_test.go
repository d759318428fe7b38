package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didar-dev/didar-api/internal/models"
	"github.com/didar-dev/didar-api/pkg/config"
	"github.com/didar-dev/didar-api/pkg/jobs"
)

type memAvailabilityRepo struct {
	mu          sync.Mutex
	instructors map[string]*models.Instructor
	updates     map[string]bool
}

func newMemAvailabilityRepo(instructors ...*models.Instructor) *memAvailabilityRepo {
	repo := &memAvailabilityRepo{
		instructors: make(map[string]*models.Instructor),
		updates:     make(map[string]bool),
	}
	for _, i := range instructors {
		repo.instructors[i.ID] = i
	}
	return repo
}

func (m *memAvailabilityRepo) ListAll(ctx context.Context) ([]models.Instructor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Instructor, 0, len(m.instructors))
	for _, i := range m.instructors {
		out = append(out, *i)
	}
	return out, nil
}

func (m *memAvailabilityRepo) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.instructors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *i
	return &clone, nil
}

func (m *memAvailabilityRepo) SetAvailableNow(ctx context.Context, id string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[id] = available
	return nil
}

func (m *memAvailabilityRepo) snapshot() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.updates))
	for k, v := range m.updates {
		out[k] = v
	}
	return out
}

type stubEventChecker struct {
	mu   sync.Mutex
	busy map[string]bool
}

func (s *stubEventChecker) HasEventSoon(ctx context.Context, userID string, lookAhead time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy[userID], nil
}

func TestAvailabilitySweepUpdatesFlags(t *testing.T) {
	repo := newMemAvailabilityRepo(
		&models.Instructor{ID: "instructor-1", UserID: "user-1"},
		&models.Instructor{ID: "instructor-2", UserID: "user-2"},
	)
	checker := &stubEventChecker{busy: map[string]bool{"user-1": true}}

	svc := NewAvailabilityService(repo, checker, config.AvailabilityConfig{
		Enabled:      true,
		PollInterval: time.Hour,
		Workers:      2,
		LookAhead:    30 * time.Minute,
	}, nil)

	svc.Start(context.Background())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return len(repo.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	updates := repo.snapshot()
	assert.False(t, updates["instructor-1"], "an upcoming event marks the instructor busy")
	assert.True(t, updates["instructor-2"], "a clear calendar marks the instructor available")
}

func TestAvailabilityDisabledDoesNothing(t *testing.T) {
	repo := newMemAvailabilityRepo(&models.Instructor{ID: "instructor-1", UserID: "user-1"})
	checker := &stubEventChecker{busy: map[string]bool{}}

	svc := NewAvailabilityService(repo, checker, config.AvailabilityConfig{Enabled: false}, nil)
	svc.Start(context.Background())
	svc.Stop()

	assert.Empty(t, repo.snapshot())
}

func TestAvailabilitySkipsDeletedInstructor(t *testing.T) {
	repo := newMemAvailabilityRepo(&models.Instructor{ID: "instructor-1", UserID: "user-1"})
	checker := &stubEventChecker{busy: map[string]bool{}}

	svc := NewAvailabilityService(repo, checker, config.AvailabilityConfig{
		Enabled:      true,
		PollInterval: time.Hour,
		Workers:      1,
		LookAhead:    30 * time.Minute,
	}, nil)

	// The worker resolving the task by id tolerates rows deleted after the
	// sweep listed them.
	err := svc.refresh(context.Background(), jobs.Task{Key: "instructor-404", Kind: "availability-refresh"})
	require.NoError(t, err)
	assert.Empty(t, repo.snapshot())
}
