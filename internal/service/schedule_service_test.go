package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didar-dev/didar-api/internal/models"
	"github.com/didar-dev/didar-api/internal/repository"
	appErrors "github.com/didar-dev/didar-api/pkg/errors"
)

type memScheduleRepo struct {
	slots         map[string]*models.ScheduleSlot
	failCodes     map[string]bool
	codeTakenOnce bool
	listErr       error
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{slots: make(map[string]*models.ScheduleSlot), failCodes: make(map[string]bool)}
}

func (m *memScheduleRepo) ListByInstructor(ctx context.Context, instructorID string) ([]models.ScheduleSlot, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.ScheduleSlot
	for _, s := range m.slots {
		if s.InstructorID == instructorID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memScheduleRepo) FindByCode(ctx context.Context, code, instructorID string) (*models.ScheduleSlot, error) {
	for _, s := range m.slots {
		if s.Code == code && s.InstructorID == instructorID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memScheduleRepo) HasOverlap(ctx context.Context, instructorID string, day models.DayOfWeek, startTime, endTime, excludeID string) (bool, error) {
	for _, s := range m.slots {
		if s.InstructorID != instructorID || s.DayOfWeek != day || s.ID == excludeID {
			continue
		}
		if s.Overlaps(startTime, endTime) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memScheduleRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	if m.failCodes[code] {
		return true, nil
	}
	for _, s := range m.slots {
		if s.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memScheduleRepo) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	if overlap, _ := m.HasOverlap(ctx, slot.InstructorID, slot.DayOfWeek, slot.StartTime, slot.EndTime, ""); overlap {
		return &models.SlotOverlapError{
			InstructorID: slot.InstructorID,
			DayOfWeek:    slot.DayOfWeek,
			StartTime:    slot.StartTime,
			EndTime:      slot.EndTime,
		}
	}
	if m.codeTakenOnce {
		m.codeTakenOnce = false
		return repository.ErrCodeTaken
	}
	if slot.ID == "" {
		slot.ID = "slot-" + slot.Code
	}
	clone := *slot
	m.slots[slot.ID] = &clone
	return nil
}

func (m *memScheduleRepo) Update(ctx context.Context, slot *models.ScheduleSlot) error {
	if overlap, _ := m.HasOverlap(ctx, slot.InstructorID, slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.ID); overlap {
		return &models.SlotOverlapError{
			InstructorID: slot.InstructorID,
			DayOfWeek:    slot.DayOfWeek,
			StartTime:    slot.StartTime,
			EndTime:      slot.EndTime,
		}
	}
	clone := *slot
	m.slots[slot.ID] = &clone
	return nil
}

func (m *memScheduleRepo) Delete(ctx context.Context, id string) error {
	delete(m.slots, id)
	return nil
}

type memInstructorFinder struct {
	known map[string]bool
}

func (m *memInstructorFinder) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	if !m.known[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Instructor{ID: id, UserID: "user-" + id}, nil
}

func newScheduleServiceForTest(repo *memScheduleRepo) *ScheduleService {
	svc := NewScheduleService(repo, &memInstructorFinder{known: map[string]bool{"instructor-1": true, "instructor-2": true}}, nil, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func createReq(day models.DayOfWeek, start, end string) CreateScheduleRequest {
	return CreateScheduleRequest{Title: "Algorithms", DayOfWeek: day, StartTime: start, EndTime: end}
}

func TestScheduleCreateAssignsWellFormedCode(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)

	slot, err := svc.Create(context.Background(), "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^schedule-2026-9-1-[A-Z]\d{3}$`), slot.Code)
	assert.Equal(t, "instructor-1", slot.InstructorID)
}

func TestScheduleCreateRejectsOverlap(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "09:00:00", "11:00:00"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleOverlaps))

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 2002, appErr.Code)
	assert.Equal(t, 406, appErr.Status)
	assert.Equal(t, 3, appErr.Params["day_of_week"])
}

func TestScheduleCreateAllowsTouchingBoundaries(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "10:00:00", "12:00:00"))
	assert.NoError(t, err)
}

func TestScheduleCreateAllowsSameWindowOtherDayOrInstructor(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, "instructor-1", createReq(models.DayTuesday, "08:00:00", "10:00:00"))
	assert.NoError(t, err)

	_, err = svc.Create(ctx, "instructor-2", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	assert.NoError(t, err)
}

func TestScheduleCreateValidation(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateScheduleRequest
	}{
		{"missing title", CreateScheduleRequest{DayOfWeek: models.DayMonday, StartTime: "08:00:00", EndTime: "10:00:00"}},
		{"title too long", createReqWithTitle("An Extremely Long Course Title", models.DayMonday)},
		{"day out of range", createReq(models.DayOfWeek(7), "08:00:00", "10:00:00")},
		{"bad time format", createReq(models.DayMonday, "8am", "10:00:00")},
		{"start after end", createReq(models.DayMonday, "12:00:00", "10:00:00")},
		{"start equals end", createReq(models.DayMonday, "10:00:00", "10:00:00")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "instructor-1", tc.req)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrBadRequest))
		})
	}
}

func createReqWithTitle(title string, day models.DayOfWeek) CreateScheduleRequest {
	return CreateScheduleRequest{Title: title, DayOfWeek: day, StartTime: "08:00:00", EndTime: "10:00:00"}
}

func TestScheduleCreateRetriesOnCodeRace(t *testing.T) {
	repo := newMemScheduleRepo()
	repo.codeTakenOnce = true
	svc := newScheduleServiceForTest(repo)

	slot, err := svc.Create(context.Background(), "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.NoError(t, err)
	assert.NotEmpty(t, slot.Code)
}

func TestScheduleCodeGenerationBounded(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)

	// Every candidate the clock can produce reads as taken.
	for letter := 'A'; letter <= 'Z'; letter++ {
		for n := 100; n < 1000; n++ {
			repo.failCodes["schedule-2026-9-1-"+string(letter)+itoa(n)] = true
		}
	}

	_, err := svc.Create(context.Background(), "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrServer))
}

func itoa(n int) string {
	digits := [3]byte{byte('0' + n/100), byte('0' + (n/10)%10), byte('0' + n%10)}
	return string(digits[:])
}

func TestScheduleGetOwnHidesOtherOwners(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	slot, err := svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.NoError(t, err)

	_, err = svc.GetOwn(ctx, slot.Code, "instructor-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleNotExists))

	_, err = svc.GetOwn(ctx, "schedule-2026-9-1-Z999", "instructor-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleNotExists))
}

func TestScheduleUpdateExcludesSelfFromConflict(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	slot, err := svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.NoError(t, err)

	// Shifting a slot within its own window is not a conflict with itself.
	newEnd := "11:00:00"
	err = svc.Update(ctx, slot.Code, "instructor-1", UpdateScheduleRequest{EndTime: &newEnd})
	assert.NoError(t, err)

	updated, err := svc.GetOwn(ctx, slot.Code, "instructor-1")
	require.NoError(t, err)
	assert.Equal(t, "11:00:00", updated.EndTime)
}

func TestScheduleUpdateConflictsWithOtherSlot(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "10:00:00", "12:00:00"))
	require.NoError(t, err)

	newEnd := "11:00:00"
	err = svc.Update(ctx, first.Code, "instructor-1", UpdateScheduleRequest{EndTime: &newEnd})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleOverlaps))
}

func TestScheduleDeleteReleasesWindow(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	slot, err := svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, slot.Code, "instructor-1"))

	_, err = svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	assert.NoError(t, err)
}

func TestScheduleListByInstructorSanitizes(t *testing.T) {
	repo := newMemScheduleRepo()
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, "instructor-1", createReq(models.DayMonday, "08:00:00", "10:00:00"))
	require.NoError(t, err)

	public, err := svc.ListByInstructor(ctx, "instructor-1")
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Algorithms", public[0].Title)

	_, err = svc.ListByInstructor(ctx, "instructor-404")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInstructorNotExists))
}

func TestScheduleListOwnWrapsRepoErrors(t *testing.T) {
	repo := newMemScheduleRepo()
	repo.listErr = errors.New("connection lost")
	svc := newScheduleServiceForTest(repo)

	_, err := svc.ListOwn(context.Background(), "instructor-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrServer))
}
