package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/didar-dev/didar-api/internal/models"
	"github.com/didar-dev/didar-api/pkg/config"
	appErrors "github.com/didar-dev/didar-api/pkg/errors"
)

type calendarCredentialStore interface {
	FindGoogleCredential(ctx context.Context, userID string) (*models.GoogleCredential, error)
	UpdateGoogleCredential(ctx context.Context, cred *models.GoogleCredential) error
}

type eventsResponse struct {
	Items []models.CalendarEvent `json:"items"`
}

// CalendarService fetches Google Calendar events on behalf of users with a
// stored OAuth2 grant, refreshing and re-persisting tokens as needed.
type CalendarService struct {
	store  calendarCredentialStore
	cfg    config.CalendarConfig
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(store calendarCredentialStore, cfg config.CalendarConfig, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		store:  store,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CurrentWeekEvents returns the user's events from now until the end of the
// teaching week. Weeks run Saturday through Thursday, so the window closes
// at Thursday midnight.
func (s *CalendarService) CurrentWeekEvents(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	now := s.now()
	return s.Events(ctx, userID, now, endOfTeachingWeek(now))
}

// Events returns the user's events inside [from, to].
func (s *CalendarService) Events(ctx context.Context, userID string, from, to time.Time) ([]models.CalendarEvent, error) {
	cred, err := s.store.FindGoogleCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrGoogleCredNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}

	source := s.tokenSource(ctx, cred)
	events, err := s.fetchEvents(ctx, source, from, to)
	if err != nil {
		return nil, err
	}

	s.persistRefreshedToken(ctx, cred, source)
	return events, nil
}

// HasEventSoon reports whether the user has an event starting inside the
// look-ahead window. Credential-less users count as free.
func (s *CalendarService) HasEventSoon(ctx context.Context, userID string, lookAhead time.Duration) (bool, error) {
	now := s.now()
	events, err := s.Events(ctx, userID, now, now.Add(lookAhead))
	if err != nil {
		if appErrors.Is(err, appErrors.ErrGoogleCredNotFound) {
			return false, nil
		}
		return false, err
	}
	return len(events) > 0, nil
}

func (s *CalendarService) tokenSource(ctx context.Context, cred *models.GoogleCredential) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: s.cfg.TokenURL},
	}
	stored := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.TokenExpiry,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	return conf.TokenSource(ctx, stored)
}

func (s *CalendarService) fetchEvents(ctx context.Context, source oauth2.TokenSource, from, to time.Time) ([]models.CalendarEvent, error) {
	token, err := source.Token()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken)
	}

	query := url.Values{}
	query.Set("timeMin", from.Format(time.RFC3339))
	query.Set("timeMax", to.Format(time.RFC3339))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.EventsURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}
	token.SetAuthHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, appErrors.ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Warn("calendar provider rejected events request",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil, appErrors.Wrap(fmt.Errorf("calendar provider returned status %d", resp.StatusCode), appErrors.ErrNotValidEvents)
	}

	var parsed eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotValidEvents)
	}
	if parsed.Items == nil {
		parsed.Items = []models.CalendarEvent{}
	}
	return parsed.Items, nil
}

// persistRefreshedToken writes the grant back when the token source rotated
// it, so the next call skips the refresh round trip.
func (s *CalendarService) persistRefreshedToken(ctx context.Context, cred *models.GoogleCredential, source oauth2.TokenSource) {
	token, err := source.Token()
	if err != nil || token.AccessToken == cred.AccessToken {
		return
	}
	cred.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}
	cred.TokenExpiry = token.Expiry
	if err := s.store.UpdateGoogleCredential(ctx, cred); err != nil {
		s.logger.Warn("failed to persist refreshed google credential", zap.String("user_id", cred.UserID), zap.Error(err))
	}
}

// endOfTeachingWeek returns midnight after the Thursday that closes the
// Saturday-anchored week containing t.
func endOfTeachingWeek(t time.Time) time.Time {
	// Saturday=0 ... Friday=6 in the teaching calendar.
	offset := (int(t.Weekday()) + 1) % 7
	saturday := t.AddDate(0, 0, -offset)
	weekEnd := time.Date(saturday.Year(), saturday.Month(), saturday.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 6)
	if weekEnd.Before(t) {
		return t
	}
	return weekEnd
}
