package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/scheduler"
)

type stubAuthService struct {
	result  application.AuthenticateResult
	err     error
	revoked []string
}

func (s *stubAuthService) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	if s.err != nil {
		return application.AuthenticateResult{}, s.err
	}
	return s.result, nil
}

func (s *stubAuthService) RefreshSession(ctx context.Context, params application.RefreshSessionParams) (application.RefreshSessionResult, error) {
	return application.RefreshSessionResult{Session: application.AuthSession{Token: params.Token + "-next", ExpiresAt: s.result.Session.ExpiresAt}}, nil
}

func (s *stubAuthService) RevokeSession(ctx context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return nil
}

type stubBookingService struct {
	createParams application.CreateSessionParams
	updateParams application.UpdateSessionParams
	err          error
	calendar     application.CalendarView
	today        []application.SessionView
	target       string
}

func (s *stubBookingService) CreateSession(ctx context.Context, params application.CreateSessionParams) (scheduler.Session, error) {
	s.createParams = params
	if s.err != nil {
		return scheduler.Session{}, s.err
	}
	return scheduler.Session{ID: "session-1"}, nil
}

func (s *stubBookingService) UpdateSession(ctx context.Context, params application.UpdateSessionParams) (scheduler.Session, error) {
	s.updateParams = params
	if s.err != nil {
		return scheduler.Session{}, s.err
	}
	return scheduler.Session{ID: params.SessionID}, nil
}

func (s *stubBookingService) CalendarQuery(ctx context.Context, requester application.Requester, date string) (application.CalendarView, error) {
	return s.calendar, s.err
}

func (s *stubBookingService) ListTodaysSessions(ctx context.Context, requester application.Requester) ([]application.SessionView, error) {
	return s.today, s.err
}

func (s *stubBookingService) ResolveSessionLink(ctx context.Context, identifier string) (string, error) {
	return s.target, s.err
}

type stubBlackoutService struct {
	deleted []string
	err     error
}

func (s *stubBlackoutService) CreateBlackout(ctx context.Context, params application.BlackoutParams) (application.BlackoutResult, error) {
	if s.err != nil {
		return application.BlackoutResult{}, s.err
	}
	r, err := scheduler.ParseLocalRange(params.Date, params.StartTime, params.EndTime, time.UTC)
	if err != nil {
		return application.BlackoutResult{}, err
	}
	blackout, err := scheduler.NewBlackout("blackout-1", r, time.UTC, params.Requester.ID, r.Start())
	if err != nil {
		return application.BlackoutResult{}, err
	}
	return application.BlackoutResult{
		Blackout: blackout,
		Warnings: []application.ConflictWarning{{SessionID: "session-9", Start: r.Start(), End: r.End()}},
	}, nil
}

func (s *stubBlackoutService) UpdateBlackout(ctx context.Context, params application.UpdateBlackoutParams) (application.BlackoutResult, error) {
	return application.BlackoutResult{}, s.err
}

func (s *stubBlackoutService) DeleteBlackout(ctx context.Context, requester application.Requester, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubBlackoutService) ListBlackoutsForDate(ctx context.Context, requester application.Requester, date string) ([]application.BlackoutView, error) {
	return []application.BlackoutView{{ID: "blackout-1", Date: date, TimePeriod: [2]string{"12:00", "13:00"}, Timezone: "UTC"}}, s.err
}

type routerFixture struct {
	auth      *stubAuthService
	bookings  *stubBookingService
	blackouts *stubBlackoutService
	handler   http.Handler
}

func newRouterFixture(requester application.Requester) *routerFixture {
	f := &routerFixture{
		auth: &stubAuthService{result: application.AuthenticateResult{
			User:      application.User{ID: requester.ID},
			Session:   application.AuthSession{Token: "token-abc", ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
			Requester: requester,
		}},
		bookings:  &stubBookingService{},
		blackouts: &stubBlackoutService{},
	}
	logger := quietLogger()
	f.handler = NewRouter(RouterConfig{
		Auth:      NewAuthHandler(f.auth, logger),
		Bookings:  NewBookingHandler(f.bookings, logger),
		Blackouts: NewBlackoutHandler(f.blackouts, logger),
		Sessions:  &fakeSessionValidator{requester: requester},
		Logger:    logger,
	})
	return f
}

func (f *routerFixture) do(t *testing.T, method, target, body string, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer token-abc")
	}
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&out))
	return out
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	member := application.Requester{ID: "alice", Timezone: tokyo}

	t.Run("login issues session token via cookie and header", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)

		recorder := f.do(t, http.MethodPost, "/login", `{"email":"Alice@Example.com","password":"pw"}`, false)
		require.Equal(t, http.StatusCreated, recorder.Code)
		assert.Equal(t, "token-abc", recorder.Header().Get("X-Session-Token"))
		assert.Contains(t, recorder.Header().Get("Set-Cookie"), "session_token=token-abc")

		body := decode[loginResponse](t, recorder)
		assert.Equal(t, "token-abc", body.Token)
		assert.Equal(t, "2030-01-01T00:00:00Z", body.ExpiresAt)
		assert.Equal(t, requesterDTO{UserID: "alice", Timezone: "Asia/Tokyo"}, body.Requester)
	})

	t.Run("login rejects bad credentials with 401", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)
		f.auth.err = application.ErrInvalidCredentials

		recorder := f.do(t, http.MethodPost, "/login", `{"email":"alice@example.com","password":"wrong"}`, false)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, "AUTH_INVALID_CREDENTIALS", decode[errorResponse](t, recorder).ErrorCode)
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)

		recorder := f.do(t, http.MethodPost, "/logout", "", true)
		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Equal(t, []string{"token-abc"}, f.auth.revoked)
		assert.Contains(t, recorder.Header().Get("Set-Cookie"), "Max-Age=0")
	})

	t.Run("refresh rotates the token", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)

		recorder := f.do(t, http.MethodPost, "/refresh", "", true)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "token-abc-next", decode[refreshResponse](t, recorder).Token)
	})

	t.Run("protected routes require a token", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)

		for _, target := range []string{"/create-session", "/update-session", "/calendar-query", "/logout"} {
			recorder := f.do(t, http.MethodPost, target, `{}`, false)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code, target)
		}
		assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/links/abc-def-ghi-jkl", "", false).Code)
	})
}

func TestBookingHandlers(t *testing.T) {
	t.Parallel()

	member := application.Requester{ID: "alice"}

	t.Run("create passes the requester and returns the session id", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)

		recorder := f.do(t, http.MethodPost, "/create-session",
			`{"title":" Planning ","date":"2030-03-05","start_time":"10:00","end_time":"11:00"}`, true)
		require.Equal(t, http.StatusCreated, recorder.Code)
		assert.Equal(t, "session-1", decode[sessionIDResponse](t, recorder).SessionID)
		assert.Equal(t, "alice", f.bookings.createParams.Requester.ID)
		assert.Equal(t, "Planning", f.bookings.createParams.Title)
		assert.Empty(t, f.bookings.createParams.Timezone)
	})

	t.Run("slot conflicts become 400 with errors.slot", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)
		f.bookings.err = fmt.Errorf("%w: overlaps a booked session 10:00-11:00", application.ErrSlotUnavailable)

		recorder := f.do(t, http.MethodPost, "/create-session", `{"title":"x"}`, true)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		body := decode[errorResponse](t, recorder)
		assert.Equal(t, "SLOT_UNAVAILABLE", body.ErrorCode)
		assert.Equal(t, "overlaps a booked session 10:00-11:00", body.Errors["slot"])
	})

	t.Run("update maps optional fields", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)

		recorder := f.do(t, http.MethodPost, "/update-session",
			`{"session_id":"s1","start_time":" 12:00 ","link":"","cancelled":true}`, true)
		require.Equal(t, http.StatusOK, recorder.Code)

		params := f.bookings.updateParams
		assert.Equal(t, "s1", params.SessionID)
		require.NotNil(t, params.StartTime)
		assert.Equal(t, "12:00", *params.StartTime)
		require.NotNil(t, params.Link)
		assert.Equal(t, "", *params.Link)
		require.NotNil(t, params.Cancelled)
		assert.True(t, *params.Cancelled)
		assert.Nil(t, params.Title)
		assert.Nil(t, params.HasHeld)
	})

	t.Run("update without a session id is rejected", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)

		recorder := f.do(t, http.MethodPost, "/update-session", `{"title":"x"}`, true)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, decode[errorResponse](t, recorder).Errors, "session_id")
	})

	t.Run("map service sentinel errors to HTTP status codes", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			err    error
			status int
		}{
			{application.ErrUnauthorized, http.StatusForbidden},
			{application.ErrNotFound, http.StatusNotFound},
			{application.ErrConcurrencyConflict, http.StatusConflict},
			{&application.ValidationError{FieldErrors: map[string]string{"title": "title is required"}}, http.StatusBadRequest},
			{fmt.Errorf("boom"), http.StatusInternalServerError},
		}
		for _, tc := range cases {
			f := newRouterFixture(member)
			f.bookings.err = tc.err
			recorder := f.do(t, http.MethodPost, "/update-session", `{"session_id":"s1"}`, true)
			assert.Equal(t, tc.status, recorder.Code, tc.err.Error())
		}
	})

	t.Run("calendar query renders periods and bookings", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)
		f.bookings.calendar = application.CalendarView{
			Date:             "2030-03-05",
			UnavailableTimes: []application.TimePeriodView{{"09:00", "10:00"}, {"23:00", "24:00"}},
			Bookings: application.BookingsByStatus{
				Pending: map[string]application.SessionView{
					"Sync": {ID: "s1", Title: "Sync", Date: "2030-03-05", TimePeriod: [2]string{"11:00", "12:00"}, Status: scheduler.StatusPending, DurationMinutes: 60},
				},
			},
		}

		recorder := f.do(t, http.MethodPost, "/calendar-query", `{"date":"2030-03-05"}`, true)
		require.Equal(t, http.StatusOK, recorder.Code)

		body := decode[calendarResponse](t, recorder)
		assert.Equal(t, [][2]string{{"09:00", "10:00"}, {"23:00", "24:00"}}, body.UnavailableTimes)
		assert.Equal(t, 60, body.Bookings.Pending["Sync"].Duration)
		assert.NotNil(t, body.Bookings.Held)
	})

	t.Run("today lists sessions", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)
		f.bookings.today = []application.SessionView{{ID: "s1", Title: "Standup", LinkPath: "/links/abc-def-ghi-jkl", IsApproved: true}}

		recorder := f.do(t, http.MethodGet, "/sessions/today", "", true)
		require.Equal(t, http.StatusOK, recorder.Code)
		body := decode[todaysSessionsResponse](t, recorder)
		require.Len(t, body.Sessions, 1)
		assert.Equal(t, "/links/abc-def-ghi-jkl", body.Sessions[0].Link)

		assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodPost, "/sessions/today", "", true).Code)
	})

	t.Run("links redirect or explain why not", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(member)
		f.bookings.target = "https://meet.example.com/room"

		recorder := f.do(t, http.MethodGet, "/links/abc-def-ghi-jkl", "", true)
		assert.Equal(t, http.StatusFound, recorder.Code)
		assert.Equal(t, "https://meet.example.com/room", recorder.Header().Get("Location"))

		f.bookings.err = application.ErrLinkNotStarted
		recorder = f.do(t, http.MethodGet, "/links/abc-def-ghi-jkl", "", true)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "SESSION_NOT_STARTED", decode[errorResponse](t, recorder).ErrorCode)

		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/links/", "", true).Code)
	})
}

func TestBlackoutHandlers(t *testing.T) {
	t.Parallel()

	admin := application.Requester{ID: "root", IsAdmin: true}

	t.Run("create returns the blackout and covered sessions", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(admin)

		recorder := f.do(t, http.MethodPost, "/blackouts", `{"date":"2030-03-05","start_time":"12:00","end_time":"13:00","timezone":"UTC"}`, true)
		require.Equal(t, http.StatusCreated, recorder.Code)

		body := decode[blackoutResponse](t, recorder)
		assert.Equal(t, blackoutDTO{ID: "blackout-1", Date: "2030-03-05", TimePeriod: [2]string{"12:00", "13:00"}, Timezone: "UTC"}, body.Blackout)
		require.Len(t, body.Warnings, 1)
		assert.Equal(t, "session-9", body.Warnings[0].SessionID)
		assert.Equal(t, "2030-03-05T12:00:00Z", body.Warnings[0].Start)
	})

	t.Run("list passes the date through", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(admin)

		recorder := f.do(t, http.MethodGet, "/blackouts?date=2030-03-05", "", true)
		require.Equal(t, http.StatusOK, recorder.Code)
		body := decode[listBlackoutsResponse](t, recorder)
		require.Len(t, body.Blackouts, 1)
		assert.Equal(t, "2030-03-05", body.Blackouts[0].Date)
	})

	t.Run("delete uses the path id", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(admin)

		recorder := f.do(t, http.MethodDelete, "/blackouts/blackout-7", "", true)
		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Equal(t, []string{"blackout-7"}, f.blackouts.deleted)

		assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodPatch, "/blackouts/blackout-7", "", true).Code)
	})

	t.Run("require administrator authorization", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(application.Requester{ID: "alice"})
		f.blackouts.err = application.ErrUnauthorized

		recorder := f.do(t, http.MethodPut, "/blackouts/blackout-1", `{"date":"2030-03-05","start_time":"12:00","end_time":"13:00"}`, true)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
		assert.Equal(t, "AUTH_FORBIDDEN", decode[errorResponse](t, recorder).ErrorCode)
	})
}
