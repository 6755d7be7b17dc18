package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/logging"
)

type fakeSessionValidator struct {
	requester application.Requester
	err       error
	tokens    []string
}

func (f *fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Requester, error) {
	f.tokens = append(f.tokens, token)
	return f.requester, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			cookie         *http.Cookie
			header         string
			err            error
			expectedStatus int
			expectedCode   string
		}{
			{name: "missing credentials", expectedStatus: http.StatusUnauthorized},
			{name: "non bearer header", header: "Basic Zm9vOmJhcg==", expectedStatus: http.StatusUnauthorized},
			{name: "revoked session", cookie: &http.Cookie{Name: "session_token", Value: "revoked"}, err: application.ErrSessionRevoked, expectedStatus: http.StatusUnauthorized, expectedCode: "AUTH_SESSION_EXPIRED"},
			{name: "unknown token", header: "Bearer nope", err: application.ErrNotFound, expectedStatus: http.StatusUnauthorized, expectedCode: "AUTH_SESSION_EXPIRED"},
			{name: "disabled account", header: "Bearer disabled", err: application.ErrAccountDisabled, expectedStatus: http.StatusForbidden, expectedCode: "AUTH_ACCOUNT_DISABLED"},
			{name: "store failure", header: "Bearer transient", err: errors.New("database is locked"), expectedStatus: http.StatusInternalServerError, expectedCode: "INTERNAL"},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.cookie != nil {
					req.AddCookie(tc.cookie)
				}
				if tc.header != "" {
					req.Header.Set("Authorization", tc.header)
				}
				recorder := httptest.NewRecorder()

				validator := &fakeSessionValidator{err: tc.err}
				handler := RequireSession(validator, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				assert.Equal(t, tc.expectedStatus, recorder.Code)
				if tc.expectedCode != "" {
					var body errorResponse
					require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
					assert.Equal(t, tc.expectedCode, body.ErrorCode)
				}
			})
		}
	})

	t.Run("attaches authenticated requester to request context", func(t *testing.T) {
		t.Parallel()

		requester := application.Requester{ID: "employee-123", IsAdmin: true}
		validator := &fakeSessionValidator{requester: requester}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "bearer valid-token")
		recorder := httptest.NewRecorder()

		var captured application.Requester
		handler := RequireSession(validator, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := RequesterFromContext(r.Context())
			if !ok {
				t.Fatal("expected requester in request context")
			}
			captured = got
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, requester, captured)
		assert.Equal(t, []string{"valid-token"}, validator.tokens)
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("generates an id and shares it with handlers", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		var seen string
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if LoggerFromContext(r.Context()) == nil {
				t.Fatal("expected request logger in context")
			}
			seen = logging.RequestIDFromContext(r.Context())
			w.WriteHeader(http.StatusTeapot)
		}))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/calendar-query", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, recorder.Header().Get(logging.RequestIDHeader))
		out := buf.String()
		assert.Contains(t, out, `"msg":"request completed"`)
		assert.Contains(t, out, `"status":418`)
		assert.Contains(t, out, `"path":"/calendar-query"`)
		assert.True(t, strings.Contains(out, `"request_id":"`+seen+`"`))
	})

	t.Run("keeps a caller supplied id", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodPost, "/create-session", nil)
		req.Header.Set(logging.RequestIDHeader, "booking-7")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, "booking-7", recorder.Header().Get(logging.RequestIDHeader))
		assert.Contains(t, buf.String(), `"request_id":"booking-7"`)
	})
}
