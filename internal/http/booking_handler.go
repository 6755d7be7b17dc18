package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/scheduler"
)

type bookingService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (scheduler.Session, error)
	UpdateSession(ctx context.Context, params application.UpdateSessionParams) (scheduler.Session, error)
	CalendarQuery(ctx context.Context, requester application.Requester, date string) (application.CalendarView, error)
	ListTodaysSessions(ctx context.Context, requester application.Requester) ([]application.SessionView, error)
	ResolveSessionLink(ctx context.Context, identifier string) (string, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	requester, _ := RequesterFromContext(r.Context())
	session, err := h.service.CreateSession(r.Context(), application.CreateSessionParams{
		Requester: requester,
		Title:     strings.TrimSpace(req.Title),
		Date:      strings.TrimSpace(req.Date),
		StartTime: strings.TrimSpace(req.StartTime),
		EndTime:   strings.TrimSpace(req.EndTime),
		Timezone:  strings.TrimSpace(req.Timezone),
	})
	if err != nil {
		h.log(r.Context(), "CreateSession").WarnContext(r.Context(), "booking rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionIDResponse{SessionID: session.ID})
}

func (h *BookingHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	requester, _ := RequesterFromContext(r.Context())
	params := req.toParams(requester)
	if params.SessionID == "" {
		h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "the request contains invalid fields",
			Errors:    map[string]string{"session_id": "session id is required"},
		})
		return
	}

	session, err := h.service.UpdateSession(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "UpdateSession", "session_id", params.SessionID).WarnContext(r.Context(), "update rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionIDResponse{SessionID: session.ID})
}

func (h *BookingHandler) CalendarQuery(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req calendarQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	requester, _ := RequesterFromContext(r.Context())
	view, err := h.service.CalendarQuery(r.Context(), requester, strings.TrimSpace(req.Date))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCalendarResponse(view))
}

func (h *BookingHandler) TodaysSessions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	requester, _ := RequesterFromContext(r.Context())
	sessions, err := h.service.ListTodaysSessions(r.Context(), requester)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, todaysSessionsResponse{Sessions: out})
}

// FollowLink redirects to the meeting URL behind identifier.
func (h *BookingHandler) FollowLink(w http.ResponseWriter, r *http.Request, identifier string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	target, err := h.service.ResolveSessionLink(r.Context(), identifier)
	if err != nil {
		h.log(r.Context(), "FollowLink", "identifier", identifier).InfoContext(r.Context(), "link not followed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

type createSessionRequest struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone"`
}

type updateSessionRequest struct {
	SessionID string  `json:"session_id"`
	Title     *string `json:"title"`
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Timezone  *string `json:"timezone"`
	Link      *string `json:"link"`
	HasHeld   *bool   `json:"has_held"`
	Cancelled *bool   `json:"cancelled"`
}

func (r updateSessionRequest) toParams(requester application.Requester) application.UpdateSessionParams {
	return application.UpdateSessionParams{
		Requester: requester,
		SessionID: strings.TrimSpace(r.SessionID),
		Title:     r.Title,
		Date:      trimmed(r.Date),
		StartTime: trimmed(r.StartTime),
		EndTime:   trimmed(r.EndTime),
		Timezone:  trimmed(r.Timezone),
		Link:      trimmed(r.Link),
		HasHeld:   r.HasHeld,
		Cancelled: r.Cancelled,
	}
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	return &out
}

type calendarQueryRequest struct {
	Date string `json:"date"`
}

type sessionIDResponse struct {
	SessionID string `json:"session_id"`
}

type sessionDTO struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Date       string    `json:"date"`
	TimePeriod [2]string `json:"time_period"`
	Link       string    `json:"link,omitempty"`
	IsApproved bool      `json:"is_approved"`
	Status     string    `json:"status"`
	Duration   int       `json:"duration"`
}

func toSessionDTO(view application.SessionView) sessionDTO {
	return sessionDTO{
		ID:         view.ID,
		Title:      view.Title,
		Date:       view.Date,
		TimePeriod: view.TimePeriod,
		Link:       view.LinkPath,
		IsApproved: view.IsApproved,
		Status:     string(view.Status),
		Duration:   view.DurationMinutes,
	}
}

type bookingsDTO struct {
	Pending   map[string]sessionDTO `json:"pending"`
	Missed    map[string]sessionDTO `json:"missed"`
	Cancelled map[string]sessionDTO `json:"cancelled"`
	Held      map[string]sessionDTO `json:"held"`
}

type calendarResponse struct {
	Date             string      `json:"date"`
	UnavailableTimes [][2]string `json:"unavailable_times"`
	Bookings         bookingsDTO `json:"bookings"`
}

func toCalendarResponse(view application.CalendarView) calendarResponse {
	periods := make([][2]string, 0, len(view.UnavailableTimes))
	for _, period := range view.UnavailableTimes {
		periods = append(periods, [2]string(period))
	}
	return calendarResponse{
		Date:             view.Date,
		UnavailableTimes: periods,
		Bookings: bookingsDTO{
			Pending:   toSessionDTOMap(view.Bookings.Pending),
			Missed:    toSessionDTOMap(view.Bookings.Missed),
			Cancelled: toSessionDTOMap(view.Bookings.Cancelled),
			Held:      toSessionDTOMap(view.Bookings.Held),
		},
	}
}

func toSessionDTOMap(views map[string]application.SessionView) map[string]sessionDTO {
	out := make(map[string]sessionDTO, len(views))
	for title, view := range views {
		out[title] = toSessionDTO(view)
	}
	return out
}

type todaysSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}
