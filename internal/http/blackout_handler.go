package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-calendar/internal/application"
)

type blackoutService interface {
	CreateBlackout(ctx context.Context, params application.BlackoutParams) (application.BlackoutResult, error)
	UpdateBlackout(ctx context.Context, params application.UpdateBlackoutParams) (application.BlackoutResult, error)
	DeleteBlackout(ctx context.Context, requester application.Requester, id string) error
	ListBlackoutsForDate(ctx context.Context, requester application.Requester, date string) ([]application.BlackoutView, error)
}

type BlackoutHandler struct {
	service   blackoutService
	responder responder
	logger    *slog.Logger
}

func NewBlackoutHandler(service blackoutService, logger *slog.Logger) *BlackoutHandler {
	base := defaultLogger(logger)
	return &BlackoutHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BlackoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req blackoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	requester, _ := RequesterFromContext(r.Context())
	result, err := h.service.CreateBlackout(r.Context(), req.toParams(requester))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if len(result.Warnings) > 0 {
		handlerLogger(r.Context(), h.logger, "BlackoutHandler", "Create", "blackout_id", result.Blackout.ID).
			InfoContext(r.Context(), "blackout covers booked sessions", "sessions", len(result.Warnings))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBlackoutResponse(result))
}

func (h *BlackoutHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	blackoutID, ok := BlackoutIDFromContext(r.Context())
	if !ok || strings.TrimSpace(blackoutID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBlackoutID)
		return
	}

	var req blackoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	requester, _ := RequesterFromContext(r.Context())
	result, err := h.service.UpdateBlackout(r.Context(), application.UpdateBlackoutParams{
		BlackoutParams: req.toParams(requester),
		BlackoutID:     blackoutID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBlackoutResponse(result))
}

func (h *BlackoutHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	blackoutID, ok := BlackoutIDFromContext(r.Context())
	if !ok || strings.TrimSpace(blackoutID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBlackoutID)
		return
	}

	requester, _ := RequesterFromContext(r.Context())
	if err := h.service.DeleteBlackout(r.Context(), requester, blackoutID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *BlackoutHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	requester, _ := RequesterFromContext(r.Context())
	views, err := h.service.ListBlackoutsForDate(r.Context(), requester, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]blackoutDTO, 0, len(views))
	for _, view := range views {
		out = append(out, toBlackoutDTO(view))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBlackoutsResponse{Blackouts: out})
}

type blackoutRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone"`
}

func (r blackoutRequest) toParams(requester application.Requester) application.BlackoutParams {
	return application.BlackoutParams{
		Requester: requester,
		Date:      strings.TrimSpace(r.Date),
		StartTime: strings.TrimSpace(r.StartTime),
		EndTime:   strings.TrimSpace(r.EndTime),
		Timezone:  strings.TrimSpace(r.Timezone),
	}
}

type blackoutDTO struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	TimePeriod [2]string `json:"time_period"`
	Timezone   string    `json:"timezone"`
}

func toBlackoutDTO(view application.BlackoutView) blackoutDTO {
	return blackoutDTO{ID: view.ID, Date: view.Date, TimePeriod: view.TimePeriod, Timezone: view.Timezone}
}

type conflictWarningDTO struct {
	SessionID string `json:"session_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

type blackoutResponse struct {
	Blackout blackoutDTO          `json:"blackout"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

func toBlackoutResponse(result application.BlackoutResult) blackoutResponse {
	response := blackoutResponse{
		Blackout: toBlackoutDTO(application.ProjectBlackout(result.Blackout, result.Blackout.Location)),
	}
	for _, warning := range result.Warnings {
		response.Warnings = append(response.Warnings, conflictWarningDTO{
			SessionID: warning.SessionID,
			Start:     warning.Start.UTC().Format(time.RFC3339),
			End:       warning.End.UTC().Format(time.RFC3339),
		})
	}
	return response
}

type listBlackoutsResponse struct {
	Blackouts []blackoutDTO `json:"blackouts"`
}
