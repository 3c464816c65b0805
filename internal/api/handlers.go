// Package api exposes HTTP handlers for the cuadres service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/auth"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/drafts"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/review"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service  *domain.Service
	drafts   drafts.Store
	sessions *review.Registry
}

// NewHandler builds a Handler. A nil draft store disables the draft routes.
func NewHandler(service *domain.Service, store drafts.Store) *Handler {
	return &Handler{service: service, drafts: store, sessions: review.NewRegistry()}
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// actor resolves the caller from the bearer claims. It writes the error response and returns
// false when the caller cannot act.
func actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return domain.Actor{}, false
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: claims.Subject, Role: role, AgencyID: claims.AgencyID}, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func pageSize(r *http.Request) int {
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit
}

// writeDomainError maps service sentinels to HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, review.ErrObservationsRequired),
		errors.Is(err, drafts.ErrInvalidKey),
		errors.Is(err, drafts.ErrInvalidDraft):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnknownRole):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrCuadreNotFound), errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrCuadreLocked),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateUser):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func trimmed(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}
