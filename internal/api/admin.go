package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
)

// CreateUserRequest is the payload for POST /v1/users.
type CreateUserRequest struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	AgencyID string `json:"agency_id"`
}

// UpdateUserRequest is the payload for PATCH /v1/users/{id}.
type UpdateUserRequest struct {
	Active *bool `json:"active"`
}

// CommissionRateRequest is the payload for PUT /v1/commissions/{system}.
type CommissionRateRequest struct {
	SalesBps  int `json:"sales_bps"`
	PrizesBps int `json:"prizes_bps"`
}

// SyncRequest is the payload for POST /v1/sync.
type SyncRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	user, err := h.service.CreateUser(r.Context(), caller, domain.CreateUserInput{
		ID:       req.UserID,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
		AgencyID: req.AgencyID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(*user))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	users, err := h.service.ListUsers(r.Context(), caller)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	items := make([]UserView, 0, len(users))
	for _, u := range users {
		items = append(items, toUserView(u))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "active is required")
		return
	}
	user, err := h.service.SetUserActive(r.Context(), caller, chi.URLParam(r, "id"), *req.Active)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) setCommissionRate(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	var req CommissionRateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rate, err := h.service.SetCommissionRate(r.Context(), caller, chi.URLParam(r, "system"), req.SalesBps, req.PrizesBps)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionRateView(*rate))
}

func (h *Handler) listCommissionRates(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	rates, err := h.service.ListCommissionRates(r.Context(), caller)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	items := make([]CommissionRateView, 0, len(rates))
	for _, rate := range rates {
		items = append(items, toCommissionRateView(rate))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) requestSync(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	var req SyncRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	queued, err := h.service.RequestSync(r.Context(), caller, req.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SyncRequestView{
		RequestID:   queued.ID,
		RequestedBy: queued.RequestedBy,
		Reason:      queued.Reason,
		RequestedAt: queued.RequestedAt,
	})
}
