package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/drafts"
)

const maxDraftBytes = 64 << 10

// draftKey builds the caller-scoped key from the route.
func draftKey(w http.ResponseWriter, r *http.Request, caller domain.Actor) (drafts.Key, bool) {
	date, err := domain.ParseBusinessDate(chi.URLParam(r, "date"))
	if err != nil {
		writeDomainError(w, r, err)
		return drafts.Key{}, false
	}
	key := drafts.Key{UserID: caller.UserID, Context: chi.URLParam(r, "context"), Date: date}
	if err := key.Validate(); err != nil {
		writeDomainError(w, r, err)
		return drafts.Key{}, false
	}
	return key, true
}

func (h *Handler) loadDraft(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	key, ok := draftKey(w, r, caller)
	if !ok {
		return
	}
	draft, found, err := h.drafts.Load(r.Context(), key)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "no draft saved")
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *Handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	key, ok := draftKey(w, r, caller)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDraftBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to read body")
		return
	}
	if len(body) > maxDraftBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "draft too large")
		return
	}
	if err := h.drafts.Save(r.Context(), key, json.RawMessage(body)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearDraft(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	key, ok := draftKey(w, r, caller)
	if !ok {
		return
	}
	if err := h.drafts.Clear(r.Context(), key); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
