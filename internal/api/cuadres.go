package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/drafts"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/persistence"
	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/review"
)

// RecordTransactionRequest is the payload for POST /v1/transactions.
type RecordTransactionRequest struct {
	AgencyID     string `json:"agency_id"`
	Kind         string `json:"kind"`
	BusinessDate string `json:"business_date"`
	Currency     string `json:"currency"`
	Amount       int64  `json:"amount"`
	SystemCode   string `json:"system_code"`
	Reference    string `json:"reference"`
	Description  string `json:"description"`
	// DraftContext names the form draft to clear once the movement is stored.
	DraftContext string `json:"draft_context"`
}

// DeclareClosingRequest is the payload for PUT /v1/cuadres/{id}/closing.
type DeclareClosingRequest struct {
	VES int64 `json:"ves"`
	USD int64 `json:"usd"`
}

// ReviewRequest is the payload for POST /v1/cuadres/{id}/review. A missing observations field
// keeps the stored observations. ExpectedStatus is the status the client last saw; when it no
// longer matches the stored one the review is refused with 409.
type ReviewRequest struct {
	Action         string  `json:"action"`
	Observations   *string `json:"observations"`
	ExpectedStatus *string `json:"expected_status,omitempty"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	dash, err := h.service.Dashboard(r.Context(), caller)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardView(*dash, caller))
}

func (h *Handler) recordTransaction(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	var req RecordTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := domain.RecordTransactionInput{
		AgencyID:       strings.TrimSpace(req.AgencyID),
		Amount:         req.Amount,
		SystemCode:     req.SystemCode,
		Reference:      req.Reference,
		Description:    req.Description,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		BusinessDate:   time.Now().UTC(),
	}
	if input.AgencyID == "" {
		input.AgencyID = caller.AgencyID
	}
	var err error
	if input.Kind, err = domain.ParseTransactionKind(req.Kind); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if input.Currency, err = domain.ParseCurrency(req.Currency); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if req.BusinessDate != "" {
		if input.BusinessDate, err = domain.ParseBusinessDate(req.BusinessDate); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	txn, cuadre, replay, err := h.service.RecordTransaction(r.Context(), caller, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if ctxName := strings.TrimSpace(req.DraftContext); ctxName != "" && h.drafts != nil {
		key := drafts.Key{UserID: caller.UserID, Context: ctxName, Date: txn.BusinessDate}
		if err := h.drafts.Clear(r.Context(), key); err != nil {
			log.Warn().Err(err).Str("draft", key.String()).Msg("failed to clear draft")
		}
	}

	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, RecordTransactionResponse{
		Transaction: toTransactionView(*txn),
		Cuadre:      toCuadreView(*cuadre, caller),
		Replay:      replay,
	})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	agencyID := trimmed(r, "agency_id")
	if agencyID == "" {
		agencyID = caller.AgencyID
	}
	if agencyID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing agency_id parameter")
		return
	}
	date := time.Now().UTC()
	if raw := trimmed(r, "date"); raw != "" {
		parsed, err := domain.ParseBusinessDate(raw)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		date = parsed
	}

	txns, err := h.service.ListTransactions(r.Context(), caller, agencyID, date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	items := make([]TransactionView, 0, len(txns))
	for _, t := range txns {
		items = append(items, toTransactionView(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) listCuadres(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}

	filter := domain.CuadreFilter{
		AgencyID: trimmed(r, "agency_id"),
		UserID:   trimmed(r, "user_id"),
	}
	if raw := trimmed(r, "status"); raw != "" {
		status := review.ParseStatus(raw)
		if string(status) != strings.ToLower(raw) {
			writeError(w, http.StatusBadRequest, "validation_failed", "unknown status "+raw)
			return
		}
		filter.Status = &status
	}
	for name, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		raw := trimmed(r, name)
		if raw == "" {
			continue
		}
		parsed, err := domain.ParseBusinessDate(raw)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		*dst = parsed
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	cuadres, next, err := h.service.ListCuadres(r.Context(), caller, filter, cursor, pageSize(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := ListCuadresResponse{
		Items:      make([]CuadreView, 0, len(cuadres)),
		NextCursor: persistence.EncodeCursor(next),
	}
	for _, c := range cuadres {
		resp.Items = append(resp.Items, toCuadreView(c, caller))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getCuadre(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	cuadre, err := h.service.GetCuadre(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCuadreView(*cuadre, caller))
}

func (h *Handler) declareClosing(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	var req DeclareClosingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cuadre, err := h.service.DeclareClosing(r.Context(), caller, chi.URLParam(r, "id"), domain.Amounts{VES: req.VES, USD: req.USD})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCuadreView(*cuadre, caller))
}

// reviewCuadre drives the shared review session for the cuadre: open the action, set the
// note, confirm. Only one submission per cuadre runs at a time.
func (h *Handler) reviewCuadre(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var req ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	action, err := review.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	current, err := h.service.GetCuadre(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	snapshot := current.Snapshot()
	if req.ExpectedStatus != nil {
		expected, ok := parseExpectedStatus(*req.ExpectedStatus)
		if !ok {
			writeError(w, http.StatusBadRequest, "validation_failed", "expected_status must be pending, approved or rejected")
			return
		}
		snapshot.Status = expected
	}

	session, err := h.sessions.Open(id, action, func() *review.Session {
		return review.NewSession(snapshot, h.service.Reviewer(caller, id, snapshot.Status), !caller.Role.CanReview(),
			review.WithActor(caller.UserID))
	})
	if err != nil {
		writeReviewError(w, r, err)
		return
	}
	// The session is ours from here on; close it on every exit path so the next
	// request rebuilds from the stored record.
	defer func() {
		_ = session.Cancel()
		h.sessions.Release(id, session)
	}()

	if req.Observations != nil {
		if err := session.SetNote(*req.Observations); err != nil {
			writeReviewError(w, r, err)
			return
		}
	}
	if err := session.Confirm(r.Context()); err != nil {
		writeReviewError(w, r, err)
		return
	}

	updated, err := h.service.GetCuadre(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCuadreView(*updated, caller))
}

func parseExpectedStatus(raw string) (review.Status, bool) {
	switch status := review.Status(strings.ToLower(strings.TrimSpace(raw))); status {
	case review.StatusPending, review.StatusApproved, review.StatusRejected:
		return status, true
	default:
		return "", false
	}
}

func writeReviewError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, review.ErrDisabled), errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, review.ErrActionNotOffered),
		errors.Is(err, review.ErrBusy),
		errors.Is(err, review.ErrInFlight),
		errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, review.ErrNoteRequired), errors.Is(err, review.ErrObservationsRequired):
		writeError(w, http.StatusUnprocessableEntity, "observations_required", err.Error())
	case errors.Is(err, domain.ErrCuadreNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, review.ErrReviewFailed):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("review submission failed")
		writeError(w, http.StatusBadGateway, "review_failed", "the review could not be saved, retry")
	default:
		writeDomainError(w, r, err)
	}
}

func (h *Handler) weeklySummary(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	agencyID := trimmed(r, "agency_id")
	if agencyID == "" {
		agencyID = caller.AgencyID
	}
	if agencyID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing agency_id parameter")
		return
	}
	weekOf := time.Now().UTC()
	if raw := trimmed(r, "week_start"); raw != "" {
		parsed, err := domain.ParseBusinessDate(raw)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		weekOf = parsed
	}

	summary, err := h.service.WeeklySummary(r.Context(), caller, agencyID, weekOf)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWeeklySummaryView(*summary))
}
