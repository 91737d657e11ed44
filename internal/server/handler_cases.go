package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pr-poehali-dev/samp-survival-site/internal/cases"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	list, err := s.api.FetchCases(r.Context())
	if err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}
	respondOK(w, reqID, list)
}

type openCaseRequest struct {
	Method string `json:"method"`
}

func (s *Server) handleOpenCase(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := SessionFromContext(r.Context())

	caseID, err := urlParamInt(r, "id")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid case id"))
		return
	}

	var req openCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}

	list, err := s.api.FetchCases(r.Context())
	if err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}
	var cs gameapi.Case
	found := false
	for _, c := range list {
		if c.ID == caseID {
			cs, found = c, true
			break
		}
	}
	if !found {
		respondError(w, reqID, http.StatusNotFound,
			model.NewNotFoundError("case", strconv.Itoa(caseID)))
		return
	}

	method := gameapi.PaymentMethod(req.Method)
	state, err := s.sequencer.Open(r.Context(), sess.User, cs, method)
	if err != nil {
		s.respondOpenError(w, reqID, err)
		return
	}

	// The balance changed on the game server; mirror it locally so the
	// profile shows the spend before the next refresh tick.
	if method == gameapi.PayDonate {
		sess.User.Donate -= cs.Price(method)
	} else {
		sess.User.Money -= cs.Price(method)
	}
	if err := s.store.UpdateSession(r.Context(), sess); err != nil {
		s.logger.Warn("session balance update", "error", err)
	}

	respondOK(w, reqID, state)
}

func (s *Server) handleCaseState(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := SessionFromContext(r.Context())

	respondOK(w, reqID, s.sequencer.State(sess.User.ID))
}

func (s *Server) handleClaimCase(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := SessionFromContext(r.Context())

	opening, err := s.sequencer.Claim(sess.User.ID)
	if err != nil {
		s.respondOpenError(w, reqID, err)
		return
	}

	respondOK(w, reqID, map[string]any{
		"won_item":       opening.Result.WonItem,
		"inventory_slot": opening.Result.InventorySlot,
	})
}

// respondOpenError maps sequencer errors onto API errors. Anything the
// sequencer does not own is an upstream failure.
func (s *Server) respondOpenError(w http.ResponseWriter, reqID string, err error) {
	switch {
	case errors.Is(err, cases.ErrInvalidMethod):
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error()))
	case errors.Is(err, cases.ErrInsufficientFunds):
		respondError(w, reqID, http.StatusPaymentRequired, &model.APIError{
			Code:    model.ErrInsufficientFunds,
			Message: err.Error(),
		})
	case errors.Is(err, cases.ErrBusy):
		respondError(w, reqID, http.StatusConflict, &model.APIError{
			Code:    model.ErrConflict,
			Message: err.Error(),
		})
	case errors.Is(err, cases.ErrNoOpening), errors.Is(err, cases.ErrNotRevealed):
		respondError(w, reqID, http.StatusConflict, &model.APIError{
			Code:    model.ErrConflict,
			Message: err.Error(),
		})
	case errors.Is(err, cases.ErrSequenceMismatch):
		respondError(w, reqID, http.StatusBadGateway, &model.APIError{
			Code:    model.ErrUpstream,
			Message: err.Error(),
		})
	default:
		respondUpstreamError(w, reqID, err)
	}
}
