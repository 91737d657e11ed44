package server

import (
	"encoding/json"
	"net/http"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := SessionFromContext(r.Context())

	items, err := s.api.FetchInventory(r.Context(), sess.User.ID)
	if err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}
	respondOK(w, reqID, items)
}

func (s *Server) handleSellItem(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := SessionFromContext(r.Context())

	slot, err := urlParamInt(r, "slot")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid slot"))
		return
	}

	result, err := s.api.SellItem(r.Context(), sess.User.ID, slot)
	if err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	// Mirror the credit locally; the next refresh tick makes it authoritative.
	sess.User.Money += result.SellPrice
	if err := s.store.UpdateSession(r.Context(), sess); err != nil {
		s.logger.Warn("session balance update", "error", err)
	}

	respondOK(w, reqID, result)
}

type paymentRequest struct {
	Amount float64 `json:"amount"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := SessionFromContext(r.Context())

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if req.Amount <= 0 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("amount must be positive"))
		return
	}

	link, err := s.api.CreatePayment(r.Context(), req.Amount, sess.User.ID, sess.User.Name)
	if err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}
	respondCreated(w, reqID, link)
}
