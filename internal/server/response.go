package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, nil, nil)
}

// respondCreated writes a 201 response with the standard envelope.
func respondCreated(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusCreated, reqID, data, nil, nil)
}

// respondList writes a success response with pagination.
func respondList(w http.ResponseWriter, reqID string, data any, pg *model.Pagination) {
	respondJSON(w, http.StatusOK, reqID, data, pg, nil)
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, reqID string, status int, apiErr *model.APIError) {
	respondJSON(w, status, reqID, nil, nil, apiErr)
}

// respondUpstreamError maps a gameapi failure onto the envelope. Business
// errors keep their upstream status and message verbatim; transport failures
// collapse to 502.
func respondUpstreamError(w http.ResponseWriter, reqID string, err error) {
	var e *gameapi.Error
	if errors.As(err, &e) && e.Status != 0 && e.Status < 500 {
		respondError(w, reqID, e.Status, &model.APIError{
			Code:    model.ErrUpstream,
			Message: e.Message,
		})
		return
	}
	respondError(w, reqID, http.StatusBadGateway, &model.APIError{
		Code:    model.ErrUpstream,
		Message: "game backend unavailable",
	})
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, pg *model.Pagination, apiErr *model.APIError) {
	resp := model.Response{
		RequestID:  reqID,
		Timestamp:  time.Now().UTC(),
		Data:       data,
		Pagination: pg,
		Error:      apiErr,
	}
	if apiErr != nil {
		resp.Status = "error"
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
