package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"example.com/squares/internal/game"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, ErrorResponse{Code: errCode, Message: msg})
}

// writeDomainError maps domain sentinels onto the HTTP error taxonomy.
// Anything unrecognized is a storage-level failure and surfaces as 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "table not found")
	case errors.Is(err, game.ErrTableLocked):
		writeError(w, http.StatusForbidden, "table_locked", "table is locked")
	case errors.Is(err, game.ErrBoxUnavailable):
		writeError(w, http.StatusConflict, "conflict", "some boxes are no longer available")
	case errors.Is(err, game.ErrPayoutMismatch):
		writeError(w, http.StatusBadRequest, "bad_request", "payouts must equal the total pot")
	case errors.Is(err, game.ErrCodeExhausted):
		writeError(w, http.StatusConflict, "conflict", "could not allocate a table code")
	default:
		s.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
