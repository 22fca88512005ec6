package httpapi

import (
	"encoding/json"
	"net/http"

	"example.com/squares/internal/auth"
	"example.com/squares/internal/game"
)

// Legacy single-table endpoints, kept for the pre-multi-table frontend.

func (s *Server) handleSoloState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.solo.Snapshot(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSoloClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, "bad_request", msg)
		return
	}

	if err := s.solo.Claim(r.Context(), req.PlayerName, req.BoxIDs); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type soloAdminRequest struct {
	BoxIDs        []int  `json:"boxIds"`
	AdminPassword string `json:"adminPassword"`
}

func (s *Server) soloAdminAuthorized(w http.ResponseWriter, password string) bool {
	if password == "" || !auth.SecureEqual(password, s.cfg.AdminPassword) {
		writeError(w, http.StatusForbidden, "forbidden", "invalid admin password")
		return false
	}
	return true
}

func (s *Server) handleSoloConfirm(w http.ResponseWriter, r *http.Request) {
	var req soloAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if len(req.BoxIDs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "boxIds must not be empty")
		return
	}
	for _, id := range req.BoxIDs {
		if id < 0 || id >= game.BoxCount {
			writeError(w, http.StatusBadRequest, "bad_request", "boxIds must be between 0 and 99")
			return
		}
	}
	if !s.soloAdminAuthorized(w, req.AdminPassword) {
		return
	}

	if err := s.solo.Confirm(r.Context(), req.BoxIDs); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSoloReveal(w http.ResponseWriter, r *http.Request) {
	var req soloAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if !s.soloAdminAuthorized(w, req.AdminPassword) {
		return
	}

	if err := s.solo.Reveal(r.Context()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
