package httpapi

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"example.com/squares/internal/game"
)

type createTableRequest struct {
	Name        string       `json:"name"`
	PricePerBox float64      `json:"pricePerBox"`
	Payouts     game.Payouts `json:"payouts"`
	Rules       string       `json:"rules"`
	Visibility  string       `json:"visibility"`
	OwnerEmail  string       `json:"ownerEmail"`
	KickoffAt   int64        `json:"kickoffAt"`
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.OwnerEmail = strings.TrimSpace(strings.ToLower(req.OwnerEmail))

	if len(req.Name) < 2 {
		writeError(w, http.StatusBadRequest, "bad_request", "name must be at least 2 characters")
		return
	}
	if req.PricePerBox < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", "pricePerBox must be at least 1")
		return
	}
	if req.Payouts.Q1 < 0 || req.Payouts.Q2 < 0 || req.Payouts.Q3 < 0 || req.Payouts.Final < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "payouts must not be negative")
		return
	}
	if _, err := mail.ParseAddress(req.OwnerEmail); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "ownerEmail is not a valid email")
		return
	}
	visibility := game.Visibility(req.Visibility)
	if visibility != game.VisibilityLink && visibility != game.VisibilityCode {
		writeError(w, http.StatusBadRequest, "bad_request", "visibility must be link or code")
		return
	}

	kickoffAt := req.KickoffAt
	if kickoffAt == 0 {
		kickoffAt = s.cfg.DefaultKickoffAt
	}

	table, err := s.registry.CreateTable(r.Context(), game.CreateTableParams{
		OwnerEmail:  req.OwnerEmail,
		Name:        req.Name,
		PricePerBox: req.PricePerBox,
		Payouts:     req.Payouts,
		Rules:       req.Rules,
		Visibility:  visibility,
		KickoffAt:   kickoffAt,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// The creator gets the admin key exactly once, here.
	writeJSON(w, http.StatusOK, map[string]any{"table": table})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	ownerEmail := r.URL.Query().Get("ownerEmail")
	if ownerEmail == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "missing ownerEmail")
		return
	}

	tables, err := s.registry.ListTablesForOwner(r.Context(), strings.ToLower(ownerEmail))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	public := make([]game.Table, 0, len(tables))
	for _, t := range tables {
		public = append(public, t.Public())
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": public})
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	table, err := s.registry.GetTableByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table.Public()})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	table, err := s.registry.GetTableByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	now := s.now().UnixMilli()
	if s.registry.ShouldAutoLock(table, now) {
		table.Lock = game.Lock{Status: game.LockLocked, Reason: game.LockAuto, LockedAt: now}
		if table, err = s.registry.UpdateTable(r.Context(), table); err != nil {
			s.writeDomainError(w, err)
			return
		}
	}
	if s.registry.ShouldAutoReveal(table, now) {
		if err := s.states.Reveal(r.Context(), table.ID); err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	state, err := s.states.State(r.Context(), table.ID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"table": table.Public(),
		"state": state,
	})
}

type claimRequest struct {
	PlayerName string `json:"playerName"`
	BoxIDs     []int  `json:"boxIds"`
}

func (req *claimRequest) validate() (string, bool) {
	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if req.PlayerName == "" {
		return "playerName is required", false
	}
	if len(req.BoxIDs) == 0 {
		return "boxIds must not be empty", false
	}
	for _, id := range req.BoxIDs {
		if id < 0 || id >= game.BoxCount {
			return "boxIds must be between 0 and 99", false
		}
	}
	return "", true
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	table, err := s.registry.GetTableByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	now := s.now().UnixMilli()
	if s.registry.ShouldAutoLock(table, now) {
		table.Lock = game.Lock{Status: game.LockLocked, Reason: game.LockAuto, LockedAt: now}
		if table, err = s.registry.UpdateTable(r.Context(), table); err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, "bad_request", msg)
		return
	}

	if _, err := s.flow.ClaimBoxes(r.Context(), table, req.PlayerName, req.BoxIDs); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
