package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"example.com/squares/internal/auth"
	"example.com/squares/internal/game"
	"example.com/squares/internal/store"
)

// adminTable resolves the table and checks the submitted admin key.
func (s *Server) adminTable(w http.ResponseWriter, r *http.Request, adminKey string) (game.Table, bool) {
	table, err := s.registry.GetTableByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return game.Table{}, false
	}
	if adminKey == "" || !auth.SecureEqual(adminKey, table.AdminKey) {
		writeError(w, http.StatusForbidden, "forbidden", "invalid admin key")
		return game.Table{}, false
	}
	return table, true
}

type adminLockRequest struct {
	Status   string `json:"status"`
	AdminKey string `json:"adminKey"`
}

func (s *Server) handleAdminLock(w http.ResponseWriter, r *http.Request) {
	var req adminLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	status := game.LockStatus(req.Status)
	if status != game.LockOpen && status != game.LockLocked {
		writeError(w, http.StatusBadRequest, "bad_request", "status must be open or locked")
		return
	}

	table, ok := s.adminTable(w, r, req.AdminKey)
	if !ok {
		return
	}

	now := s.now()
	if status == game.LockLocked {
		table.Lock = game.Lock{Status: game.LockLocked, Reason: game.LockManual, LockedAt: now.UnixMilli()}
	} else {
		previousReason := table.Lock.Reason
		table.Lock = game.Lock{
			Status:     game.LockOpen,
			Reason:     previousReason,
			UnlockedAt: now.UnixMilli(),
			UnlockedBy: "admin",
		}
		ev := store.AuditEvent{
			ID:        uuid.NewString(),
			TableID:   table.ID,
			Type:      "unlock",
			UserID:    "admin",
			Meta:      map[string]any{"previousReason": reasonOrUnknown(previousReason)},
			CreatedAt: now,
		}
		if err := s.audit.Append(r.Context(), ev); err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	if _, err := s.registry.UpdateTable(r.Context(), table); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func reasonOrUnknown(r game.LockReason) string {
	if r == "" {
		return "unknown"
	}
	return string(r)
}

type adminKeyRequest struct {
	AdminKey string `json:"adminKey"`
}

func (s *Server) handleAdminReveal(w http.ResponseWriter, r *http.Request) {
	var req adminKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}

	table, ok := s.adminTable(w, r, req.AdminKey)
	if !ok {
		return
	}

	if err := s.states.Reveal(r.Context(), table.ID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type adminBoxesRequest struct {
	BoxIDs   []int  `json:"boxIds"`
	All      bool   `json:"all"`
	AdminKey string `json:"adminKey"`
}

func (req *adminBoxesRequest) validate(allowAll bool) (string, bool) {
	if allowAll && req.All {
		return "", true
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

func (s *Server) handleAdminConfirm(w http.ResponseWriter, r *http.Request) {
	var req adminBoxesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if msg, ok := req.validate(true); !ok {
		writeError(w, http.StatusBadRequest, "bad_request", msg)
		return
	}

	table, ok := s.adminTable(w, r, req.AdminKey)
	if !ok {
		return
	}

	var err error
	if req.All {
		err = s.flow.ConfirmAll(r.Context(), table.ID)
	} else {
		err = s.flow.ConfirmBoxes(r.Context(), table.ID, req.BoxIDs)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminReject(w http.ResponseWriter, r *http.Request) {
	var req adminBoxesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if msg, ok := req.validate(false); !ok {
		writeError(w, http.StatusBadRequest, "bad_request", msg)
		return
	}

	table, ok := s.adminTable(w, r, req.AdminKey)
	if !ok {
		return
	}

	// The dashboard may revoke confirmed boxes too, not just pending ones.
	if err := s.flow.RejectBoxes(r.Context(), table.ID, req.BoxIDs, true); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
