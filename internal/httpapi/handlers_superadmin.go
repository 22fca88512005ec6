package httpapi

import (
	"encoding/json"
	"net/http"

	"example.com/squares/internal/auth"
	"example.com/squares/internal/store"
)

const sessionCookie = "superadmin_session"

type superadminLoginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleSuperadminLogin(w http.ResponseWriter, r *http.Request) {
	var req superadminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}

	if !auth.VerifyPassword(req.Password, s.cfg.SuperadminPassword, s.cfg.SuperadminPasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid password")
		return
	}

	token, err := auth.SignSession(s.cfg.SessionSecret, auth.RoleSuperadmin, s.cfg.SessionTTL)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.cfg.Env == "prod",
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSuperadminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.cfg.Env == "prod",
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) requireSuperadmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		claims, err := auth.VerifySession(s.cfg.SessionSecret, c.Value)
		if err != nil || claims.Role != auth.RoleSuperadmin {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleSuperadminTables lists every table, admin keys included: the
// superadmin is the operator of record.
func (s *Server) handleSuperadminTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.registry.ListAllTables(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

type auditEventView struct {
	ID        string         `json:"id"`
	TableID   string         `json:"tableId"`
	Type      string         `json:"type"`
	UserID    string         `json:"userId"`
	CreatedAt int64          `json:"createdAt"`
	Meta      map[string]any `json:"meta,omitempty"`
}

func (s *Server) handleSuperadminAudit(w http.ResponseWriter, r *http.Request) {
	table, err := s.registry.GetTableByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	events, err := s.audit.ListForTable(r.Context(), table.ID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	views := make([]auditEventView, 0, len(events))
	for _, ev := range events {
		views = append(views, auditEventView{
			ID:        ev.ID,
			TableID:   ev.TableID,
			Type:      ev.Type,
			UserID:    ev.UserID,
			CreatedAt: ev.CreatedAt.UnixMilli(),
			Meta:      ev.Meta,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": views})
}

var _ AuditLog = (*store.AuditStore)(nil)
