package httpapi

import (
	"net/http"
	"strings"

	"example.com/squares/internal/auth"
)

// schedulerHeader is set by the platform scheduler; it is only trusted when
// no CRON_SECRET is configured (dev setups).
const schedulerHeader = "X-Scheduler-Cron"

func (s *Server) cronAuthorized(r *http.Request) bool {
	if s.cfg.CronSecret != "" {
		h := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		return ok && auth.SecureEqual(token, s.cfg.CronSecret)
	}
	v := r.Header.Get(schedulerHeader)
	return v == "1" || v == "true"
}

func (s *Server) handleCronAutoLock(w http.ResponseWriter, r *http.Request) {
	if !s.cronAuthorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid cron credentials")
		return
	}

	locked, err := s.registry.AutoLockSweep(r.Context(), s.now().UnixMilli())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.log.Info("auto-lock sweep finished", "locked", locked)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "locked": locked})
}
