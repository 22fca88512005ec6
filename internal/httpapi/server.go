package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"example.com/squares/internal/game"
	"example.com/squares/internal/store"
)

// AuditLog is the append-only trail of privileged actions.
type AuditLog interface {
	Append(ctx context.Context, ev store.AuditEvent) error
	ListForTable(ctx context.Context, tableID string) ([]store.AuditEvent, error)
}

type Config struct {
	Env                    string
	AdminPassword          string // legacy single-table admin
	SuperadminPassword     string
	SuperadminPasswordHash string
	SessionSecret          []byte
	SessionTTL             time.Duration
	CronSecret             string
	DefaultKickoffAt       int64 // unix millis, used when a create request omits kickoffAt
}

type Server struct {
	cfg Config
	log *slog.Logger

	registry *game.Registry
	states   *game.StateStore
	flow     *game.Workflow
	solo     *game.SoloStore
	audit    AuditLog

	now func() time.Time
}

func NewServer(cfg Config, log *slog.Logger, registry *game.Registry, states *game.StateStore, flow *game.Workflow, solo *game.SoloStore, audit AuditLog) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		registry: registry,
		states:   states,
		flow:     flow,
		solo:     solo,
		audit:    audit,
		now:      time.Now,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tables", s.handleCreateTable)
	mux.HandleFunc("GET /api/tables", s.handleListTables)
	mux.HandleFunc("GET /api/tables/{code}", s.handleGetTable)
	mux.HandleFunc("GET /api/tables/{code}/state", s.handleGetState)
	mux.HandleFunc("POST /api/tables/{code}/claim", s.handleClaim)
	mux.HandleFunc("POST /api/tables/{code}/admin/lock", s.handleAdminLock)
	mux.HandleFunc("POST /api/tables/{code}/admin/reveal", s.handleAdminReveal)
	mux.HandleFunc("POST /api/tables/{code}/admin/confirm", s.handleAdminConfirm)
	mux.HandleFunc("POST /api/tables/{code}/admin/reject", s.handleAdminReject)

	mux.HandleFunc("GET /api/cron/auto-lock", s.handleCronAutoLock)

	mux.HandleFunc("POST /api/superadmin/login", s.handleSuperadminLogin)
	mux.HandleFunc("POST /api/superadmin/logout", s.handleSuperadminLogout)
	mux.Handle("GET /api/superadmin/tables", s.requireSuperadmin(s.handleSuperadminTables))
	mux.Handle("GET /api/superadmin/tables/{code}/audit", s.requireSuperadmin(s.handleSuperadminAudit))

	// Legacy single-table surface.
	mux.HandleFunc("GET /api/state", s.handleSoloState)
	mux.HandleFunc("POST /api/claim", s.handleSoloClaim)
	mux.HandleFunc("POST /api/admin/confirm", s.handleSoloConfirm)
	mux.HandleFunc("POST /api/admin/reveal", s.handleSoloReveal)
}
