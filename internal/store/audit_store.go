package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent is one append-only log entry. Currently only manual unlocks
// are recorded.
type AuditEvent struct {
	ID        string
	TableID   string
	Type      string
	UserID    string
	Meta      map[string]any
	CreatedAt time.Time
}

type AuditStore struct {
	db *pgxpool.Pool
}

func NewAuditStore(db *pgxpool.Pool) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, ev AuditEvent) error {
	meta := ev.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal audit meta: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO audit_events (id, table_id, type, user_id, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.TableID, ev.Type, ev.UserID, metaJSON, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *AuditStore) ListForTable(ctx context.Context, tableID string) ([]AuditEvent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, table_id, type, user_id, meta, created_at
		 FROM audit_events
		 WHERE table_id = $1
		 ORDER BY created_at`,
		tableID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		var metaJSON []byte
		if err := rows.Scan(&ev.ID, &ev.TableID, &ev.Type, &ev.UserID, &metaJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &ev.Meta); err != nil {
				return nil, fmt.Errorf("decode audit meta: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
