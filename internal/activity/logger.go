// Package activity persists an audit trail of team-scoped mutations.
package activity

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Logger records (team, profile, action, entity, payload) rows.
type Logger struct {
	pool *pgxpool.Pool
}

// NewLogger creates an activity logger backed by the given pool.
func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

// Log writes one activity row. Audit writes are best effort: a failure
// is logged server-side and never fails the request that produced it.
func (l *Logger) Log(ctx context.Context, teamID, profileID int64, action, entityType string, entityID int64, payload map[string]any) {
	var payloadJSON *string
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			s := string(b)
			payloadJSON = &s
		}
	}

	_, err := l.pool.Exec(ctx,
		`INSERT INTO activity_logs (team_id, profile_id, action, entity_type, entity_id, payload)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		teamID, profileID, action, entityType, entityID, payloadJSON,
	)
	if err != nil {
		slog.Error("writing activity log", "error", err, "action", action, "entity_type", entityType)
	}
}
