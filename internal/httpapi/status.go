// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

// StatusDB is the read-only surface the status endpoint introspects.
// pgxpool.Pool satisfies it.
type StatusDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type databaseStatus struct {
	Version            string `json:"version"`
	MaxConnections     int    `json:"max_connections"`
	CurrentConnections int    `json:"current_connections"`
}

type statusDependencies struct {
	Database databaseStatus `json:"database"`
}

type statusResponse struct {
	UpdatedAt    time.Time          `json:"updated_at"`
	Dependencies statusDependencies `json:"dependencies"`
}

// handleStatus serves GET /api/v1/status: database version and
// connection headroom for the configured database.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.statusDB == nil {
		s.writeError(w, oops.Code("STATUS_UNAVAILABLE").Errorf("status database is not configured"))
		return
	}

	ctx := r.Context()

	var version string
	if err := s.statusDB.QueryRow(ctx, `SHOW server_version`).Scan(&version); err != nil {
		s.writeError(w, oops.Code("STATUS_QUERY_FAILED").
			With("operation", "show server_version").
			Wrap(err))
		return
	}

	// SHOW returns text regardless of the setting's type.
	var maxConnsText string
	if err := s.statusDB.QueryRow(ctx, `SHOW max_connections`).Scan(&maxConnsText); err != nil {
		s.writeError(w, oops.Code("STATUS_QUERY_FAILED").
			With("operation", "show max_connections").
			Wrap(err))
		return
	}
	maxConns, err := strconv.Atoi(maxConnsText)
	if err != nil {
		s.writeError(w, oops.Code("STATUS_QUERY_FAILED").
			With("operation", "parse max_connections").
			With("value", maxConnsText).
			Wrap(err))
		return
	}

	var currentConns int
	err = s.statusDB.QueryRow(ctx,
		`SELECT COUNT(*)::int FROM pg_stat_activity WHERE datname = $1`,
		s.dbName,
	).Scan(&currentConns)
	if err != nil {
		s.writeError(w, oops.Code("STATUS_QUERY_FAILED").
			With("operation", "count connections").
			With("database", s.dbName).
			Wrap(err))
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		UpdatedAt: time.Now().UTC(),
		Dependencies: statusDependencies{
			Database: databaseStatus{
				Version:            version,
				MaxConnections:     maxConns,
				CurrentConnections: currentConns,
			},
		},
	})
}
