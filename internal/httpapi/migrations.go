// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package httpapi

import (
	"net/http"

	"github.com/samber/oops"
)

type migrationsResponse struct {
	Pending []uint `json:"pending"`
}

type migrationsAppliedResponse struct {
	Applied []uint `json:"applied"`
}

// handleMigrations serves the schema management endpoint: GET is a dry
// run listing pending versions, POST applies them. 201 signals that at
// least one migration ran.
func (s *Server) handleMigrations(w http.ResponseWriter, r *http.Request) {
	if s.migrator == nil {
		s.writeError(w, oops.Code("MIGRATIONS_UNAVAILABLE").Errorf("migrator is not configured"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		pending, err := s.migrator.Pending()
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, migrationsResponse{Pending: pending})

	case http.MethodPost:
		pending, err := s.migrator.Pending()
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.migrator.Up(); err != nil {
			s.writeError(w, err)
			return
		}
		status := http.StatusOK
		if len(pending) > 0 {
			status = http.StatusCreated
			s.logger.Info("migrations applied", "count", len(pending))
		}
		writeJSON(w, status, migrationsAppliedResponse{Applied: pending})

	default:
		w.Header().Set("Allow", "GET, POST")
		s.writePayload(w, payloadMethodNotAllowed)
	}
}
