package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleCompanies handles GET /api/companies - lists the universe.
func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.cfg.Companies.All()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load companies")
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load companies"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(companies),
		"companies": companies,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}
