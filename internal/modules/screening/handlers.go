package screening

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/minwoo-dev/krx-screener/internal/modules/universe"
)

// Handler handles HTTP requests for the screening module.
type Handler struct {
	service   *Service
	companies *universe.CompanyRepository
	log       zerolog.Logger
}

// NewHandler creates a new screening handler.
func NewHandler(service *Service, companies *universe.CompanyRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		companies: companies,
		log:       log.With().Str("component", "screening_handler").Logger(),
	}
}

// HandleScreen handles GET /api/screen - screens the whole universe.
// Optional ?date=YYYYMMDD selects the as-of date (default today); with
// ?undervalued=true only flagged verdicts are returned.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(DateFormat, raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "date must be YYYYMMDD")
			return
		}
		asOf = parsed
	}

	candidates, err := h.companies.All()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load universe")
		h.writeError(w, http.StatusInternalServerError, "Failed to load universe")
		return
	}
	if len(candidates) == 0 {
		h.writeError(w, http.StatusBadRequest, "No companies in universe")
		return
	}

	report, err := h.service.Screen(candidates, asOf)
	if err != nil {
		h.log.Error().Err(err).Msg("Screen failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.URL.Query().Get("undervalued") == "true" {
		report = &Report{
			AsOf:       report.AsOf,
			Verdicts:   report.Undervalued(),
			Exclusions: report.Exclusions,
		}
	}

	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
