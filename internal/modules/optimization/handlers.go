package optimization

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/minwoo-dev/krx-screener/internal/modules/universe"
)

// DefaultLambdas is the risk-aversion sweep used when the request does not
// provide one.
var DefaultLambdas = []float64{0.5, 1, 2, 5, 10}

// Handler handles HTTP requests for the optimization module.
type Handler struct {
	service     *Service
	companies   *universe.CompanyRepository
	resultsDir  string
	windowYears int
	log         zerolog.Logger
}

// NewHandler creates a new optimization handler.
func NewHandler(service *Service, companies *universe.CompanyRepository, resultsDir string, windowYears int, log zerolog.Logger) *Handler {
	return &Handler{
		service:     service,
		companies:   companies,
		resultsDir:  resultsDir,
		windowYears: windowYears,
		log:         log.With().Str("component", "optimization_handler").Logger(),
	}
}

// runRequest is the POST /api/optimize/run body.
type runRequest struct {
	StockCodes []string  `json:"stock_codes"`
	Lambdas    []float64 `json:"lambdas,omitempty"`
	Date       string    `json:"date,omitempty"` // YYYYMMDD, default today
}

// HandleRun handles POST /api/optimize/run - optimizes a candidate set
// over the trailing window and writes the weight charts to the results
// directory.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.StockCodes) == 0 {
		h.writeError(w, http.StatusBadRequest, "stock_codes is required")
		return
	}

	lambdas := req.Lambdas
	if len(lambdas) == 0 {
		lambdas = DefaultLambdas
	}

	end := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse(DateFormat, req.Date)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "date must be YYYYMMDD")
			return
		}
		end = parsed
	}
	start := end.AddDate(-h.windowYears, 0, 0)

	h.log.Info().
		Int("candidates", len(req.StockCodes)).
		Int("lambdas", len(lambdas)).
		Msg("Running portfolio optimization")

	result, err := h.service.Optimize(req.StockCodes, lambdas, start, end)
	if err != nil {
		if errors.Is(err, ErrEmptyReturns) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Optimization failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	chartPaths := h.saveCharts(result, end)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"result": result,
		"charts": chartPaths,
	})
}

// saveCharts renders and writes the sweep and Sharpe charts. Chart
// failures are logged, not fatal; the numeric result is still returned.
func (h *Handler) saveCharts(result *Result, asOf time.Time) map[string]string {
	paths := make(map[string]string)

	names, err := h.companyNames()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to load company names for charts")
	}

	if err := os.MkdirAll(h.resultsDir, 0755); err != nil {
		h.log.Warn().Err(err).Msg("Failed to create results directory")
		return paths
	}

	stamp := asOf.Format(DateFormat)

	if png, err := RenderLambdaChart(result, names); err != nil {
		h.log.Warn().Err(err).Msg("Failed to render lambda chart")
	} else {
		path := filepath.Join(h.resultsDir, fmt.Sprintf("lambda_%s.png", stamp))
		if err := os.WriteFile(path, png, 0644); err != nil {
			h.log.Warn().Err(err).Str("path", path).Msg("Failed to write lambda chart")
		} else {
			paths["lambda"] = path
		}
	}

	if png, err := RenderSharpeChart(result, names); err != nil {
		h.log.Warn().Err(err).Msg("Failed to render sharpe chart")
	} else {
		path := filepath.Join(h.resultsDir, fmt.Sprintf("sharpe_%s.png", stamp))
		if err := os.WriteFile(path, png, 0644); err != nil {
			h.log.Warn().Err(err).Str("path", path).Msg("Failed to write sharpe chart")
		} else {
			paths["sharpe"] = path
		}
	}

	return paths
}

func (h *Handler) companyNames() (map[string]string, error) {
	companies, err := h.companies.All()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(companies))
	for _, c := range companies {
		names[c.StockCode] = c.Name
	}
	return names, nil
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
