package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/minwoo-dev/krx-screener/internal/clients/krx"
	"github.com/minwoo-dev/krx-screener/internal/domain"
	"github.com/minwoo-dev/krx-screener/internal/modules/marketdata"
	"github.com/minwoo-dev/krx-screener/internal/modules/universe"
)

const refreshTimeout = 30 * time.Minute

// RefreshJob pulls the latest daily quotes for the benchmark index and
// every company in the universe into the local database. Failures for a
// single stock are logged and skipped; the job only fails when the
// benchmark itself cannot be refreshed.
type RefreshJob struct {
	client        *krx.Client
	store         *marketdata.Repository
	companies     *universe.CompanyRepository
	benchmarkCode string
	log           zerolog.Logger
}

// NewRefreshJob creates the daily market-data refresh job.
func NewRefreshJob(client *krx.Client, store *marketdata.Repository, companies *universe.CompanyRepository, benchmarkCode string, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		client:        client,
		store:         store,
		companies:     companies,
		benchmarkCode: benchmarkCode,
		log:           log.With().Str("component", "refresh_job").Logger(),
	}
}

// Name returns the job name.
func (j *RefreshJob) Name() string {
	return "market_data_refresh"
}

// Run refreshes today's market data.
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	today := time.Now().Format("20060102")

	indexQuotes, err := j.client.IndexQuotes(ctx, j.benchmarkCode, today, today)
	if err != nil {
		return fmt.Errorf("failed to fetch index quotes: %w", err)
	}
	indexDays := make([]domain.IndexDay, len(indexQuotes))
	for i, q := range indexQuotes {
		indexDays[i] = domain.IndexDay{Date: q.Date, Close: q.Close, TradeQty: q.TradeQty}
	}
	if err := j.store.UpsertIndexDays(indexDays); err != nil {
		return fmt.Errorf("failed to store index days: %w", err)
	}

	companies, err := j.companies.All()
	if err != nil {
		return fmt.Errorf("failed to load universe: %w", err)
	}

	var failed int
	for _, company := range companies {
		quotes, err := j.client.DailyQuotes(ctx, company.StockCode, today, today)
		if err != nil {
			j.log.Warn().Err(err).Str("stock_code", company.StockCode).Msg("Failed to fetch daily quotes")
			failed++
			continue
		}

		days := make([]domain.StockDay, len(quotes))
		for i, q := range quotes {
			days[i] = domain.StockDay{
				StockCode:  company.StockCode,
				Date:       q.Date,
				Close:      q.Close,
				TradeQty:   q.TradeQty,
				MarketCap:  q.MarketCap,
				StockCount: q.StockCount,
			}
		}
		if err := j.store.UpsertStockDays(days); err != nil {
			j.log.Warn().Err(err).Str("stock_code", company.StockCode).Msg("Failed to store daily quotes")
			failed++
		}
	}

	j.log.Info().
		Str("date", today).
		Int("companies", len(companies)).
		Int("failed", failed).
		Msg("Market data refresh complete")

	return nil
}
