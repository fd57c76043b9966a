package marketdata

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minwoo-dev/krx-screener/internal/domain"
)

// Repository reads historical market data out of the main database. It
// backs every provider interface the valuation and optimization engines
// consume: close prices, benchmark index, fundamentals, dividends and
// as-of-date snapshots.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new market data repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "marketdata").Logger(),
	}
}

// ClosePrices returns the daily closing prices of a stock over [start, end],
// chronologically ordered. Dates use the YYYYMMDD format.
func (r *Repository) ClosePrices(stockCode, start, end string) ([]domain.PricePoint, error) {
	rows, err := r.db.Query(`
		SELECT date, close_price
		FROM stock_daily
		WHERE stock_code = ? AND date >= ? AND date <= ?
		ORDER BY date
	`, stockCode, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query close prices for %s: %w", stockCode, err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// IndexPrices returns the benchmark index closing values over [start, end].
func (r *Repository) IndexPrices(start, end string) ([]domain.PricePoint, error) {
	rows, err := r.db.Query(`
		SELECT date, close_price
		FROM kospi
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query index prices: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// Fundamentals returns the fiscal-year record for a stock, or nil when the
// year has not been reported.
func (r *Repository) Fundamentals(stockCode string, year int) (*domain.FundamentalRecord, error) {
	var rec domain.FundamentalRecord
	err := r.db.QueryRow(`
		SELECT stock_code, year, net_profit, capital
		FROM stock_year
		WHERE stock_code = ? AND year = ?
	`, stockCode, year).Scan(&rec.StockCode, &rec.Year, &rec.NetProfit, &rec.Capital)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query fundamentals for %s/%d: %w", stockCode, year, err)
	}
	return &rec, nil
}

// DividendRecords returns every per-share dividend record reported for a
// stock in a fiscal year, one row per share class.
func (r *Repository) DividendRecords(stockCode string, year int) ([]domain.DividendRecord, error) {
	rows, err := r.db.Query(`
		SELECT stock_code, year, share_class, dps
		FROM stock_dividend
		WHERE stock_code = ? AND year = ?
		ORDER BY share_class
	`, stockCode, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividends for %s/%d: %w", stockCode, year, err)
	}
	defer rows.Close()

	var records []domain.DividendRecord
	for rows.Next() {
		var rec domain.DividendRecord
		if err := rows.Scan(&rec.StockCode, &rec.Year, &rec.ShareClass, &rec.DPS); err != nil {
			return nil, fmt.Errorf("failed to scan dividend record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dividend records: %w", err)
	}

	return records, nil
}

// Snapshot returns the closing price and market capitalization of a stock
// as of a trading date, or nil when the date has no observation.
func (r *Repository) Snapshot(stockCode, date string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	var marketCap sql.NullInt64
	err := r.db.QueryRow(`
		SELECT stock_code, date, close_price, market_cap
		FROM stock_daily
		WHERE stock_code = ? AND date = ?
	`, stockCode, date).Scan(&snap.StockCode, &snap.Date, &snap.Price, &marketCap)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query snapshot for %s@%s: %w", stockCode, date, err)
	}

	if marketCap.Valid {
		mc := float64(marketCap.Int64)
		snap.MarketCap = &mc
	}

	return &snap, nil
}

func scanPricePoints(rows *sql.Rows) ([]domain.PricePoint, error) {
	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price points: %w", err)
	}

	return points, nil
}
