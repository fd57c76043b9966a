package marketdata

import (
	"fmt"

	"github.com/minwoo-dev/krx-screener/internal/domain"
)

// Ingestion side of the repository, used by the refresh job and backfills.
// All writes are idempotent upserts keyed on the natural primary key.

// UpsertIndexDays inserts or updates benchmark index observations.
func (r *Repository) UpsertIndexDays(days []domain.IndexDay) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO kospi (date, close_price, trade_qty)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			close_price = excluded.close_price,
			trade_qty = excluded.trade_qty
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare index upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.Exec(d.Date, d.Close, d.TradeQty); err != nil {
			return fmt.Errorf("failed to upsert index day %s: %w", d.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index days: %w", err)
	}

	r.log.Debug().Int("count", len(days)).Msg("Upserted index days")
	return nil
}

// UpsertStockDays inserts or updates daily per-stock observations.
func (r *Repository) UpsertStockDays(days []domain.StockDay) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO stock_daily (stock_code, date, close_price, trade_qty, market_cap, stock_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(stock_code, date) DO UPDATE SET
			close_price = excluded.close_price,
			trade_qty = excluded.trade_qty,
			market_cap = excluded.market_cap,
			stock_count = excluded.stock_count
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare stock day upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.Exec(d.StockCode, d.Date, d.Close, d.TradeQty, nullableInt64(d.MarketCap), nullableInt64(d.StockCount)); err != nil {
			return fmt.Errorf("failed to upsert stock day %s@%s: %w", d.StockCode, d.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stock days: %w", err)
	}

	r.log.Debug().Int("count", len(days)).Msg("Upserted stock days")
	return nil
}

// UpsertFundamentals inserts or updates fiscal-year records.
func (r *Repository) UpsertFundamentals(records []domain.FundamentalRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO stock_year (stock_code, year, net_profit, capital)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(stock_code, year) DO UPDATE SET
			net_profit = excluded.net_profit,
			capital = excluded.capital
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare fundamentals upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.StockCode, rec.Year, rec.NetProfit, rec.Capital); err != nil {
			return fmt.Errorf("failed to upsert fundamentals %s/%d: %w", rec.StockCode, rec.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fundamentals: %w", err)
	}

	r.log.Debug().Int("count", len(records)).Msg("Upserted fundamentals")
	return nil
}

// UpsertDividends inserts or updates per-share dividend records.
func (r *Repository) UpsertDividends(records []domain.DividendRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO stock_dividend (stock_code, year, share_class, dps)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(stock_code, year, share_class) DO UPDATE SET
			dps = excluded.dps
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare dividend upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.StockCode, rec.Year, rec.ShareClass, rec.DPS); err != nil {
			return fmt.Errorf("failed to upsert dividend %s/%d: %w", rec.StockCode, rec.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dividends: %w", err)
	}

	r.log.Debug().Int("count", len(records)).Msg("Upserted dividends")
	return nil
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
