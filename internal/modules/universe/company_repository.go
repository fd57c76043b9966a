package universe

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minwoo-dev/krx-screener/internal/domain"
)

// CompanyRepository provides access to the screening universe.
type CompanyRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCompanyRepository creates a new company repository.
func NewCompanyRepository(db *sql.DB, log zerolog.Logger) *CompanyRepository {
	return &CompanyRepository{
		db:  db,
		log: log.With().Str("component", "company_repository").Logger(),
	}
}

// All returns every company in the universe, ordered by stock code.
func (r *CompanyRepository) All() ([]domain.Company, error) {
	rows, err := r.db.Query(`
		SELECT stock_code, name, corp_code
		FROM companies
		ORDER BY stock_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.StockCode, &c.Name, &c.CorpCode); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}

	return companies, nil
}

// Get returns a single company, or nil when the stock code is unknown.
func (r *CompanyRepository) Get(stockCode string) (*domain.Company, error) {
	var c domain.Company
	err := r.db.QueryRow(`
		SELECT stock_code, name, corp_code
		FROM companies
		WHERE stock_code = ?
	`, stockCode).Scan(&c.StockCode, &c.Name, &c.CorpCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query company %s: %w", stockCode, err)
	}
	return &c, nil
}

// Upsert inserts or updates companies in the universe.
func (r *CompanyRepository) Upsert(companies []domain.Company) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO companies (stock_code, name, corp_code)
		VALUES (?, ?, ?)
		ON CONFLICT(stock_code) DO UPDATE SET
			name = excluded.name,
			corp_code = excluded.corp_code
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range companies {
		if _, err := stmt.Exec(c.StockCode, c.Name, c.CorpCode); err != nil {
			return fmt.Errorf("failed to upsert company %s: %w", c.StockCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit companies: %w", err)
	}

	r.log.Debug().Int("count", len(companies)).Msg("Upserted companies")
	return nil
}
