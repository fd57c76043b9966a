package domain

// Share classes carried on dividend records. The empty string means the
// reporting source made no share-class distinction for that record.
const (
	ShareClassCommon    = "common"
	ShareClassPreferred = "preferred"
)

// Company identifies a listed company in the screening universe.
type Company struct {
	StockCode string `json:"stock_code"`
	Name      string `json:"name"`
	CorpCode  string `json:"corp_code"`
}

// PricePoint is one dated closing price. Dates use the YYYYMMDD format
// throughout, so lexicographic order is chronological order.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// ReturnPoint is a dated simple return derived from two consecutive
// available closing prices.
type ReturnPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// IndexDay is one daily benchmark index observation.
type IndexDay struct {
	Date     string  `json:"date"`
	Close    float64 `json:"close"`
	TradeQty int64   `json:"trade_qty"`
}

// StockDay is one daily per-stock observation. Market cap and share count
// are not reported for every listing.
type StockDay struct {
	StockCode  string  `json:"stock_code"`
	Date       string  `json:"date"`
	Close      float64 `json:"close"`
	TradeQty   int64   `json:"trade_qty"`
	MarketCap  *int64  `json:"market_cap,omitempty"`
	StockCount *int64  `json:"stock_count,omitempty"`
}

// FundamentalRecord holds the per-fiscal-year figures the residual-income
// model consumes. Amounts are in currency units as reported.
type FundamentalRecord struct {
	StockCode string `json:"stock_code"`
	Year      int    `json:"year"`
	NetProfit int64  `json:"net_profit"`
	Capital   int64  `json:"capital"`
}

// DividendRecord is one per-share dividend figure for a fiscal year and
// share class.
type DividendRecord struct {
	StockCode  string  `json:"stock_code"`
	Year       int     `json:"year"`
	ShareClass string  `json:"share_class"`
	DPS        float64 `json:"dps"`
}

// Snapshot is the current price and market capitalization of a stock as of
// a given date. MarketCap is nil when the source did not report one.
type Snapshot struct {
	StockCode string   `json:"stock_code"`
	Date      string   `json:"date"`
	Price     float64  `json:"price"`
	MarketCap *float64 `json:"market_cap,omitempty"`
}
