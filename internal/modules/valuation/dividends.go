package valuation

import "github.com/minwoo-dev/krx-screener/internal/domain"

// DPSTier identifies which preference tier a resolved dividend-per-share
// figure came from, so callers can assert on provenance and flag the
// preferred-only fallback as a data-quality warning.
type DPSTier int

const (
	// TierCommon is the common-share dividend record, the first preference.
	TierCommon DPSTier = iota
	// TierUnclassified is a record with no share-class distinction at all.
	TierUnclassified
	// TierPreferred is the preferred-share fallback, used only when no
	// common-share record exists. Callers should warn on this tier.
	TierPreferred
)

// String returns a stable label for the tier.
func (t DPSTier) String() string {
	switch t {
	case TierCommon:
		return "common"
	case TierUnclassified:
		return "unclassified"
	case TierPreferred:
		return "preferred"
	default:
		return "unknown"
	}
}

// ResolveDPS picks the dividend-per-share figure for one reporting period
// from possibly several share-class records. The preference order is
// evaluated once, explicitly: common share class first, then a record with
// no share-class distinction, then the preferred-share fallback. The
// returned tier tells which preference matched; ok is false when no record
// is usable.
func ResolveDPS(records []domain.DividendRecord) (dps float64, tier DPSTier, ok bool) {
	for _, rec := range records {
		if rec.ShareClass == domain.ShareClassCommon {
			return rec.DPS, TierCommon, true
		}
	}
	for _, rec := range records {
		if rec.ShareClass == "" {
			return rec.DPS, TierUnclassified, true
		}
	}
	for _, rec := range records {
		if rec.ShareClass == domain.ShareClassPreferred {
			return rec.DPS, TierPreferred, true
		}
	}
	return 0, 0, false
}
