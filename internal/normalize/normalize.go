// Package normalize owns the order vocabulary: canonical order types, the
// per-broker enum tables, and the row-level validation applied before any
// broker call.
package normalize

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/copytrade/brokerhub/internal/domain"
)

// orderTypeSynonyms folds every accepted spelling onto a canonical type.
// Keys are upper-cased with spaces, hyphens and underscores stripped.
var orderTypeSynonyms = map[string]string{
	"LIMIT":          domain.OrderTypeLimit,
	"LMT":            domain.OrderTypeLimit,
	"MARKET":         domain.OrderTypeMarket,
	"MKT":            domain.OrderTypeMarket,
	"STOPLOSS":       domain.OrderTypeStopLoss,
	"SL":             domain.OrderTypeStopLoss,
	"SLLIMIT":        domain.OrderTypeStopLoss,
	"STOPLOSSLIMIT":  domain.OrderTypeStopLoss,
	"STOPLOSSMARKET": domain.OrderTypeStopLossMarket,
	"SLM":            domain.OrderTypeStopLossMarket,
	"SLMARKET":       domain.OrderTypeStopLossMarket,
}

// CanonicalOrderType maps any accepted synonym onto the canonical type.
// Unknown inputs come back upper-cased so validation can name them.
func CanonicalOrderType(s string) string {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	if ot, ok := orderTypeSynonyms[key]; ok {
		return ot
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// NeedsPrice reports whether the canonical type requires a limit price.
func NeedsPrice(orderType string) bool {
	return orderType == domain.OrderTypeLimit || orderType == domain.OrderTypeStopLoss
}

// NeedsTrigger reports whether the canonical type requires a trigger price.
func NeedsTrigger(orderType string) bool {
	return orderType == domain.OrderTypeStopLoss || orderType == domain.OrderTypeStopLossMarket
}

// InferOrderType derives the canonical type from which price fields are set,
// used when a modify request and the broker snapshot both omit the type.
func InferOrderType(price, trigger float64) string {
	switch {
	case price > 0 && trigger > 0:
		return domain.OrderTypeStopLoss
	case trigger > 0:
		return domain.OrderTypeStopLossMarket
	case price > 0:
		return domain.OrderTypeLimit
	default:
		return domain.OrderTypeMarket
	}
}

// ValidateIntent checks the caller-facing invariants on a single intent
// before expansion: side, type, and the price fields its type requires.
func ValidateIntent(in *domain.OrderIntent) error {
	switch strings.ToUpper(in.Action) {
	case domain.ActionBuy, domain.ActionSell:
	default:
		return errors.Errorf("invalid transaction type %q", in.Action)
	}
	ot := CanonicalOrderType(in.OrderType)
	switch ot {
	case domain.OrderTypeLimit, domain.OrderTypeMarket,
		domain.OrderTypeStopLoss, domain.OrderTypeStopLossMarket:
	default:
		return errors.Errorf("invalid order type %q", in.OrderType)
	}
	if NeedsPrice(ot) && in.Price <= 0 {
		return errors.Errorf("%s order requires a positive price", ot)
	}
	if NeedsTrigger(ot) && in.TriggerPrice <= 0 {
		return errors.Errorf("%s order requires a positive trigger price", ot)
	}
	return nil
}

// ValidateRow checks one expanded dispatch row. Skip rows pass untouched.
func ValidateRow(row *domain.PerClientOrder) error {
	if row.Skip {
		return nil
	}
	if err := ValidateIntent(&row.OrderIntent); err != nil {
		return err
	}
	if row.Qty <= 0 {
		return errors.Errorf("quantity must be positive, got %d", row.Qty)
	}
	if row.SecurityID == "" {
		return errors.New("unresolved security id")
	}
	return nil
}

// Canonicalize rewrites a row in place to the canonical vocabulary and
// zeroes price fields its order type does not use.
func Canonicalize(row *domain.PerClientOrder) {
	row.Action = strings.ToUpper(strings.TrimSpace(row.Action))
	row.OrderType = CanonicalOrderType(row.OrderType)
	if !NeedsPrice(row.OrderType) {
		row.Price = 0
	}
	if !NeedsTrigger(row.OrderType) {
		row.TriggerPrice = 0
	}
	if row.Validity == "" {
		row.Validity = "DAY"
	}
	if row.CorrelationID == "" {
		row.CorrelationID = NewCorrelationID()
	}
}

// NewCorrelationID issues a compact tag usable as a broker correlation id.
func NewCorrelationID() string {
	return "BH-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// SharesToLots converts a share quantity to exchange lots, rounding down but
// never below one lot. minLot values below one are treated as one.
func SharesToLots(shares, minLot int) int {
	if minLot <= 1 {
		return shares
	}
	lots := shares / minLot
	if lots < 1 {
		lots = 1
	}
	return lots
}

// LotsToShares is the inverse of SharesToLots for read-back paths.
func LotsToShares(lots, minLot int) int {
	if minLot <= 1 {
		return lots
	}
	return lots * minLot
}
