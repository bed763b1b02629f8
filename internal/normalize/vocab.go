package normalize

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/copytrade/brokerhub/internal/domain"
)

// Per-broker enum tables. Inputs not present in a table pass through
// upper-cased, so newly added broker enums keep working without a release.

var dhanExchange = map[string]string{
	"NSE":    "NSE_EQ",
	"BSE":    "BSE_EQ",
	"NSEFO":  "NSE_FNO",
	"NSE_FO": "NSE_FNO",
	"NSECD":  "NSE_CURRENCY",
	"BSEFO":  "BSE_FNO",
	"BSECD":  "BSE_CURRENCY",
	"MCX":    "MCX_COMM",
	"NCDEX":  "NCDEX",
}

var dhanProduct = map[string]string{
	"INTRADAY":  "INTRADAY",
	"MIS":       "INTRADAY",
	"VALUEPLUS": "INTRADAY",
	"DELIVERY":  "CNC",
	"CNC":       "CNC",
	"NORMAL":    "MARGIN",
	"NRML":      "MARGIN",
	"MTF":       "MTF",
}

var motilalOrderType = map[string]string{
	domain.OrderTypeLimit:          "LIMIT",
	domain.OrderTypeMarket:         "MARKET",
	domain.OrderTypeStopLoss:       "STOPLOSS",
	domain.OrderTypeStopLossMarket: "SL-M",
}

// DhanExchange maps a generic exchange code onto dhan's segment enum.
func DhanExchange(code string) string {
	return lookup(dhanExchange, code)
}

// DhanProduct maps a generic product code onto dhan's product enum.
func DhanProduct(code string) string {
	return lookup(dhanProduct, code)
}

// MotilalOrderType maps a canonical order type onto motilal's enum.
func MotilalOrderType(canonical string) string {
	return lookup(motilalOrderType, canonical)
}

func lookup(table map[string]string, code string) string {
	key := strings.ToUpper(strings.TrimSpace(code))
	if v, ok := table[key]; ok {
		return v
	}
	return key
}

// ValidateVocabulary cross-checks the enum tables at startup: every synonym
// must land on a canonical type, and every canonical type must have a
// motilal translation. A failure here is a build defect, not runtime input.
func ValidateVocabulary() error {
	canonical := map[string]bool{
		domain.OrderTypeLimit:          true,
		domain.OrderTypeMarket:         true,
		domain.OrderTypeStopLoss:       true,
		domain.OrderTypeStopLossMarket: true,
	}
	for syn, ot := range orderTypeSynonyms {
		if !canonical[ot] {
			return errors.Errorf("synonym %q maps to unknown order type %q", syn, ot)
		}
	}
	for ot := range canonical {
		if _, ok := motilalOrderType[ot]; !ok {
			return errors.Errorf("no motilal translation for order type %q", ot)
		}
	}
	return nil
}
