package domain

import "strings"

// Canonical order types. Adapters translate these into each broker's own
// enum vocabulary; nothing downstream of normalization sees a synonym.
const (
	OrderTypeLimit          = "LIMIT"
	OrderTypeMarket         = "MARKET"
	OrderTypeStopLoss       = "STOP_LOSS"
	OrderTypeStopLossMarket = "STOP_LOSS_MARKET"
)

// Transaction sides.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Quantity policies controlling how the per-row quantity is derived during
// target expansion.
const (
	PolicyManual     = "manual"
	PolicyPerClient  = "perClient"
	PolicyPerGroup   = "perGroup"
	PolicyMultiplier = "multiplier"
	PolicyAuto       = "auto"
)

// QuantitySpec carries the base quantity plus any per-target overrides.
// Quantities are always expressed in shares; lot handling is an adapter
// concern.
type QuantitySpec struct {
	Policy    string         `json:"policy"`
	Base      int            `json:"base"`
	PerClient map[string]int `json:"per_client,omitempty"`
	PerGroup  map[string]int `json:"per_group,omitempty"`
}

// OrderIntent is a single caller-supplied order before expansion. Symbol is
// the compact instrument reference; SecurityID is filled per row once the
// target broker is known.
type OrderIntent struct {
	Action        string  `json:"action"`
	OrderType     string  `json:"ordertype"`
	ProductType   string  `json:"producttype"`
	Validity      string  `json:"orderduration"`
	Exchange      string  `json:"exchange"`
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	TriggerPrice  float64 `json:"trigger_price"`
	DisclosedQty  int     `json:"disclosed_qty"`
	AMO           bool    `json:"amoorder"`
	CorrelationID string  `json:"correlationId"`

	Quantity QuantitySpec `json:"quantity"`
}

// PerClientOrder is one fully resolved dispatch row: a copy of the intent
// bound to a concrete client, broker and share quantity. Skip rows survive
// expansion so the result map stays complete.
type PerClientOrder struct {
	OrderIntent

	ClientID   string `json:"client_id"`
	Broker     string `json:"broker"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	SecurityID string `json:"security_id"`
	MinLot     int    `json:"min_lot"`
	Tag        string `json:"tag"`
	Skip       bool   `json:"skip"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// ResultKey identifies the row in the dispatch result map: "tag:clientId"
// when a tag is present, the bare client id otherwise.
func (o *PerClientOrder) ResultKey() string {
	if strings.TrimSpace(o.Tag) != "" {
		return o.Tag + ":" + o.ClientID
	}
	return o.ClientID
}

// OrderSnapshot is the broker's current view of a working order, fetched
// immediately before a modify so stale client state never wins.
type OrderSnapshot struct {
	OrderID          string  `json:"order_id"`
	SecurityID       string  `json:"security_id"`
	Quantity         int     `json:"quantity"`
	OrderType        string  `json:"ordertype"`
	Price            float64 `json:"price"`
	TriggerPrice     float64 `json:"trigger_price"`
	Validity         string  `json:"validity"`
	Status           string  `json:"status"`
	LastModifiedTime string  `json:"lastmodifiedtime"`
}

// ModifyRequest is a caller's modify instruction for one working order.
// Unset fields (zero values, or NO_CHANGE for the type) mean "keep the
// broker's current value".
type ModifyRequest struct {
	ClientID     string  `json:"client_id"`
	Name         string  `json:"name"`
	OrderID      string  `json:"order_id"`
	OrderType    string  `json:"ordertype"`
	Price        float64 `json:"price"`
	TriggerPrice float64 `json:"trigger_price"`
	Quantity     int     `json:"quantity"`
	Validity     string  `json:"validity"`
}

// SymbolRef is one resolved instrument: per-broker security identifiers plus
// the exchange lot size.
type SymbolRef struct {
	Exchange     string `json:"exchange"`
	Symbol       string `json:"symbol"`
	DhanID       string `json:"dhan_id"`
	MotilalToken string `json:"motilal_token"`
	MinLot       int    `json:"min_lot"`
}

// SecurityIDFor picks the identifier the given broker understands.
func (r *SymbolRef) SecurityIDFor(brokerName string) string {
	if r == nil {
		return ""
	}
	switch brokerName {
	case BrokerMotilal:
		return r.MotilalToken
	default:
		return r.DhanID
	}
}
