package domain

// OrderRow is one order-book line normalized across brokers for reporting.
type OrderRow struct {
	Name            string  `json:"name"`
	ClientID        string  `json:"client_id"`
	Symbol          string  `json:"symbol"`
	TransactionType string  `json:"transaction_type"`
	Quantity        int     `json:"quantity"`
	Price           float64 `json:"price"`
	Status          string  `json:"status"`
	OrderID         string  `json:"order_id"`
}

// Position is one net position line. Quantity zero means the position is
// closed for the day.
type Position struct {
	Name      string  `json:"name"`
	ClientID  string  `json:"client_id"`
	Symbol    string  `json:"symbol"`
	Quantity  int     `json:"quantity"`
	BuyAvg    float64 `json:"buy_avg"`
	SellAvg   float64 `json:"sell_avg"`
	LTP       float64 `json:"ltp"`
	NetProfit float64 `json:"net_profit"`
}

// Holding is one demat holding line with its current valuation.
type Holding struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	BuyAvg   float64 `json:"buy_avg"`
	LTP      float64 `json:"ltp"`
	PnL      float64 `json:"pnl"`
}

// AccountSummary is the per-account rollup shown on the summary page.
type AccountSummary struct {
	Name            string  `json:"name"`
	Capital         float64 `json:"capital"`
	Invested        float64 `json:"invested"`
	CurrentValue    float64 `json:"current_value"`
	PnL             float64 `json:"pnl"`
	AvailableMargin float64 `json:"available_margin"`
	NetGain         float64 `json:"net_gain"`
}

// HoldingsReport bundles one account's holdings with its summary line.
type HoldingsReport struct {
	Holdings []Holding      `json:"holdings"`
	Summary  AccountSummary `json:"summary"`
}

// ConvertRequest asks a broker to move an open position between product
// types (for example intraday to delivery).
type ConvertRequest struct {
	ClientID    string `json:"client_id"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	SecurityID  string `json:"security_id"`
	Exchange    string `json:"exchange"`
	Action      string `json:"action"`
	FromProduct string `json:"from_product"`
	ToProduct   string `json:"to_product"`
	Quantity    int    `json:"quantity"`
}
