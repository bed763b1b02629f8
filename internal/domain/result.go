package domain

import "fmt"

// Dispatch outcome states. These are the only values BrokerResponse.Status
// takes; richer broker payloads ride along in Raw.
const (
	StatusSuccess = "success"
	StatusError   = "ERROR"
	StatusSkipped = "skipped"
)

// BrokerResponse is the normalized outcome of one broker call for one row.
type BrokerResponse struct {
	Status  string         `json:"status"`
	OrderID string         `json:"order_id,omitempty"`
	Message string         `json:"message,omitempty"`
	Raw     map[string]any `json:"raw,omitempty"`
}

// OK builds a success response carrying the broker order id.
func OK(orderID, message string) BrokerResponse {
	return BrokerResponse{Status: StatusSuccess, OrderID: orderID, Message: message}
}

// Errf builds a failed response with a formatted reason.
func Errf(format string, args ...any) BrokerResponse {
	return BrokerResponse{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// Skipped marks a row that was produced by expansion but never dispatched.
func Skipped(reason string) BrokerResponse {
	return BrokerResponse{Status: StatusSkipped, Message: reason}
}

// Failed reports whether the response records anything but success.
func (r BrokerResponse) Failed() bool {
	return r.Status != StatusSuccess
}

// DispatchResult maps each row's result key to its outcome. Every expanded
// row, including skips and timeouts, has exactly one entry.
type DispatchResult map[string]BrokerResponse
