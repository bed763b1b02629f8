package domain

import "strings"

// Status buckets for order-book reporting.
const (
	BucketPending   = "pending"
	BucketTraded    = "traded"
	BucketRejected  = "rejected"
	BucketCancelled = "cancelled"
	BucketOthers    = "others"
)

// statusRules are evaluated in order against the lowercased broker status;
// the first substring hit wins. "confirm" covers brokers that report queued
// orders as Confirm/Confirmed.
var statusRules = []struct {
	substr string
	bucket string
}{
	{"pend", BucketPending},
	{"confirm", BucketPending},
	{"trade", BucketTraded},
	{"executed", BucketTraded},
	{"reject", BucketRejected},
	{"error", BucketRejected},
	{"cancel", BucketCancelled},
}

// ClassifyStatus maps a raw broker order status onto a reporting bucket.
// Unknown statuses land in others rather than being dropped.
func ClassifyStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, r := range statusRules {
		if strings.Contains(s, r.substr) {
			return r.bucket
		}
	}
	return BucketOthers
}

// Buckets returns the reporting buckets in display order.
func Buckets() []string {
	return []string{BucketPending, BucketTraded, BucketRejected, BucketCancelled, BucketOthers}
}
