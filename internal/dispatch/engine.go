// Package dispatch fans expanded order rows out to their brokers, one
// goroutine per row, and joins them into a complete result map.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/normalize"
	"github.com/copytrade/brokerhub/internal/ports"
	"github.com/copytrade/brokerhub/pkg/logger"
)

const (
	DefaultCallTimeout = 15 * time.Second
	DefaultJoinTimeout = 30 * time.Second
)

type Engine struct {
	registry *broker.Registry
	accounts ports.CredentialResolver

	// CallTimeout bounds each broker call; JoinTimeout bounds the whole
	// fan-out, after which unfinished rows are reported as timed out.
	CallTimeout time.Duration
	JoinTimeout time.Duration
}

func NewEngine(registry *broker.Registry, accounts ports.CredentialResolver) *Engine {
	return &Engine{
		registry:    registry,
		accounts:    accounts,
		CallTimeout: DefaultCallTimeout,
		JoinTimeout: DefaultJoinTimeout,
	}
}

// collector is the shared result sink. First write per key wins, so a row
// that straggles in after its timeout entry cannot overwrite it.
type collector struct {
	mu sync.Mutex
	m  domain.DispatchResult
}

func (c *collector) put(key string, resp domain.BrokerResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists {
		c.m[key] = resp
	}
}

func (c *collector) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.m[key]
	return exists
}

// Dispatch places every row concurrently and returns one entry per row.
// A row failure never aborts its siblings; panics in a worker are contained
// to that row's entry.
func (e *Engine) Dispatch(ctx context.Context, rows []*domain.PerClientOrder) domain.DispatchResult {
	out := &collector{m: make(domain.DispatchResult, len(rows))}

	var wg sync.WaitGroup
	for _, row := range rows {
		if row.Skip {
			out.put(row.ResultKey(), domain.Skipped(row.SkipReason))
			continue
		}
		wg.Add(1)
		go func(row *domain.PerClientOrder) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("dispatch panic for %s: %v", row.ResultKey(), r)
					out.put(row.ResultKey(), domain.Errf("internal error: %v", r))
				}
			}()
			out.put(row.ResultKey(), e.placeOne(ctx, row))
		}(row)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(e.JoinTimeout):
		logger.Warnf("dispatch join timed out after %s with %d rows", e.JoinTimeout, len(rows))
	case <-ctx.Done():
	}

	// Whatever didn't report in time gets a timeout entry.
	for _, row := range rows {
		if !out.has(row.ResultKey()) {
			out.put(row.ResultKey(), domain.Errf("timeout waiting for broker response"))
		}
	}
	return out.m
}

func (e *Engine) placeOne(ctx context.Context, row *domain.PerClientOrder) domain.BrokerResponse {
	acct, err := e.accounts.Resolve(row.ClientID)
	if err != nil {
		return domain.Errf("resolve client %s: %v", row.ClientID, err)
	}
	if acct == nil {
		return domain.Errf("%v: %s", broker.ErrClientNotFound, row.ClientID)
	}
	if !acct.HasCredentials() {
		return domain.Errf("%v for %s", broker.ErrMissingCredential, acct.DisplayName())
	}
	adapter, err := e.registry.Get(row.Broker)
	if err != nil {
		return domain.Errf("%v", err)
	}
	if err := normalize.ValidateRow(row); err != nil {
		return domain.Errf("%v: %v", broker.ErrValidationFailed, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.CallTimeout)
	defer cancel()

	resp := adapter.PlaceOrder(callCtx, acct, row)
	if resp.Failed() {
		logger.WithFields(map[string]any{
			"broker": row.Broker, "client": row.ClientID, "key": row.ResultKey(),
		}).Warnf("place failed: %s", resp.Message)
	} else {
		logger.WithFields(map[string]any{
			"broker": row.Broker, "client": row.ClientID, "order_id": resp.OrderID,
		}).Infof("order placed")
	}
	return resp
}
