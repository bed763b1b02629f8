// Package reconcile implements order modification against a fresh broker
// snapshot: the broker's current order state fills every field the caller
// left out, so a stale client form can never clobber a working order.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/normalize"
	"github.com/copytrade/brokerhub/internal/ports"
	"github.com/copytrade/brokerhub/pkg/logger"
)

// NoChange is the caller sentinel for "keep the current order type".
const NoChange = "NO_CHANGE"

type Reconciler struct {
	registry *broker.Registry
	accounts ports.CredentialResolver

	CallTimeout time.Duration
}

func New(registry *broker.Registry, accounts ports.CredentialResolver) *Reconciler {
	return &Reconciler{
		registry:    registry,
		accounts:    accounts,
		CallTimeout: 15 * time.Second,
	}
}

// ModifyAll reconciles every request concurrently and returns one message
// per request, in request order.
func (r *Reconciler) ModifyAll(ctx context.Context, reqs []*domain.ModifyRequest) []string {
	messages := make([]string, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *domain.ModifyRequest) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					logger.Errorf("modify panic for %s: %v", req.OrderID, p)
					messages[i] = failure(req, fmt.Sprintf("internal error: %v", p))
				}
			}()
			messages[i] = r.modifyOne(ctx, req)
		}(i, req)
	}
	wg.Wait()
	return messages
}

func (r *Reconciler) modifyOne(ctx context.Context, req *domain.ModifyRequest) string {
	acct, err := r.account(req)
	if err != nil {
		return failure(req, err.Error())
	}
	adapter, err := r.registry.Get(acct.Broker)
	if err != nil {
		return failure(req, err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, r.CallTimeout)
	defer cancel()

	snap, err := adapter.OrderSnapshot(callCtx, acct, req.OrderID)
	if err != nil {
		return failure(req, fmt.Sprintf("%v: %v", broker.ErrSnapshotUnavailable, err))
	}
	if snap == nil {
		return failure(req, broker.ErrSnapshotUnavailable.Error())
	}

	mod, err := merge(req, snap)
	if err != nil {
		return failure(req, fmt.Sprintf("%v: %v", broker.ErrValidationFailed, err))
	}

	resp := adapter.ModifyOrder(callCtx, acct, mod, snap)
	if resp.Failed() {
		return failure(req, resp.Message)
	}
	if resp.Message == "" {
		return success(req, "modified")
	}
	return success(req, resp.Message)
}

func (r *Reconciler) account(req *domain.ModifyRequest) (*domain.ClientAccount, error) {
	if req.ClientID != "" {
		if acct, err := r.accounts.Resolve(req.ClientID); err != nil {
			return nil, err
		} else if acct != nil {
			return acct, nil
		}
	}
	if req.Name != "" {
		if acct, err := r.accounts.ByName(req.Name); err != nil {
			return nil, err
		} else if acct != nil {
			return acct, nil
		}
	}
	return nil, broker.ErrClientNotFound
}

// merge overlays the caller's request on the snapshot and settles the final
// canonical order. Unset request fields inherit the broker's values; the
// order type, when absent on both sides, is inferred from which prices end
// up set.
func merge(req *domain.ModifyRequest, snap *domain.OrderSnapshot) (*domain.ModifyRequest, error) {
	out := &domain.ModifyRequest{
		ClientID: req.ClientID,
		Name:     req.Name,
		OrderID:  req.OrderID,
	}

	out.Price = req.Price
	if out.Price <= 0 {
		out.Price = snap.Price
	}
	out.TriggerPrice = req.TriggerPrice
	if out.TriggerPrice <= 0 {
		out.TriggerPrice = snap.TriggerPrice
	}
	out.Quantity = req.Quantity
	if out.Quantity <= 0 {
		out.Quantity = snap.Quantity
	}
	out.Validity = strings.ToUpper(strings.TrimSpace(req.Validity))
	if out.Validity == "" {
		out.Validity = strings.ToUpper(snap.Validity)
	}
	if out.Validity == "" {
		out.Validity = "DAY"
	}

	switch {
	case req.OrderType != "" && !strings.EqualFold(req.OrderType, NoChange):
		out.OrderType = normalize.CanonicalOrderType(req.OrderType)
	case snap.OrderType != "":
		out.OrderType = snap.OrderType
	default:
		out.OrderType = normalize.InferOrderType(out.Price, out.TriggerPrice)
	}

	if !normalize.NeedsPrice(out.OrderType) {
		out.Price = 0
	}
	if !normalize.NeedsTrigger(out.OrderType) {
		out.TriggerPrice = 0
	}
	if normalize.NeedsPrice(out.OrderType) && out.Price <= 0 {
		return nil, fmt.Errorf("%s modify requires a positive price", out.OrderType)
	}
	if normalize.NeedsTrigger(out.OrderType) && out.TriggerPrice <= 0 {
		return nil, fmt.Errorf("%s modify requires a positive trigger price", out.OrderType)
	}
	if out.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", out.Quantity)
	}
	return out, nil
}

func label(req *domain.ModifyRequest) string {
	name := req.Name
	if name == "" {
		name = req.ClientID
	}
	return fmt.Sprintf("%s (%s)", name, req.OrderID)
}

func success(req *domain.ModifyRequest, msg string) string {
	return fmt.Sprintf("✅ %s: %s", label(req), msg)
}

func failure(req *domain.ModifyRequest, msg string) string {
	return fmt.Sprintf("❌ %s: %s", label(req), msg)
}
