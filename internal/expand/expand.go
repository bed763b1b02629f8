// Package expand turns one caller intent plus a target selection into the
// per-client dispatch rows the engine fans out.
package expand

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/normalize"
	"github.com/copytrade/brokerhub/internal/ports"
	"github.com/copytrade/brokerhub/pkg/logger"
)

// SkipClientNotFound marks rows whose client id resolved to nothing. The
// row survives expansion so the result map stays complete.
const SkipClientNotFound = "client_not_found"

// SkipGroupNotFound marks a placeholder row for an unknown group key.
const SkipGroupNotFound = "group_not_found"

// Request is one expansion job: the shared intent plus either a client list
// or a group list. Token is an explicit instrument id the caller may supply
// when the symbol master has no entry for the instrument.
type Request struct {
	GroupAcc bool
	Groups   []string
	Clients  []string
	Tag      string
	Token    string
	Intent   domain.OrderIntent
}

type Expander struct {
	accounts ports.CredentialResolver
	groups   ports.GroupStore
	symbols  ports.SymbolResolver
}

func New(accounts ports.CredentialResolver, groups ports.GroupStore, symbols ports.SymbolResolver) *Expander {
	return &Expander{accounts: accounts, groups: groups, symbols: symbols}
}

// Expand resolves the instrument once, then builds one row per distinct
// target client. Unknown clients and groups become skip rows, never errors;
// only an unresolvable instrument fails the whole request.
func (x *Expander) Expand(req *Request) ([]*domain.PerClientOrder, error) {
	var ref *domain.SymbolRef
	if x.symbols != nil && req.Intent.Symbol != "" {
		r, err := x.symbols.Resolve(req.Intent.Symbol)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve symbol %q", req.Intent.Symbol)
		}
		ref = r
	}

	if req.Intent.Quantity.Policy == domain.PolicyAuto {
		logger.Warnf("auto quantity policy is not implemented, using base quantity %d", req.Intent.Quantity.Base)
	}

	var rows []*domain.PerClientOrder
	seen := make(map[string]bool)

	if req.GroupAcc {
		for _, key := range req.Groups {
			grp, err := x.groups.Find(key)
			if err != nil {
				return nil, errors.Wrapf(err, "find group %q", key)
			}
			if grp == nil {
				rows = append(rows, x.skipRow(req, key, req.Tag, SkipGroupNotFound))
				continue
			}
			for _, m := range grp.Members {
				if seen[m.ClientID] {
					continue
				}
				seen[m.ClientID] = true
				rows = append(rows, x.clientRow(req, ref, m.ClientID, grp))
			}
		}
		return rows, nil
	}

	for _, clientID := range req.Clients {
		if seen[clientID] {
			continue
		}
		seen[clientID] = true
		rows = append(rows, x.clientRow(req, ref, clientID, nil))
	}
	return rows, nil
}

func (x *Expander) skipRow(req *Request, clientID, tag, reason string) *domain.PerClientOrder {
	return &domain.PerClientOrder{
		OrderIntent: req.Intent,
		ClientID:    clientID,
		Tag:         tag,
		Skip:        true,
		SkipReason:  reason,
	}
}

// rowTag labels group rows with the group name so the result map keys as
// "groupName:clientId"; client-list rows keep the caller's optional tag.
func rowTag(req *Request, grp *domain.Group) string {
	if grp != nil {
		return grp.Name
	}
	return req.Tag
}

func (x *Expander) clientRow(req *Request, ref *domain.SymbolRef, clientID string, grp *domain.Group) *domain.PerClientOrder {
	tag := rowTag(req, grp)
	acct, err := x.accounts.Resolve(clientID)
	if err != nil {
		logger.Errorf("resolve client %s: %v", clientID, err)
		acct = nil
	}
	if acct == nil {
		return x.skipRow(req, clientID, tag, SkipClientNotFound)
	}

	row := &domain.PerClientOrder{
		OrderIntent: req.Intent,
		ClientID:    acct.ClientID,
		Broker:      acct.Broker,
		Name:        acct.DisplayName(),
		Qty:         resolveQty(&req.Intent.Quantity, acct, grp),
		SecurityID:  ref.SecurityIDFor(acct.Broker),
		Tag:         tag,
	}
	if ref != nil {
		row.MinLot = ref.MinLot
		if row.Exchange == "" {
			row.Exchange = ref.Exchange
		}
	}
	if row.SecurityID == "" && req.Token != "" {
		row.SecurityID = req.Token
		if row.MinLot == 0 && x.symbols != nil {
			row.MinLot = x.symbols.MinLot(req.Token)
		}
	}
	normalize.Canonicalize(row)
	return row
}

// resolveQty applies the quantity policy for one target. Override lookups
// fall through id, display name, then the name truncated at the first colon
// before settling on the base quantity.
func resolveQty(spec *domain.QuantitySpec, acct *domain.ClientAccount, grp *domain.Group) int {
	switch spec.Policy {
	case domain.PolicyPerClient:
		for _, key := range []string{acct.ClientID, acct.DisplayName(), nameBeforeColon(acct.DisplayName())} {
			if key == "" {
				continue
			}
			if q, ok := spec.PerClient[key]; ok && q > 0 {
				return q
			}
		}
	case domain.PolicyPerGroup:
		if grp != nil {
			for _, key := range []string{grp.ID, grp.Name} {
				if q, ok := spec.PerGroup[key]; ok && q > 0 {
					return q
				}
			}
		}
	case domain.PolicyMultiplier:
		if grp != nil {
			return int(math.Round(float64(spec.Base) * grp.EffectiveMultiplier()))
		}
	}
	return spec.Base
}

func nameBeforeColon(name string) string {
	if i := strings.Index(name, ":"); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return ""
}
