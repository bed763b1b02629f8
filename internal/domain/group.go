package domain

import "strings"

// GroupMember pins a client id to a broker inside a group definition.
type GroupMember struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
}

// Group is a named collection of client accounts that can be targeted as a
// unit. Multiplier scales base quantity when the multiplier policy is active.
type Group struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Multiplier float64       `json:"multiplier"`
	Members    []GroupMember `json:"members"`
}

// Matches reports whether key refers to this group by id or by name,
// case-insensitively.
func (g *Group) Matches(key string) bool {
	if g == nil {
		return false
	}
	if g.ID == key {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(g.Name), strings.TrimSpace(key))
}

// EffectiveMultiplier defaults to 1 when the stored value is unusable.
func (g *Group) EffectiveMultiplier() float64 {
	if g == nil || g.Multiplier <= 0 {
		return 1
	}
	return g.Multiplier
}
