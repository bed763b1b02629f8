package domain

import "strings"

// Broker identifiers. Every ClientAccount and group member carries one of
// these; the dispatch engine partitions rows by it.
const (
	BrokerDhan    = "dhan"
	BrokerMotilal = "motilal"
)

// ClientAccount is the credential record for one end-client trading account.
// The routing core treats it as an immutable snapshot for the duration of a
// dispatch cycle; only the stores mutate it.
type ClientAccount struct {
	ClientID      string  `json:"client_id"`
	Broker        string  `json:"broker"`
	Name          string  `json:"name"`
	AccessToken   string  `json:"access_token"`
	APIKey        string  `json:"apikey"`
	Capital       float64 `json:"capital"`
	SessionActive bool    `json:"session_active"`
}

// Token returns the secret used to authenticate against the broker,
// preferring the API key (legacy records stored the access token there).
func (a *ClientAccount) Token() string {
	if t := strings.TrimSpace(a.APIKey); t != "" {
		return t
	}
	return strings.TrimSpace(a.AccessToken)
}

// DisplayName falls back to the client id when no name was configured.
func (a *ClientAccount) DisplayName() string {
	if n := strings.TrimSpace(a.Name); n != "" {
		return n
	}
	return a.ClientID
}

// HasCredentials reports whether the account is dispatch-eligible.
func (a *ClientAccount) HasCredentials() bool {
	return a != nil && a.Token() != ""
}
