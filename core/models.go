package core

import (
	"strings"
	"time"
)

// State is the position of a Web Pro connection in its lifecycle
type State int

const (
	// StateUnresolved means no key is associated with the record
	StateUnresolved State = iota
	// StateKeyPending means a verified key is held in memory but not yet bound to an account
	StateKeyPending
	// StateBound means the key is stored against the account but no usable revoke credential exists
	StateBound
	// StateConnected means key, reference id and a decryptable revoke credential all exist
	StateConnected
	// StateDisconnected is terminal for the manager that performed the disconnect
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateKeyPending:
		return "key_pending"
	case StateBound:
		return "bound"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Record is the in-memory view of one operator's connection
//
// The revoke credential is not part of the record: it only exists
// encrypted in the directory and decrypted on the stack of Revoke.
type Record struct {
	AccountID   string    `json:"accountId,omitempty"`
	Key         string    `json:"-"` // Never expose in JSON
	ReferenceID int64     `json:"referenceId"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Location    string    `json:"location"`
	AddedBy     string    `json:"addedBy,omitempty"`
	AddedAt     time.Time `json:"addedAt"`
}

// DisplayName joins the first and last name the way the site displays it
func (r Record) DisplayName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// RecordView is the model returned to clients
type RecordView struct {
	Record
	Name  string `json:"name"`
	State State  `json:"state"`
}

// NamedPlace is the platform's shape for states and countries
type NamedPlace struct {
	Name string `json:"name"`
}

// Verification is the payload the platform returns for a valid key
type Verification struct {
	Email       string      `json:"email"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	ReferenceID int64       `json:"webproReferenceId"`
	City        string      `json:"city"`
	State       *NamedPlace `json:"state,omitempty"`
	Country     *NamedPlace `json:"country,omitempty"`
}

// Location concatenates city, state and country, skipping what the platform left out
func (v *Verification) Location() string {
	location := v.City
	if v.State != nil && v.State.Name != "" {
		location += ", " + v.State.Name
	}
	if v.Country != nil && v.Country.Name != "" {
		location += ", " + v.Country.Name
	}
	return location
}

// KeyCheck statuses
const (
	KeyCheckInvalid   = "invalid_key"
	KeyCheckConnected = "user_exists"
	KeyCheckSuccess   = "success"
)

// KeyCheck previews who a key belongs to before an owner confirms the connection
type KeyCheck struct {
	Status   string `json:"status"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Location string `json:"location,omitempty"`
	Key      string `json:"key"`
}

// ConnectResult is returned after a successful connection
type ConnectResult struct {
	AccountID string     `json:"accountId"`
	Record    RecordView `json:"record"`
}
