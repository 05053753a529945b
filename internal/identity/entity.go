package identity

import (
	"encoding/json"
	"sort"
	"strings"
)

// EntityType is the closed set of entity kinds tracked by the store.
// Note this is narrower than the source-file categories: bank and
// crypto records produce account and wallet entities.
type EntityType string

const (
	EntityPerson  EntityType = "person"
	EntityAccount EntityType = "account"
	EntityPhone   EntityType = "phone"
	EntityWallet  EntityType = "wallet"
)

// Metadata accumulates per-entity financial and behavioral observations
// across all ingested sources. Sums and counts only increase, booleans
// only flip false to true, and Role is set once and never overwritten.
type Metadata struct {
	TotalReceived    float64 `json:"total_received"`
	TotalSent        float64 `json:"total_sent"`
	TransactionCount int     `json:"transaction_count"`
	CallCount        int     `json:"call_count"`
	CallDuration     int     `json:"call_duration"`
	UsedMixer        bool    `json:"used_mixer"`
	ForeignTransfer  bool    `json:"foreign_transfer"`
	Role             string  `json:"role,omitempty"`
}

// RiskFactor is one contributing factor of an entity's risk score.
type RiskFactor struct {
	Name        string `json:"name"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

// Entity represents a distinct real-world referent as currently known
// to the pipeline. The Key never changes after creation; it is the sole
// deduplication mechanism.
type Entity struct {
	Key         string          `json:"key"`
	Type        EntityType      `json:"type"`
	Value       string          `json:"value"`
	Label       string          `json:"label"`
	Sources     map[string]bool `json:"-"`
	LinkedIDs   map[string]bool `json:"-"`
	Metadata    Metadata        `json:"metadata"`
	RiskScore   int             `json:"risk_score"`
	RiskFactors []RiskFactor    `json:"risk_factors"`
}

// SourceList returns the entity's origin files in sorted order.
func (e *Entity) SourceList() []string {
	return sortedKeys(e.Sources)
}

// LinkedList returns the keys of connected entities in sorted order.
func (e *Entity) LinkedList() []string {
	return sortedKeys(e.LinkedIDs)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// entityJSON is the wire form of Entity. The source and link sets are
// serialized as sorted arrays so encoded output is deterministic.
type entityJSON struct {
	Key         string       `json:"key"`
	Type        EntityType   `json:"type"`
	Value       string       `json:"value"`
	Label       string       `json:"label"`
	Sources     []string     `json:"sources"`
	LinkedIDs   []string     `json:"linked_ids"`
	Metadata    Metadata     `json:"metadata"`
	RiskScore   int          `json:"risk_score"`
	RiskFactors []RiskFactor `json:"risk_factors,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(entityJSON{
		Key:         e.Key,
		Type:        e.Type,
		Value:       e.Value,
		Label:       e.Label,
		Sources:     e.SourceList(),
		LinkedIDs:   e.LinkedList(),
		Metadata:    e.Metadata,
		RiskScore:   e.RiskScore,
		RiskFactors: e.RiskFactors,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var wire entityJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	e.Key = wire.Key
	e.Type = wire.Type
	e.Value = wire.Value
	e.Label = wire.Label
	e.Metadata = wire.Metadata
	e.RiskScore = wire.RiskScore
	e.RiskFactors = wire.RiskFactors

	e.Sources = make(map[string]bool, len(wire.Sources))
	for _, s := range wire.Sources {
		e.Sources[s] = true
	}
	e.LinkedIDs = make(map[string]bool, len(wire.LinkedIDs))
	for _, l := range wire.LinkedIDs {
		e.LinkedIDs[l] = true
	}
	return nil
}

// Normalize canonicalizes a raw identifier for keying: lower-case and
// trimmed. No fuzzy matching is performed anywhere in the pipeline.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Key computes the stable entity key for a type and raw identifier.
func Key(entityType EntityType, raw string) string {
	return string(entityType) + ":" + Normalize(raw)
}
