package relation

// EdgeType is the closed set of relationship kinds between entities.
type EdgeType string

const (
	EdgeMoneyTransfer  EdgeType = "money_transfer"
	EdgePhoneCall      EdgeType = "phone_call"
	EdgeCryptoTransfer EdgeType = "crypto_transfer"
	EdgeOwnership      EdgeType = "ownership"
)

// Edge is a directed relationship between two entity keys. Direction
// carries semantic meaning: money and calls flow from source to target,
// ownership points person to instrument. IDs are sequential within one
// pipeline run.
type Edge struct {
	ID     int      `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"edge_type"`
	Label  string   `json:"label"`
	Amount float64  `json:"amount,omitempty"`
	Date   string   `json:"date,omitempty"`
}
