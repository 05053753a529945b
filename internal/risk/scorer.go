package risk

import (
	"fmt"

	"github.com/autthapolsaiyat/investigates-sub004/internal/identity"
	"github.com/autthapolsaiyat/investigates-sub004/internal/relation"
)

// MaxScore caps every entity's risk score.
const MaxScore = 100

// Score evaluates the deterministic factor table against one entity and
// returns the capped score with the contributing factors in table
// order. Factors are additive and evaluated independently; the received
// tiers and the suspect/victim rows are mutually exclusive within
// themselves. Tier boundaries are strictly greater-than.
func Score(entity *identity.Entity) (int, []identity.RiskFactor) {
	var factors []identity.RiskFactor
	total := 0

	add := func(name string, points int, description string) {
		factors = append(factors, identity.RiskFactor{
			Name:        name,
			Points:      points,
			Description: description,
		})
		total += points
	}

	meta := entity.Metadata

	switch meta.Role {
	case "suspect":
		add("suspect", 30, "declared as a suspect in a person registry")
	case "victim":
		add("victim", 5, "declared as a victim in a person registry")
	}

	if meta.TotalReceived > 500000 {
		add("high_inbound", 25, fmt.Sprintf("received %s (> ฿500K)", relation.FormatTHB(meta.TotalReceived)))
	} else if meta.TotalReceived > 100000 {
		add("elevated_inbound", 15, fmt.Sprintf("received %s (> ฿100K)", relation.FormatTHB(meta.TotalReceived)))
	}

	if meta.TransactionCount > 3 {
		add("transaction_volume", 10, fmt.Sprintf("%d transactions observed", meta.TransactionCount))
	}

	if meta.UsedMixer {
		add("mixer_exposure", 20, "transferred funds to a mixer or exchange service")
	}

	if meta.ForeignTransfer {
		add("foreign_transfer", 15, "transferred funds to a foreign jurisdiction")
	}

	if meta.CallCount > 5 {
		add("call_volume", 10, fmt.Sprintf("%d calls placed", meta.CallCount))
	}

	if len(entity.Sources) >= 3 {
		add("cross_source", 10, fmt.Sprintf("corroborated across %d independent sources", len(entity.Sources)))
	}

	if total > MaxScore {
		total = MaxScore
	}
	return total, factors
}

// ScoreAll runs the scorer once over every entity in the store, after
// all sources are ingested. Scores and factors are the only entity
// fields mutated after the relationship-building phase.
func ScoreAll(store *identity.Store) {
	for _, entity := range store.Entities() {
		entity.RiskScore, entity.RiskFactors = Score(entity)
	}
}
