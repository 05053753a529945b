package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autthapolsaiyat/investigates-sub004/internal/identity"
)

func entityWith(meta identity.Metadata, sources ...string) *identity.Entity {
	sourceSet := make(map[string]bool, len(sources))
	for _, s := range sources {
		sourceSet[s] = true
	}
	return &identity.Entity{
		Key:      "person:test",
		Type:     identity.EntityPerson,
		Metadata: meta,
		Sources:  sourceSet,
	}
}

func TestScoreRoles(t *testing.T) {
	score, factors := Score(entityWith(identity.Metadata{Role: "suspect"}))
	assert.Equal(t, 30, score)
	require.Len(t, factors, 1)
	assert.Equal(t, "suspect", factors[0].Name)

	score, factors = Score(entityWith(identity.Metadata{Role: "victim"}))
	assert.Equal(t, 5, score)
	require.Len(t, factors, 1)
	assert.Equal(t, "victim", factors[0].Name)

	score, factors = Score(entityWith(identity.Metadata{Role: "witness"}))
	assert.Equal(t, 0, score)
	assert.Empty(t, factors)
}

func TestScoreInboundTiers(t *testing.T) {
	tests := []struct {
		received   float64
		wantScore  int
		wantFactor string
	}{
		{600000, 25, "high_inbound"},
		{500001, 25, "high_inbound"},
		{500000, 15, "elevated_inbound"}, // boundary is strictly greater-than
		{150000, 15, "elevated_inbound"},
		{100001, 15, "elevated_inbound"},
		{100000, 0, ""},
		{0, 0, ""},
	}

	for _, tt := range tests {
		score, factors := Score(entityWith(identity.Metadata{TotalReceived: tt.received}))
		assert.Equal(t, tt.wantScore, score, "received %v", tt.received)
		if tt.wantFactor == "" {
			assert.Empty(t, factors)
		} else {
			require.Len(t, factors, 1, "received %v", tt.received)
			assert.Equal(t, tt.wantFactor, factors[0].Name)
		}
	}
}

func TestScoreBehavioralFactors(t *testing.T) {
	score, _ := Score(entityWith(identity.Metadata{TransactionCount: 4}))
	assert.Equal(t, 10, score)
	score, _ = Score(entityWith(identity.Metadata{TransactionCount: 3}))
	assert.Equal(t, 0, score)

	score, _ = Score(entityWith(identity.Metadata{UsedMixer: true}))
	assert.Equal(t, 20, score)

	score, _ = Score(entityWith(identity.Metadata{ForeignTransfer: true}))
	assert.Equal(t, 15, score)

	score, _ = Score(entityWith(identity.Metadata{CallCount: 6}))
	assert.Equal(t, 10, score)
	score, _ = Score(entityWith(identity.Metadata{CallCount: 5}))
	assert.Equal(t, 0, score)
}

func TestScoreCrossSource(t *testing.T) {
	score, _ := Score(entityWith(identity.Metadata{}, "a.csv", "b.csv"))
	assert.Equal(t, 0, score)

	score, factors := Score(entityWith(identity.Metadata{}, "a.csv", "b.csv", "c.csv"))
	assert.Equal(t, 10, score)
	require.Len(t, factors, 1)
	assert.Equal(t, "cross_source", factors[0].Name)
}

func TestScoreCapped(t *testing.T) {
	entity := entityWith(identity.Metadata{
		Role:             "suspect",
		TotalReceived:    600000,
		TransactionCount: 10,
		UsedMixer:        true,
		ForeignTransfer:  true,
		CallCount:        10,
	}, "a.csv", "b.csv", "c.csv")

	score, factors := Score(entity)
	assert.Equal(t, MaxScore, score)

	// Factors still list their uncapped contributions.
	sum := 0
	for _, f := range factors {
		sum += f.Points
	}
	assert.Equal(t, 120, sum)
}

func TestScoreFactorOrderIsStable(t *testing.T) {
	entity := entityWith(identity.Metadata{
		Role:          "suspect",
		TotalReceived: 600000,
		UsedMixer:     true,
	})

	_, factors := Score(entity)
	require.Len(t, factors, 3)
	assert.Equal(t, "suspect", factors[0].Name)
	assert.Equal(t, "high_inbound", factors[1].Name)
	assert.Equal(t, "mixer_exposure", factors[2].Name)
}

func TestScoreAllMutatesStore(t *testing.T) {
	store := identity.NewStore()
	key := store.GetOrCreate(identity.EntityPerson, "1234", "Somchai", "persons.csv", &identity.MetadataPatch{Role: "suspect"})

	ScoreAll(store)

	entity := store.Get(key)
	assert.Equal(t, 30, entity.RiskScore)
	require.Len(t, entity.RiskFactors, 1)
}
