package graph

import (
	dgraph "github.com/dominikbraun/graph"

	"github.com/autthapolsaiyat/investigates-sub004/internal/identity"
	"github.com/autthapolsaiyat/investigates-sub004/internal/relation"
)

// Summary carries the run-level counters derived from the assembled
// graph.
type Summary struct {
	TotalRecords     int     `json:"total_records"`
	TotalEntities    int     `json:"total_entities"`
	TotalEdges       int     `json:"total_edges"`
	TotalBankAmount  float64 `json:"total_bank_amount"`
	HighRiskEntities int     `json:"high_risk_entities"`
	Corroborated     int     `json:"corroborated_entities"`
	Components       int     `json:"components"`
}

// Result is the final immutable view of one pipeline run: the entity
// list, the edge list, and summary statistics. Assembly is a pure
// projection; no further mutation occurs here.
type Result struct {
	Entities []*identity.Entity `json:"entities"`
	Edges    []*relation.Edge   `json:"edges"`
	Summary  Summary            `json:"summary"`
}

// Assemble builds the final view from a scored store and the emitted
// edges. highRiskThreshold is the score at or above which an entity
// counts as high risk.
func Assemble(store *identity.Store, edges []*relation.Edge, totalRecords, highRiskThreshold int) *Result {
	entities := store.Entities()

	summary := Summary{
		TotalRecords:  totalRecords,
		TotalEntities: len(entities),
		TotalEdges:    len(edges),
	}

	for _, edge := range edges {
		if edge.Type == relation.EdgeMoneyTransfer {
			summary.TotalBankAmount += edge.Amount
		}
	}

	for _, entity := range entities {
		if entity.RiskScore >= highRiskThreshold {
			summary.HighRiskEntities++
		}
		if len(entity.Sources) >= 2 {
			summary.Corroborated++
		}
	}

	summary.Components = countComponents(entities, edges)

	return &Result{
		Entities: entities,
		Edges:    edges,
		Summary:  summary,
	}
}

// countComponents computes the number of connected components over the
// undirected view of the graph, counting isolated entities as their own
// components.
func countComponents(entities []*identity.Entity, edges []*relation.Edge) int {
	g := dgraph.New(dgraph.StringHash)

	for _, entity := range entities {
		_ = g.AddVertex(entity.Key)
	}
	for _, edge := range edges {
		// Duplicate edges between the same endpoints are fine to drop.
		_ = g.AddEdge(edge.Source, edge.Target)
	}

	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return 0
	}

	visited := make(map[string]bool, len(adjacency))
	components := 0

	var walk func(node string)
	walk = func(node string) {
		visited[node] = true
		for neighbor := range adjacency[node] {
			if !visited[neighbor] {
				walk(neighbor)
			}
		}
	}

	for _, entity := range entities {
		if !visited[entity.Key] {
			components++
			walk(entity.Key)
		}
	}

	return components
}
