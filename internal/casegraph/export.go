package casegraph

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/autthapolsaiyat/investigates-sub004/internal/graph"
	"github.com/autthapolsaiyat/investigates-sub004/internal/identity"
	"github.com/autthapolsaiyat/investigates-sub004/internal/relation"
)

// ExportResult reports how much of the graph reached the backend.
// Partial success is the documented expected outcome: individual create
// failures are counted and skipped, never retried, and never roll back
// nodes or edges already created.
type ExportResult struct {
	NodesCreated int `json:"nodes_created"`
	NodesFailed  int `json:"nodes_failed"`
	EdgesCreated int `json:"edges_created"`
	EdgesFailed  int `json:"edges_failed"`
	EdgesSkipped int `json:"edges_skipped"`
}

// nodeNotes is the metadata blob stored on each remote node.
type nodeNotes struct {
	Metadata    identity.Metadata     `json:"metadata"`
	RiskFactors []identity.RiskFactor `json:"risk_factors"`
	Sources     []string              `json:"sources"`
}

// Exporter pushes an assembled graph to the case-management backend
// with bounded concurrency. All nodes are created before any edge,
// because edges reference the remote node identifiers assigned by the
// backend's create responses.
type Exporter struct {
	client         *Client
	maxConcurrency int
}

// NewExporter creates an exporter over a case-graph client.
func NewExporter(client *Client, maxConcurrency int) *Exporter {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Exporter{client: client, maxConcurrency: maxConcurrency}
}

// Export creates remote nodes and edges for the run's graph and returns
// create counts for both.
func (e *Exporter) Export(ctx context.Context, caseID int, result *graph.Result) *ExportResult {
	out := &ExportResult{}

	remoteIDs := make(map[string]int, len(result.Entities))
	var mu sync.Mutex

	sem := make(chan struct{}, e.maxConcurrency)
	var wg sync.WaitGroup

	for _, entity := range result.Entities {
		wg.Add(1)
		go func(entity *identity.Entity) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			remoteID, err := e.client.CreateNode(ctx, caseID, buildNode(entity))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.client.logger.Warn("Node create failed",
					"entity_key", entity.Key,
					"error", err)
				out.NodesFailed++
				return
			}
			remoteIDs[entity.Key] = remoteID
			out.NodesCreated++
		}(entity)
	}
	wg.Wait()

	for _, edge := range result.Edges {
		wg.Add(1)
		go func(edge *relation.Edge) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			fromID, okFrom := remoteIDs[edge.Source]
			toID, okTo := remoteIDs[edge.Target]
			mu.Unlock()

			if !okFrom || !okTo {
				// An endpoint's node create failed; the edge cannot
				// reference a remote identifier that does not exist.
				mu.Lock()
				out.EdgesSkipped++
				mu.Unlock()
				return
			}

			_, err := e.client.CreateEdge(ctx, caseID, &EdgeCreate{
				FromNodeID:      fromID,
				ToNodeID:        toID,
				EdgeType:        edgeTypes[edge.Type],
				Label:           edge.Label,
				Amount:          edge.Amount,
				Currency:        "THB",
				TransactionDate: edge.Date,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.client.logger.Warn("Edge create failed",
					"edge_id", edge.ID,
					"error", err)
				out.EdgesFailed++
				return
			}
			out.EdgesCreated++
		}(edge)
	}
	wg.Wait()

	return out
}

func buildNode(entity *identity.Entity) *NodeCreate {
	notes, _ := json.Marshal(nodeNotes{
		Metadata:    entity.Metadata,
		RiskFactors: entity.RiskFactors,
		Sources:     entity.SourceList(),
	})

	amount := entity.Metadata.TotalReceived
	if amount == 0 {
		amount = entity.Metadata.TotalSent
	}

	return &NodeCreate{
		NodeType:   nodeTypes[entity.Type],
		Label:      entity.Label,
		Identifier: entity.Value,
		RiskScore:  entity.RiskScore,
		IsSuspect:  entity.Metadata.Role == "suspect",
		IsVictim:   entity.Metadata.Role == "victim",
		Amount:     amount,
		Notes:      string(notes),
		Source:     "import-analysis",
	}
}
