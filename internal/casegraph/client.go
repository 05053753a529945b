package casegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/autthapolsaiyat/investigates-sub004/internal/config"
	"github.com/autthapolsaiyat/investigates-sub004/internal/identity"
	"github.com/autthapolsaiyat/investigates-sub004/internal/relation"
)

// nodeTypes maps internal entity types to the backend's node_type values.
var nodeTypes = map[identity.EntityType]string{
	identity.EntityPerson:  "person",
	identity.EntityAccount: "bank_account",
	identity.EntityPhone:   "phone",
	identity.EntityWallet:  "crypto_wallet",
}

// edgeTypes maps internal edge types to the backend's edge_type values.
var edgeTypes = map[relation.EdgeType]string{
	relation.EdgeMoneyTransfer:  "bank_transfer",
	relation.EdgePhoneCall:      "other",
	relation.EdgeCryptoTransfer: "crypto_transfer",
	relation.EdgeOwnership:      "other",
}

// Client talks to the case-management backend that persists money-flow
// graphs. The backend assigns node identifiers in its create responses;
// edges reference those remote identifiers.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NodeCreate is the create-node request body.
type NodeCreate struct {
	NodeType   string  `json:"node_type"`
	Label      string  `json:"label"`
	Identifier string  `json:"identifier,omitempty"`
	RiskScore  int     `json:"risk_score"`
	IsSuspect  bool    `json:"is_suspect"`
	IsVictim   bool    `json:"is_victim"`
	Amount     float64 `json:"amount,omitempty"`
	Notes      string  `json:"notes,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// NodeResponse is the backend's create-node response.
type NodeResponse struct {
	ID int `json:"id"`
}

// EdgeCreate is the create-edge request body.
type EdgeCreate struct {
	FromNodeID      int     `json:"from_node_id"`
	ToNodeID        int     `json:"to_node_id"`
	EdgeType        string  `json:"edge_type"`
	Label           string  `json:"label,omitempty"`
	Amount          float64 `json:"amount,omitempty"`
	Currency        string  `json:"currency"`
	TransactionDate string  `json:"transaction_date,omitempty"`
}

// EdgeResponse is the backend's create-edge response.
type EdgeResponse struct {
	ID int `json:"id"`
}

// NewClient creates a case-graph client from configuration.
func NewClient(cfg config.CaseGraphConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger,
	}
}

// CreateNode creates one graph node for a case and returns the remote
// node identifier assigned by the backend.
func (c *Client) CreateNode(ctx context.Context, caseID int, node *NodeCreate) (int, error) {
	var resp NodeResponse
	url := fmt.Sprintf("%s/cases/%d/money-flow/nodes", c.baseURL, caseID)
	if err := c.post(ctx, url, node, &resp); err != nil {
		return 0, fmt.Errorf("failed to create node %q: %w", node.Label, err)
	}
	return resp.ID, nil
}

// CreateEdge creates one graph edge between two remote node identifiers.
func (c *Client) CreateEdge(ctx context.Context, caseID int, edge *EdgeCreate) (int, error) {
	var resp EdgeResponse
	url := fmt.Sprintf("%s/cases/%d/money-flow/edges", c.baseURL, caseID)
	if err := c.post(ctx, url, edge, &resp); err != nil {
		return 0, fmt.Errorf("failed to create edge: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) post(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
