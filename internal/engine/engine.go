package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/autthapolsaiyat/investigates-sub004/internal/casegraph"
	"github.com/autthapolsaiyat/investigates-sub004/internal/classify"
	"github.com/autthapolsaiyat/investigates-sub004/internal/config"
	"github.com/autthapolsaiyat/investigates-sub004/internal/database"
	"github.com/autthapolsaiyat/investigates-sub004/internal/graph"
	"github.com/autthapolsaiyat/investigates-sub004/internal/identity"
	"github.com/autthapolsaiyat/investigates-sub004/internal/metrics"
	"github.com/autthapolsaiyat/investigates-sub004/internal/relation"
	"github.com/autthapolsaiyat/investigates-sub004/internal/risk"
	"github.com/autthapolsaiyat/investigates-sub004/internal/tabular"
)

// Run statuses as stored in import_runs.status.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SourceFile is one uploaded source file awaiting analysis.
type SourceFile struct {
	Name   string
	Reader io.Reader
}

// ImportCompletedEvent is published after a run finishes, successfully
// or not.
type ImportCompletedEvent struct {
	RunID       string                 `json:"run_id"`
	CaseID      int                    `json:"case_id"`
	Status      string                 `json:"status"`
	Summary     map[string]interface{} `json:"summary,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CompletedAt time.Time              `json:"completed_at"`
}

// CompletedPublisher publishes run-completion events. A nil publisher
// disables event publishing.
type CompletedPublisher interface {
	PublishImportCompleted(ctx context.Context, event *ImportCompletedEvent) error
}

// Engine orchestrates one full analysis pipeline per run: parse,
// classify, resolve identities, build relationships, score, assemble,
// then persist the run record and export the graph.
type Engine struct {
	cfg       *config.Config
	repo      *database.Repository
	exporter  *casegraph.Exporter
	publisher CompletedPublisher
	metrics   *metrics.Collector
	logger    *slog.Logger
	sem       chan struct{}
}

// NewEngine creates the analysis engine. exporter and publisher may be
// nil when the case-graph backend or Kafka is disabled.
func NewEngine(
	cfg *config.Config,
	repo *database.Repository,
	exporter *casegraph.Exporter,
	publisher CompletedPublisher,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Engine {
	maxConcurrent := cfg.Analysis.MaxConcurrentImports
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Engine{
		cfg:       cfg,
		repo:      repo,
		exporter:  exporter,
		publisher: publisher,
		metrics:   collector,
		logger:    logger,
		sem:       make(chan struct{}, maxConcurrent),
	}
}

// Analyze runs the full pipeline over a set of source files for one
// case and returns the completed run record. Individual file failures
// do not abort the run; a run fails only when no file yields records.
func (e *Engine) Analyze(ctx context.Context, caseID int, files []SourceFile, createdBy string) (*database.ImportRun, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no source files provided")
	}

	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	e.metrics.ActiveImports.Inc()
	defer e.metrics.ActiveImports.Dec()

	run := &database.ImportRun{
		ID:        uuid.New().String(),
		CaseID:    caseID,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
		CreatedBy: createdBy,
	}
	if err := e.repo.CreateImportRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	e.logger.Info("Analysis run started",
		"run_id", run.ID,
		"case_id", caseID,
		"files", len(files))

	done := metrics.Timer(e.metrics.ImportDuration.WithLabelValues(StatusCompleted))

	tables, totalRecords := e.classifyFiles(ctx, run.ID, files)
	if totalRecords == 0 {
		return e.finishFailed(ctx, run, "no recognizable records in any source file")
	}

	store := identity.NewStore()
	xref := identity.NewCrossReference()
	builder := relation.NewBuilder(store, xref, e.cfg.Analysis.CryptoFallbackRate, e.logger)

	// Person registries must land first so later sources fold onto the
	// person entities they name.
	for _, source := range classify.Order {
		for _, table := range tables[source] {
			builder.Ingest(source, table)
			e.metrics.RecordsProcessed.WithLabelValues(string(source)).Add(float64(len(table.Records)))
		}
	}

	risk.ScoreAll(store)

	result := graph.Assemble(store, builder.Edges(), totalRecords, e.cfg.Analysis.HighRiskThreshold)
	e.observeResult(result)

	payload, err := json.Marshal(result)
	if err != nil {
		return e.finishFailed(ctx, run, fmt.Sprintf("failed to encode result: %v", err))
	}

	run.Summary = summaryMap(result.Summary)

	if e.exporter != nil {
		exportDone := metrics.Timer(e.metrics.ExportDuration)
		export := e.exporter.Export(ctx, caseID, result)
		exportDone()
		e.observeExport(export)
		run.Summary["export"] = export
	}

	run.Status = StatusCompleted
	run.Result = payload
	now := time.Now().UTC()
	run.CompletedAt = &now

	if err := e.repo.UpdateImportRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	done()
	e.metrics.ImportsTotal.WithLabelValues(StatusCompleted).Inc()
	e.publishCompleted(ctx, run)

	e.logger.Info("Analysis run completed",
		"run_id", run.ID,
		"entities", result.Summary.TotalEntities,
		"edges", result.Summary.TotalEdges,
		"high_risk", result.Summary.HighRiskEntities)

	return run, nil
}

// classifyFiles parses and classifies every source file, recording a
// per-file row for each. Files that fail to parse or match no known
// layout are recorded and skipped.
func (e *Engine) classifyFiles(ctx context.Context, runID string, files []SourceFile) (map[classify.SourceType][]*tabular.Table, int) {
	tables := make(map[classify.SourceType][]*tabular.Table)
	totalRecords := 0

	for _, file := range files {
		record := &database.ImportFile{
			ID:        uuid.New().String(),
			RunID:     runID,
			FileName:  file.Name,
			CreatedAt: time.Now().UTC(),
		}

		table, err := tabular.Parse(file.Name, file.Reader)
		if err != nil {
			record.SourceType = string(classify.SourceUnknown)
			record.Status = "failed"
			record.Error = err.Error()
			e.metrics.FilesProcessed.WithLabelValues(record.SourceType, record.Status).Inc()
			e.logger.Warn("Source file failed to parse", "file", file.Name, "error", err)
			e.recordFile(ctx, record)
			continue
		}

		source := classify.Classify(table.Headers)
		record.SourceType = string(source)
		record.RecordCount = len(table.Records)

		if source == classify.SourceUnknown {
			record.Status = "skipped"
			record.Error = "unrecognized column layout"
			e.metrics.FilesProcessed.WithLabelValues(record.SourceType, record.Status).Inc()
			e.logger.Warn("Source file not recognized", "file", file.Name, "headers", table.Headers)
			e.recordFile(ctx, record)
			continue
		}

		record.Status = "processed"
		e.metrics.FilesProcessed.WithLabelValues(record.SourceType, record.Status).Inc()
		e.recordFile(ctx, record)

		tables[source] = append(tables[source], table)
		totalRecords += len(table.Records)
	}

	return tables, totalRecords
}

func (e *Engine) recordFile(ctx context.Context, file *database.ImportFile) {
	if err := e.repo.CreateImportFile(ctx, file); err != nil {
		e.logger.Error("Failed to record import file", "file", file.FileName, "error", err)
	}
}

func (e *Engine) finishFailed(ctx context.Context, run *database.ImportRun, reason string) (*database.ImportRun, error) {
	run.Status = StatusFailed
	run.Error = reason
	now := time.Now().UTC()
	run.CompletedAt = &now

	if err := e.repo.UpdateImportRun(ctx, run); err != nil {
		e.logger.Error("Failed to update failed run", "run_id", run.ID, "error", err)
	}

	e.metrics.ImportsTotal.WithLabelValues(StatusFailed).Inc()
	e.publishCompleted(ctx, run)

	e.logger.Warn("Analysis run failed", "run_id", run.ID, "reason", reason)
	return run, nil
}

func (e *Engine) publishCompleted(ctx context.Context, run *database.ImportRun) {
	if e.publisher == nil {
		return
	}

	event := &ImportCompletedEvent{
		RunID:       run.ID,
		CaseID:      run.CaseID,
		Status:      run.Status,
		Summary:     run.Summary,
		Error:       run.Error,
		CompletedAt: time.Now().UTC(),
	}
	if err := e.publisher.PublishImportCompleted(ctx, event); err != nil {
		e.logger.Error("Failed to publish completion event", "run_id", run.ID, "error", err)
	}
}

func (e *Engine) observeResult(result *graph.Result) {
	e.metrics.EntitiesResolved.Add(float64(result.Summary.TotalEntities))
	e.metrics.HighRiskEntities.Add(float64(result.Summary.HighRiskEntities))
	for _, edge := range result.Edges {
		e.metrics.EdgesEmitted.WithLabelValues(string(edge.Type)).Inc()
	}
}

func (e *Engine) observeExport(export *casegraph.ExportResult) {
	e.metrics.ExportOutcomes.WithLabelValues("node", "created").Add(float64(export.NodesCreated))
	e.metrics.ExportOutcomes.WithLabelValues("node", "failed").Add(float64(export.NodesFailed))
	e.metrics.ExportOutcomes.WithLabelValues("edge", "created").Add(float64(export.EdgesCreated))
	e.metrics.ExportOutcomes.WithLabelValues("edge", "failed").Add(float64(export.EdgesFailed))
	e.metrics.ExportOutcomes.WithLabelValues("edge", "skipped").Add(float64(export.EdgesSkipped))
}

// GetRun returns one run record, or nil when the run is unknown.
func (e *Engine) GetRun(ctx context.Context, runID string) (*database.ImportRun, error) {
	return e.repo.GetImportRun(ctx, runID)
}

// ListRuns lists the most recent runs for a case.
func (e *Engine) ListRuns(ctx context.Context, caseID, limit int) ([]*database.ImportRun, error) {
	return e.repo.ListImportRuns(ctx, caseID, limit)
}

// ListRunFiles lists the per-file records of a run.
func (e *Engine) ListRunFiles(ctx context.Context, runID string) ([]*database.ImportFile, error) {
	return e.repo.ListImportFiles(ctx, runID)
}

// GetRunGraph returns the stored graph result of a completed run.
func (e *Engine) GetRunGraph(ctx context.Context, runID string) (*graph.Result, error) {
	run, err := e.repo.GetImportRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}
	if len(run.Result) == 0 {
		return nil, fmt.Errorf("run %s has no stored graph", runID)
	}

	var result graph.Result
	if err := json.Unmarshal(run.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored graph: %w", err)
	}
	return &result, nil
}

func summaryMap(s graph.Summary) map[string]interface{} {
	return map[string]interface{}{
		"total_records":         s.TotalRecords,
		"total_entities":        s.TotalEntities,
		"total_edges":           s.TotalEdges,
		"total_bank_amount":     s.TotalBankAmount,
		"high_risk_entities":    s.HighRiskEntities,
		"corroborated_entities": s.Corroborated,
		"components":            s.Components,
	}
}
