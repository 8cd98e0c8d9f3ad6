package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/db"
	"github.com/wholetthecowsout/cowwatch/internal/models"
)

// ListReportsInput selects which sightings to return.
type ListReportsInput struct {
	Days       int  `json:"days,omitempty"`        // lookback window in days, defaults to 7
	ActiveOnly bool `json:"active_only,omitempty"` // restrict to unresolved reports
}

// ReportSummary is the triage view of a report. Photos are large base64
// blobs, so they stay out of tool output.
type ReportSummary struct {
	ID          string     `json:"id"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

type ListReportsOutput struct {
	Reports []ReportSummary `json:"reports"`
}

type UpdateStatusInput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type UpdateStatusOutput struct {
	Report  ReportSummary `json:"report"`
	Message string        `json:"message"`
}

// TriageServer holds dependencies for the ranger triage tools.
type TriageServer struct {
	pg     *db.Postgres
	logger *zap.Logger
}

func summarize(r *models.Report) ReportSummary {
	return ReportSummary{
		ID:          r.ID,
		Description: r.Description,
		Location:    r.Location,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

// ListReports implements the list_reports tool.
func (s *TriageServer) ListReports(ctx context.Context, req *mcp.CallToolRequest, input ListReportsInput) (*mcp.CallToolResult, ListReportsOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	days := input.Days
	if days <= 0 {
		days = 7
	}
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	reports, err := s.pg.ListReportsSince(ctx, since, input.ActiveOnly)
	if err != nil {
		return nil, ListReportsOutput{}, fmt.Errorf("failed to list reports: %w", err)
	}

	out := make([]ReportSummary, 0, len(reports))
	for i := range reports {
		out = append(out, summarize(&reports[i]))
	}

	s.logger.Info("listed reports",
		zap.Int("days", days),
		zap.Bool("active_only", input.ActiveOnly),
		zap.Int("count", len(out)))

	return nil, ListReportsOutput{Reports: out}, nil
}

// UpdateReportStatus implements the update_report_status tool.
func (s *TriageServer) UpdateReportStatus(ctx context.Context, req *mcp.CallToolRequest, input UpdateStatusInput) (*mcp.CallToolResult, UpdateStatusOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	target, ok := models.ParseStatus(input.Status)
	if !ok {
		return nil, UpdateStatusOutput{}, fmt.Errorf("unknown status %q", input.Status)
	}

	current, err := s.pg.GetReport(ctx, input.ID)
	if err != nil {
		return nil, UpdateStatusOutput{}, fmt.Errorf("failed to load report: %w", err)
	}
	if current == nil {
		return nil, UpdateStatusOutput{}, fmt.Errorf("report %s not found", input.ID)
	}
	if !models.CanTransition(current.Status, target) {
		return nil, UpdateStatusOutput{}, fmt.Errorf("cannot move report from %s to %s", current.Status, target)
	}

	updated, err := s.pg.UpdateReportStatus(ctx, input.ID, target)
	if err != nil {
		return nil, UpdateStatusOutput{}, fmt.Errorf("failed to update report: %w", err)
	}
	if updated == nil {
		return nil, UpdateStatusOutput{}, fmt.Errorf("report %s not found", input.ID)
	}

	s.logger.Info("updated report status",
		zap.String("report_id", updated.ID),
		zap.String("status", string(updated.Status)))

	return nil, UpdateStatusOutput{
		Report:  summarize(updated),
		Message: fmt.Sprintf("Report %s is now %s", updated.ID, updated.Status),
	}, nil
}

func main() {
	// Log to stderr so stdout stays clean for the stdio transport.
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("cowwatch-mcp").With(zap.String("service", "cowwatch-mcp"))

	postgresDSN := os.Getenv("POSTGRES_DSN")
	if postgresDSN == "" {
		logger.Fatal("POSTGRES_DSN environment variable is required")
	}

	pg, err := db.InitPostgres(postgresDSN, 10, 5, 30*time.Minute, time.Minute)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pg.Close()

	triage := &TriageServer{pg: pg, logger: logger}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "cowwatch",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_reports",
		Description: "List cow sighting reports for ranger triage",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"days": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Lookback window in days (optional, defaults to 7)",
				},
				"active_only": map[string]interface{}{
					"type":        "boolean",
					"description": "Only return unresolved reports (optional)",
				},
			},
		},
	}, triage.ListReports)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_report_status",
		Description: "Acknowledge or resolve a cow sighting report",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Report ID",
				},
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"acknowledged", "resolved"},
					"description": "New status for the report",
				},
			},
			"required": []string{"id", "status"},
		},
	}, triage.UpdateReportStatus)

	logger.Info("MCP server running via stdio")

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
