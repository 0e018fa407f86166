package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/finsight/finsight/internal/ingest"
	"github.com/finsight/finsight/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store
	Analyzer Analyzer
	Timeout  time.Duration
}

// NewMCPServer creates an MCP server exposing document analysis as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"finsight",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("finsight — multi-agent financial document analysis over local files."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("analyze_document",
			mcp.WithDescription("Run the financial analysis pipeline over a local document (PDF, TXT or CSV) and return the report."),
			mcp.WithString("file_path", mcp.Description("Absolute path to the document on disk"), mcp.Required()),
			mcp.WithString("query", mcp.Description("What to look for; a general investment query is used when omitted")),
		),
		mcpAnalyzeDocument(deps),
	)

	s.AddTool(
		mcp.NewTool("get_analysis",
			mcp.WithDescription("Fetch a stored analysis by ID, including its status and report."),
			mcp.WithString("id", mcp.Description("Analysis ID"), mcp.Required()),
		),
		mcpGetAnalysis(deps),
	)

	s.AddTool(
		mcp.NewTool("list_analyses",
			mcp.WithDescription("List stored analyses, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpListAnalyses(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"finsight://recent",
			"Recent Analyses",
			mcp.WithResourceDescription("Last 10 analyses (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAnalyzeDocument(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filePath, err := req.RequireString("file_path")
		if err != nil {
			return mcpError("file_path is required"), nil
		}

		query := ingest.EffectiveQuery(req.GetString("query", ""))

		record := storage.Analysis{
			ID:       uuid.New().String(),
			Filename: filePath,
			Query:    query,
			Status:   storage.StatusRunning,
		}
		if err := deps.Store.SaveAnalysis(record); err != nil {
			return mcpError(fmt.Sprintf("failed to save analysis: %v", err)), nil
		}

		if deps.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deps.Timeout)
			defer cancel()
		}

		start := time.Now()
		result, err := deps.Analyzer.Analyze(ctx, filePath, query)
		if err != nil {
			if failErr := deps.Store.FailAnalysis(record.ID, err.Error()); failErr != nil {
				return mcpError(fmt.Sprintf("analysis failed and could not be recorded: %v", failErr)), nil
			}
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		if err := deps.Store.CompleteAnalysis(record.ID, result.Final, time.Since(start).Milliseconds()); err != nil {
			return mcpError(fmt.Sprintf("analysis succeeded but could not be saved: %v", err)), nil
		}

		return mcpText(result.Final), nil
	}
}

func mcpGetAnalysis(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		a, err := deps.Store.GetAnalysis(id)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get analysis: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"id":          a.ID,
			"created_at":  a.CreatedAt.Format(time.RFC3339),
			"filename":    a.Filename,
			"query":       a.Query,
			"status":      a.Status,
			"result":      a.Result,
			"duration_ms": a.DurationMs,
			"last_error":  a.LastError,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal analysis: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpListAnalyses(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 50 {
			limit = 50
		}

		analyses, err := deps.Store.ListAnalyses(limit, 0)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list analyses: %v", err)), nil
		}

		if len(analyses) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(analysisSummaries(analyses))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal analyses: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		analyses, err := deps.Store.ListAnalyses(10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list analyses: %w", err)
		}

		b, err := json.Marshal(analysisSummaries(analyses))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal analyses: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

type analysisSummary struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Filename  string `json:"filename"`
	Query     string `json:"query"`
	Status    string `json:"status"`
}

func analysisSummaries(analyses []storage.Analysis) []analysisSummary {
	summaries := make([]analysisSummary, len(analyses))
	for i, a := range analyses {
		query := a.Query
		if utf8.RuneCountInString(query) > 200 {
			runes := []rune(query)
			query = string(runes[:200]) + "..."
		}
		summaries[i] = analysisSummary{
			ID:        a.ID,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
			Filename:  a.Filename,
			Query:     query,
			Status:    a.Status,
		}
	}
	return summaries
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
