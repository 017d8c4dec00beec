// Package findings builds the MCP tool server an AI reviewer calls
// during ReviewPhase/FixPhase to record structured findings (served over
// stdio by the cmd/findings-mcp subprocess), plus a standalone Client
// that can spawn and connect to that subprocess.
package findings

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// NewServer builds an MCP server exposing record_finding and
// complete_review, backed by a fresh Accumulator, the way the teacher's
// pkg/mcpserver/calculator.NewServer builds a server.NewMCPServer with
// one registered tool and handler.
func NewServer(taskID, sessionID string) (*server.MCPServer, *Accumulator) {
	acc := NewAccumulator(taskID, sessionID)

	s := server.NewMCPServer(
		"opencode-studio-findings",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(mcp.NewTool("record_finding",
		mcp.WithDescription("Record a code review finding. Call this once per issue found during review."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short title describing the issue (max 100 chars)"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Detailed description of the issue and why it should be fixed"),
		),
		mcp.WithString("severity",
			mcp.Required(),
			mcp.Description("error (must fix), warning (should fix), or info (suggestion)"),
		),
		mcp.WithString("file_path",
			mcp.Description("The file path where the issue was found"),
		),
		mcp.WithNumber("line_start",
			mcp.Description("Starting line number of the issue"),
		),
		mcp.WithNumber("line_end",
			mcp.Description("Ending line number of the issue"),
		),
	), recordFindingHandler(acc))

	s.AddTool(mcp.NewTool("complete_review",
		mcp.WithDescription("Complete the review. Call this exactly once, after recording every finding."),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Overall summary of the code review"),
		),
		mcp.WithBoolean("approved",
			mcp.Required(),
			mcp.Description("True if the code is approved (no blocking issues)"),
		),
	), completeReviewHandler(acc))

	return s, acc
}

func recordFindingHandler(acc *Accumulator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		title, _ := args["title"].(string)
		description, _ := args["description"].(string)
		severityArg, _ := args["severity"].(string)
		if title == "" || description == "" {
			return mcp.NewToolResultError("title and description are required"), nil
		}

		severity := types.SeverityWarning
		switch severityArg {
		case "error":
			severity = types.SeverityError
		case "info":
			severity = types.SeverityInfo
		}

		finding := types.ReviewFinding{
			Title:       title,
			Description: description,
			Severity:    severity,
			Status:      types.FindingPending,
		}
		if fp, ok := args["file_path"].(string); ok && fp != "" {
			finding.FilePath = &fp
		}
		if ls, ok := toInt(args["line_start"]); ok {
			finding.LineStart = &ls
		}
		if le, ok := toInt(args["line_end"]); ok {
			finding.LineEnd = &le
		}

		saved := acc.Add(finding)
		return mcp.NewToolResultText(fmt.Sprintf("Finding recorded: %s (%s)", saved.ID, saved.Title)), nil
	}
}

func completeReviewHandler(acc *Accumulator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		summary, _ := args["summary"].(string)
		approved, _ := args["approved"].(bool)

		acc.Complete(summary, approved)

		snap := acc.Snapshot()
		return mcp.NewToolResultText(fmt.Sprintf(
			"Review completed. %d findings recorded. Approved: %t", len(snap.Findings), snap.Approved,
		)), nil
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
