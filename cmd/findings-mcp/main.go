// Command findings-mcp runs the review-findings MCP server over stdio
// for one task/session. The orchestrator spawns it as a subprocess and
// hands the spawn command to the backend as an mcp_servers entry; on
// stdin close it persists the accumulated findings and exits.
package main

import (
	"flag"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/souky-byte/opencode-studio/internal/artifact"
	"github.com/souky-byte/opencode-studio/internal/findings"
)

func main() {
	taskID := flag.String("task-id", "", "task id this review session belongs to")
	sessionID := flag.String("session-id", "", "backend session id")
	artifactDir := flag.String("artifact-dir", "", "project .opencode-studio directory")
	flag.Parse()

	if *taskID == "" || *artifactDir == "" {
		log.Fatal("findings-mcp: --task-id and --artifact-dir are required")
	}

	s, acc := findings.NewServer(*taskID, *sessionID)

	if err := server.ServeStdio(s); err != nil {
		log.Printf("findings-mcp: stdio server stopped: %v", err)
	}

	snap := acc.Snapshot()
	if err := findings.Validate(snap); err != nil {
		log.Fatalf("findings-mcp: findings failed validation, not writing findings.json: %v", err)
	}

	store := artifact.New(*artifactDir)
	if err := store.WriteFindings(*taskID, snap); err != nil {
		log.Fatalf("findings-mcp: write findings.json: %v", err)
	}
}
