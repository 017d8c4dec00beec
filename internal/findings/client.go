package findings

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerSpec is what ReviewPhase/FixPhase's build_config hands back to
// the engine as a PhaseConfig.mcp_servers entry: the command the
// backend should itself spawn and speak MCP to.
type ServerSpec struct {
	Command []string
	Env     map[string]string
}

// Client is an orchestrator-side MCP connection to one task's findings
// server subprocess. The engine's acquire_resources does not use it; it
// connects through internal/mcp.Client instead. Grounded on the
// teacher's internal/mcp/client.go connectServer (NewClient +
// CommandTransport + Connect).
type Client struct {
	session *sdkmcp.ClientSession
}

// Connect spawns the findings-mcp subprocess described by spec and
// completes the MCP initialize handshake.
func Connect(ctx context.Context, spec ServerSpec) (*Client, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("findings: empty command")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	sdkClient := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "opencode-studio",
		Version: "1.0.0",
	}, nil)

	session, err := sdkClient.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to findings server: %w", err)
	}

	return &Client{session: session}, nil
}

// Close disconnects from the findings server. The subprocess, on seeing
// its stdin close, writes findings.json itself and exits.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}
