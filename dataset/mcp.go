package dataset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	kiln "github.com/spetersoncode/kiln"
)

// FromMCP connects to an MCP server over stdio, lists its tools, and loads
// them as a dataset with one row per tool: "name", "description", and
// "parameters" (the tool's input schema as a JSON object). The connection
// is closed before this returns; the catalog is a snapshot.
//
// Tool-calling pipelines iterate this dataset to synthesize function-call
// training records against a real tool surface.
func FromMCP(ctx context.Context, name, command string, env []string, args ...string) (*Memory, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("create MCP client: %w", err)
	}
	return fromMCPClient(ctx, name, c)
}

// FromMCPSSE is FromMCP over an SSE transport.
func FromMCPSSE(ctx context.Context, name, baseURL string) (*Memory, error) {
	c, err := client.NewSSEMCPClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("create SSE MCP client: %w", err)
	}
	return fromMCPClient(ctx, name, c)
}

func fromMCPClient(ctx context.Context, name string, c *client.Client) (*Memory, error) {
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start MCP client: %w", err)
	}
	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "kiln",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize MCP session: %w", err)
	}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list MCP tools: %w", err)
	}

	rows := make([]kiln.Row, 0, len(result.Tools))
	for _, t := range result.Tools {
		params, err := schemaObject(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q input schema: %w", t.Name, err)
		}
		rows = append(rows, kiln.Row{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  params,
		})
	}
	return FromRowsOrdered(name, rows, []string{"name", "description", "parameters"}), nil
}

func schemaObject(s mcp.ToolInputSchema) (map[string]any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
