package canvascap

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/tilecap/canvascap/output"
	"github.com/hazyhaar/tilecap/kit"
)

// RegisterMCP registers the canvas_capture and canvas_list tools.
func RegisterMCP(srv *mcp.Server, svc Service, logger *slog.Logger) {
	ep := NewEndpoints(svc, logger)
	registerCaptureTool(srv, ep)
	registerListTool(srv, ep)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// mcpImage sends a capture as its metadata followed by the PNG.
type mcpImage struct {
	img output.Image
}

func (m mcpImage) MCPContent() ([]mcp.Content, error) {
	meta, err := json.Marshal(m.img.Meta())
	if err != nil {
		return nil, err
	}
	return []mcp.Content{
		&mcp.TextContent{Text: string(meta)},
		&mcp.ImageContent{Data: m.img.Data, MIMEType: "image/png"},
	}, nil
}

func registerCaptureTool(srv *mcp.Server, ep Endpoints) {
	tool := &mcp.Tool{
		Name:        "canvas_capture",
		Description: "Capture the full canvas of a web page by panning its viewport tile by tile, and return the stitched PNG.",
		InputSchema: inputSchema(map[string]any{
			"url":   map[string]any{"type": "string", "description": "Page to capture (default: configured URL)"},
			"scale": map[string]any{"type": "integer", "description": "Zoom percentage, snapped up to a supported level (default 100)"},
		}, nil),
	}

	endpoint := kit.Chain(func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return nil, err
			}
			return mcpImage{img: resp.(output.Image)}, nil
		}
	})(ep.Capture)

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r Request
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func registerListTool(srv *mcp.Server, ep Endpoints) {
	tool := &mcp.Tool{
		Name:        "canvas_list",
		Description: "List archived canvas captures, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum entries (default 50)"},
		}, nil),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r listReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, ep.List, decode)
}
