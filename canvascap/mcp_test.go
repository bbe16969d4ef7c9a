package canvascap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/tilecap/canvascap/output"
)

var testMCPImpl = &mcp.Implementation{Name: "canvascap-test", Version: "0.1.0"}

func mcpSession(t *testing.T, svc Service) *mcp.ClientSession {
	t.Helper()
	if testPNG == nil {
		testPNG = tinyPNG(t)
	}
	srv := mcp.NewServer(testMCPImpl, nil)
	RegisterMCP(srv, svc, quietLogger())

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCall(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return result
}

func TestMCP_CaptureReturnsImage(t *testing.T) {
	svc := newFakeService(t, true)
	session := mcpSession(t, svc)

	res := mcpCall(t, session, "canvas_capture", map[string]any{"url": "https://example.test/board", "scale": 120})
	if err := res.GetError(); err != nil {
		t.Fatalf("tool error: %v", err)
	}
	if len(res.Content) != 2 {
		t.Fatalf("content: got %d items, want 2", len(res.Content))
	}

	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0]: expected TextContent, got %T", res.Content[0])
	}
	var meta output.Meta
	if err := json.Unmarshal([]byte(tc.Text), &meta); err != nil {
		t.Fatalf("unmarshal meta: %v", err)
	}
	if meta.SourceURL != "https://example.test/board" || meta.Scale != 120 {
		t.Fatalf("meta: %+v", meta)
	}

	ic, ok := res.Content[1].(*mcp.ImageContent)
	if !ok {
		t.Fatalf("content[1]: expected ImageContent, got %T", res.Content[1])
	}
	if ic.MIMEType != "image/png" || !bytes.Equal(ic.Data, testPNG) {
		t.Fatalf("image: mime %q, %d bytes", ic.MIMEType, len(ic.Data))
	}
	if len(svc.requests) != 1 || svc.requests[0].Scale != 120 {
		t.Fatalf("requests: %+v", svc.requests)
	}
}

func TestMCP_CaptureError(t *testing.T) {
	svc := newFakeService(t, false)
	svc.captureErr = errors.New("canvascap: missing collaborator: zoom label")
	session := mcpSession(t, svc)

	res := mcpCall(t, session, "canvas_capture", map[string]any{"url": "https://example.test"})
	if !res.IsError {
		t.Fatal("expected tool error")
	}
}

func TestMCP_List(t *testing.T) {
	svc := newFakeService(t, true)
	session := mcpSession(t, svc)

	mcpCall(t, session, "canvas_capture", map[string]any{"url": "https://example.test/a"})
	mcpCall(t, session, "canvas_capture", map[string]any{"url": "https://example.test/b"})

	res := mcpCall(t, session, "canvas_list", map[string]any{"limit": 10})
	if err := res.GetError(); err != nil {
		t.Fatalf("tool error: %v", err)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", res.Content[0])
	}
	var list []output.Meta
	if err := json.Unmarshal([]byte(tc.Text), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list: got %d entries, want 2", len(list))
	}
}
