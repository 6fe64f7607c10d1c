package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bananafashion/studio/internal/portfolio"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *portfolio.Store) {
	t.Helper()
	store, err := portfolio.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return MCPDeps{Store: store}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func mcpSaveItem(t *testing.T, store *portfolio.Store, id string, mode portfolio.Mode, ts time.Time) {
	t.Helper()
	err := store.Add(portfolio.Item{
		ID:        id,
		Timestamp: ts,
		Mode:      mode,
		ImageURL:  "data:image/png;base64,AAAA",
	})
	if err != nil {
		t.Fatalf("Add(%s): %v", id, err)
	}
}

// --- tests ---

func TestMCPTool_ListPortfolio(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	base := time.Now().UTC()
	mcpSaveItem(t, store, "old", portfolio.ModeTryOn, base.Add(-time.Hour))
	mcpSaveItem(t, store, "new", portfolio.ModePhotoshoot, base)

	handler := mcpListPortfolio(deps)
	result, err := handler(context.Background(), makeCallToolRequest("list_portfolio", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var items []struct {
		ID   string `json:"id"`
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &items); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("listed %d items, want 2", len(items))
	}
	if items[0].ID != "new" {
		t.Errorf("first item = %q, want newest first", items[0].ID)
	}
}

func TestMCPTool_ListPortfolioModeFilter(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	now := time.Now().UTC()
	mcpSaveItem(t, store, "a", portfolio.ModeTryOn, now)
	mcpSaveItem(t, store, "b", portfolio.ModeBoutique, now)

	handler := mcpListPortfolio(deps)
	result, err := handler(context.Background(), makeCallToolRequest("list_portfolio", map[string]interface{}{
		"mode": "boutique",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var items []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &items); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(items) != 1 || items[0].ID != "b" {
		t.Errorf("filtered items = %v, want [b]", items)
	}
}

func TestMCPTool_PortfolioUsage(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	mcpSaveItem(t, store, "a", portfolio.ModeTryOn, time.Now().UTC())

	handler := mcpPortfolioUsage(deps)
	result, err := handler(context.Background(), makeCallToolRequest("portfolio_usage", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var usage struct {
		UsedBytes  int64 `json:"used_bytes"`
		LimitBytes int64 `json:"limit_bytes"`
		ItemCount  int   `json:"item_count"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &usage); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if usage.ItemCount != 1 {
		t.Errorf("item_count = %d, want 1", usage.ItemCount)
	}
	if usage.UsedBytes <= 0 {
		t.Errorf("used_bytes = %d, want > 0", usage.UsedBytes)
	}
	if usage.LimitBytes != portfolio.DefaultLimitBytes {
		t.Errorf("limit_bytes = %d, want default %d", usage.LimitBytes, int64(portfolio.DefaultLimitBytes))
	}
}

func TestMCPTool_DeleteItems(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	now := time.Now().UTC()
	mcpSaveItem(t, store, "a", portfolio.ModeTryOn, now)
	mcpSaveItem(t, store, "b", portfolio.ModeTryOn, now)

	handler := mcpDeleteItems(deps)
	result, err := handler(context.Background(), makeCallToolRequest("delete_items", map[string]interface{}{
		"ids": []string{"a", "ghost"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if got := toolText(t, result); !strings.Contains(got, "Deleted 1 of 2") {
		t.Errorf("result = %q, want deleted count", got)
	}

	count, _ := store.Count()
	if count != 1 {
		t.Errorf("remaining items = %d, want 1", count)
	}
}

func TestMCPTool_DeleteItemsRequiresIDs(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	handler := mcpDeleteItems(deps)
	result, err := handler(context.Background(), makeCallToolRequest("delete_items", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing ids")
	}
}

func TestMCPResource_Items(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	mcpSaveItem(t, store, "a", portfolio.ModeTryOn, time.Now().UTC())

	handler := mcpResourceItems(deps)
	contents, err := handler(context.Background(), makeReadResourceRequest("portfolio://items"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var items []portfolio.Item
	if err := json.Unmarshal([]byte(tc.Text), &items); err != nil {
		t.Fatalf("decoding resource: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Errorf("resource items = %v, want [a]", items)
	}
}
