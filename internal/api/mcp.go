package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bananafashion/studio/internal/portfolio"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *portfolio.Store
}

// NewMCPServer creates an MCP server exposing the portfolio as tools
// and resources for agent clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"studio",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("studio — local fashion design portfolio: saved looks, storage usage, and curation."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_portfolio",
			mcp.WithDescription("List saved portfolio items, newest first. Image payloads are omitted; use the portfolio resource for full items."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of items (default 20)")),
			mcp.WithString("mode", mcp.Description("Filter by workflow mode (e.g. tryOn, photoshoot)")),
		),
		mcpListPortfolio(deps),
	)

	s.AddTool(
		mcp.NewTool("portfolio_usage",
			mcp.WithDescription("Report portfolio storage usage: bytes used, the configured limit, and item count."),
		),
		mcpPortfolioUsage(deps),
	)

	s.AddTool(
		mcp.NewTool("delete_items",
			mcp.WithDescription("Delete portfolio items by id."),
			mcp.WithArray("ids", mcp.Description("Item ids to delete"), mcp.Required()),
		),
		mcpDeleteItems(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"portfolio://items",
			"Portfolio Items",
			mcp.WithResourceDescription("All saved portfolio items as JSON, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceItems(deps),
	)

	return s
}

func mcpListPortfolio(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}
		modeFilter := req.GetString("mode", "")

		items, err := deps.Store.GetAll()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list portfolio: %v", err)), nil
		}

		type itemSummary struct {
			ID        string `json:"id"`
			Timestamp string `json:"timestamp"`
			Mode      string `json:"mode"`
			Prompt    string `json:"prompt,omitempty"`
			Steps     int    `json:"steps,omitempty"`
		}

		summaries := make([]itemSummary, 0, limit)
		for _, item := range items {
			if modeFilter != "" && string(item.Mode) != modeFilter {
				continue
			}
			summaries = append(summaries, itemSummary{
				ID:        item.ID,
				Timestamp: item.Timestamp.UTC().Format(time.RFC3339),
				Mode:      string(item.Mode),
				Prompt:    item.Prompt,
				Steps:     len(item.Settings.History),
			})
			if len(summaries) >= limit {
				break
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal items: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpPortfolioUsage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		used, err := deps.Store.TotalSize()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to compute usage: %v", err)), nil
		}
		limit, err := deps.Store.LimitBytes()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read limit: %v", err)), nil
		}
		count, err := deps.Store.Count()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to count items: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"used_bytes":  used,
			"limit_bytes": limit,
			"item_count":  count,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal usage: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpDeleteItems(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids := req.GetStringSlice("ids", nil)
		if len(ids) == 0 {
			return mcpError("ids is required and must not be empty"), nil
		}

		deleted := 0
		for _, id := range ids {
			err := deps.Store.Delete(id)
			if errors.Is(err, portfolio.ErrNotFound) {
				continue
			}
			if err != nil {
				return mcpError(fmt.Sprintf("failed to delete %s: %v", id, err)), nil
			}
			deleted++
		}

		return mcpText(fmt.Sprintf("Deleted %d of %d items", deleted, len(ids))), nil
	}
}

func mcpResourceItems(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		items, err := deps.Store.GetAll()
		if err != nil {
			return nil, fmt.Errorf("failed to list portfolio: %w", err)
		}
		if items == nil {
			items = []portfolio.Item{}
		}

		b, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal items: %w", err)
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
