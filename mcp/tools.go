package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/pricehound/internal/marketdata"
	"github.com/lukman83/pricehound/internal/refparse"
)

func registerTools(s *server.MCPServer) {
	// resolve_product
	resolveTool := mcp.NewTool("resolve_product",
		mcp.WithDescription("Resolve a Wildberries/Ozon product link or article number to its current title and price"),
		mcp.WithString("reference",
			mcp.Required(),
			mcp.Description("Product link, bare article number, or 'ozon <id>' / 'wb <id>'"),
		),
	)
	s.AddTool(resolveTool, handleResolveProduct)

	// list_marketplaces
	listTool := mcp.NewTool("list_marketplaces",
		mcp.WithDescription("List supported marketplaces"),
	)
	s.AddTool(listTool, handleListMarketplaces)
}

func handleResolveProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reference := request.GetString("reference", "")
	if reference == "" {
		return mcp.NewToolResultError("reference is required"), nil
	}

	ref, err := refparse.New(nil).Parse(reference)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse error: %v", err)), nil
	}

	fetcher, err := marketdata.Get(ref.Marketplace)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marketplace error: %v", err)), nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	snap, err := fetcher.Fetch(fetchCtx, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetch error: %v", err)), nil
	}

	data, _ := json.MarshalIndent(struct {
		marketdata.Ref
		Title string `json:"title"`
		Price int64  `json:"price"`
	}{Ref: ref, Title: snap.Title, Price: snap.Price}, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func handleListMarketplaces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, _ := json.MarshalIndent(marketdata.List(), "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}
