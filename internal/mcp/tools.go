package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askManualsTool defines the ask_manuals MCP tool.
var askManualsTool = mcp.NewTool("ask_manuals",
	mcp.WithDescription("Ask a question about the equipment manuals. Answers are grounded in the indexed PDFs and cite the pages they draw on when confident."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithString("session_id",
		mcp.Description("Continue an earlier conversation. Omit to start a new one; the result names the session to pass next time."),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Number of manual sections to ground the answer in (default from config)"),
	),
)

// searchManualsTool defines the search_manuals MCP tool.
var searchManualsTool = mcp.NewTool("search_manuals",
	mcp.WithDescription("Semantic search over the manual sections. Returns matching text with source file, page and relevance score."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)
