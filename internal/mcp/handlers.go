package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/manualqa/internal/chat"
	"github.com/ziadkadry99/manualqa/internal/vectordb"
)

// handleAskManuals answers a question within a new or existing session.
func (s *Server) handleAskManuals(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	var sess *chat.Session
	if id := request.GetString("session_id", ""); id != "" {
		sess, err = s.sessions.Get(ctx, id)
	} else {
		sess, err = s.sessions.Create(ctx)
	}
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			return mcp.NewToolResultError("unknown session_id; omit it to start a new conversation"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("session: %v", err)), nil
	}

	answer, err := s.engine.AskWith(ctx, sess, question, chat.AskOptions{TopK: request.GetInt("top_k", 0)})
	if err != nil {
		if errors.Is(err, vectordb.ErrIndexNotInitialized) {
			return mcp.NewToolResultError("The manuals are not indexed yet. Run `manualqa ingest` first."), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("question failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\nsession_id: %s", answer.Text, sess.ID)), nil
}

// handleSearchManuals runs a raw similarity search over the index.
func (s *Server) handleSearchManuals(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	results, err := s.searcher.SimilaritySearch(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The manuals may not be indexed yet. Run `manualqa ingest` to index them."), nil
	}

	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}
