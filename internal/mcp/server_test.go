package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/manualqa/internal/chat"
	"github.com/ziadkadry99/manualqa/internal/documents"
	"github.com/ziadkadry99/manualqa/internal/llm"
	"github.com/ziadkadry99/manualqa/internal/vectordb"
)

// mockIndex implements chat.Retriever and chat.Searcher for testing.
type mockIndex struct {
	results []vectordb.SearchResult
	err     error
}

func (m *mockIndex) Retrieve(ctx context.Context, q string, k int) ([]vectordb.SearchResult, error) {
	return m.SimilaritySearch(ctx, q, k)
}

func (m *mockIndex) SimilaritySearch(_ context.Context, _ string, k int) ([]vectordb.SearchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if k < len(m.results) {
		return m.results[:k], nil
	}
	return m.results, nil
}

// mockProvider echoes a fixed answer and records prompts.
type mockProvider struct {
	answer  string
	prompts []string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.prompts = append(m.prompts, req.Messages[0].Content)
	return &llm.CompletionResponse{Content: m.answer}, nil
}

var watermakerHits = []vectordb.SearchResult{
	{Chunk: documents.Chunk{Text: "Flush the membrane with fresh water weekly.", Source: "watermaker.pdf", Page: 22}, Score: 0.93},
	{Chunk: documents.Chunk{Text: "Pickling solution procedure.", Source: "watermaker.pdf", Page: 23}, Score: 0.81},
}

func newTestServer(idx *mockIndex, p *mockProvider) *Server {
	tmpl, _ := chat.NewTemplate("{context}|{chat_history}|{question}")
	engine := chat.NewEngine(idx, idx, p, tmpl, chat.Options{TopK: 3, CitationThreshold: 0.8})
	return NewServer(engine, chat.NewManager(nil), idx)
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func sessionIDFrom(t *testing.T, text string) string {
	t.Helper()
	_, id, ok := strings.Cut(text, "session_id: ")
	if !ok || id == "" {
		t.Fatalf("no session id in %q", text)
	}
	return strings.TrimSpace(id)
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"ask_manuals", askManualsTool, "ask_manuals"},
		{"search_manuals", searchManualsTool, "search_manuals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(&mockIndex{}, &mockProvider{})
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandleAskManuals(t *testing.T) {
	ctx := context.Background()

	t.Run("new session with citations", func(t *testing.T) {
		srv := newTestServer(&mockIndex{results: watermakerHits}, &mockProvider{answer: "Flush weekly."})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"question": "How often do I flush the membrane?"}

		result, err := srv.handleAskManuals(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "Sources:\n- watermaker.pdf page 22\n- watermaker.pdf page 23") {
			t.Errorf("missing citations:\n%s", text)
		}
		sessionIDFrom(t, text)
	})

	t.Run("follow-up carries history", func(t *testing.T) {
		p := &mockProvider{answer: "Flush weekly."}
		srv := newTestServer(&mockIndex{results: watermakerHits}, p)

		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"question": "How often do I flush?"}
		first, _ := srv.handleAskManuals(ctx, req)
		id := sessionIDFrom(t, resultText(t, first))

		req.Params.Arguments = map[string]any{"question": "With what?", "session_id": id}
		second, err := srv.handleAskManuals(ctx, req)
		if err != nil || second.IsError {
			t.Fatalf("follow-up failed: %v %v", err, second.Content)
		}
		if !strings.Contains(p.prompts[1], "User: How often do I flush?\nAssistant: Flush weekly.") {
			t.Errorf("history missing from prompt:\n%s", p.prompts[1])
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		srv := newTestServer(&mockIndex{}, &mockProvider{answer: "a"})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"question": "q", "session_id": "nope"}

		result, err := srv.handleAskManuals(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for unknown session")
		}
	})

	t.Run("index not built", func(t *testing.T) {
		srv := newTestServer(&mockIndex{err: vectordb.ErrIndexNotInitialized}, &mockProvider{answer: "a"})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"question": "q"}

		result, _ := srv.handleAskManuals(ctx, req)
		if !result.IsError || !strings.Contains(resultText(t, result), "manualqa ingest") {
			t.Errorf("expected ingest hint, got %+v", result.Content)
		}
	})

	t.Run("missing question", func(t *testing.T) {
		srv := newTestServer(&mockIndex{}, &mockProvider{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleAskManuals(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing question")
		}
	})
}

func TestHandleSearchManuals(t *testing.T) {
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		srv := newTestServer(&mockIndex{results: watermakerHits}, &mockProvider{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "membrane", "limit": float64(1)}

		result, err := srv.handleSearchManuals(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "Found 1 result(s)") || !strings.Contains(text, "watermaker.pdf, page 22") {
			t.Errorf("unexpected output:\n%s", text)
		}
	})

	t.Run("empty index", func(t *testing.T) {
		srv := newTestServer(&mockIndex{}, &mockProvider{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "anything"}

		result, err := srv.handleSearchManuals(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Error("empty index should not be a tool error")
		}
		if !strings.Contains(resultText(t, result), "No results found") {
			t.Error("expected no-results message")
		}
	})

	t.Run("search failure", func(t *testing.T) {
		srv := newTestServer(&mockIndex{err: errors.New("connection refused")}, &mockProvider{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "anything"}

		result, _ := srv.handleSearchManuals(ctx, req)
		if !result.IsError {
			t.Error("expected tool error")
		}
	})

	t.Run("missing query", func(t *testing.T) {
		srv := newTestServer(&mockIndex{}, &mockProvider{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, _ := srv.handleSearchManuals(ctx, req)
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})
}
