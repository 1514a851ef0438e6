package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ziadkadry99/manualqa/internal/llm"
	"github.com/ziadkadry99/manualqa/internal/vectordb"
)

var (
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrRetrieval wraps failures fetching grounding chunks.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration wraps language model failures, including empty answers.
	ErrGeneration = errors.New("answer generation failed")
)

// Retriever fetches the chunks used to ground the prompt.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]vectordb.SearchResult, error)
}

// Searcher runs the similarity search that gates citations.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]vectordb.SearchResult, error)
}

// Recorder persists turns appended to a session.
type Recorder interface {
	AppendTurns(ctx context.Context, sessionID string, turns ...Turn) error
}

// Options are the per-process answering parameters.
type Options struct {
	TopK              int
	CitationThreshold float32
	Temperature       float64
}

// AskOptions overrides Options for a single question. Zero fields keep the
// engine's value.
type AskOptions struct {
	TopK              int
	CitationThreshold *float32
}

// Answer is the outcome of one answered question.
type Answer struct {
	// Text is the model answer followed by the citation block, if any.
	Text         string     `json:"text"`
	Raw          string     `json:"raw"`
	Citations    []Citation `json:"citations,omitempty"`
	Model        string     `json:"model,omitempty"`
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
}

// Engine answers questions against the manual index.
type Engine struct {
	retriever Retriever
	searcher  Searcher
	provider  llm.Provider
	template  *Template
	opts      Options
	recorder  Recorder
	usage     llm.Usage
}

// NewEngine creates an engine. TopK defaults to 3.
func NewEngine(retriever Retriever, searcher Searcher, provider llm.Provider, tmpl *Template, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	return &Engine{
		retriever: retriever,
		searcher:  searcher,
		provider:  provider,
		template:  tmpl,
		opts:      opts,
	}
}

// WithRecorder makes the engine persist every appended turn.
func (e *Engine) WithRecorder(r Recorder) *Engine {
	e.recorder = r
	return e
}

// Usage returns the accumulated token usage of all answered questions.
func (e *Engine) Usage() *llm.Usage { return &e.usage }

// Ask answers question within sess using the engine's options.
func (e *Engine) Ask(ctx context.Context, sess *Session, question string) (*Answer, error) {
	return e.AskWith(ctx, sess, question, AskOptions{})
}

// AskWith answers question within sess. The question and answer are appended
// to the session only when generation produced a non-empty answer.
func (e *Engine) AskWith(ctx context.Context, sess *Session, question string, ao AskOptions) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	k := e.opts.TopK
	if ao.TopK > 0 {
		k = ao.TopK
	}
	threshold := e.opts.CitationThreshold
	if ao.CitationThreshold != nil {
		threshold = *ao.CitationThreshold
	}

	if err := sess.begin(); err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			sess.finish()
		}
	}()

	history := sess.Transcript()

	grounding, err := e.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	prompt, err := e.template.Render(map[string]string{
		SlotContext:     joinChunks(grounding),
		SlotChatHistory: history,
		SlotQuestion:    question,
	})
	if err != nil {
		return nil, err
	}

	resp, err := llm.Generate(ctx, e.provider, prompt, e.opts.Temperature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	e.usage.Record(resp)
	raw := strings.TrimSpace(resp.Content)
	if raw == "" {
		return nil, fmt.Errorf("%w: model returned an empty answer", ErrGeneration)
	}

	now := time.Now().UTC()
	turns := []Turn{
		{Role: llm.RoleUser, Content: question, At: now},
		{Role: llm.RoleAssistant, Content: raw, At: now},
	}
	sess.finish(turns...)
	committed = true

	if e.recorder != nil {
		if err := e.recorder.AppendTurns(ctx, sess.ID, turns...); err != nil {
			log.Printf("chat: persisting session %s: %v", sess.ID, err)
		}
	}

	answer := &Answer{
		Text:         raw,
		Raw:          raw,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}

	scored, err := e.searcher.SimilaritySearch(ctx, question, k)
	if err != nil {
		log.Printf("chat: citation search failed, answering without sources: %v", err)
		return answer, nil
	}
	answer.Citations = CollectCitations(scored, threshold)
	answer.Text = raw + FormatCitations(answer.Citations)
	return answer, nil
}

func joinChunks(results []vectordb.SearchResult) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Chunk.Text)
	}
	return strings.Join(texts, "\n\n")
}
