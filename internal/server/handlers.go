package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/manualqa/internal/chat"
	"github.com/ziadkadry99/manualqa/internal/vectordb"
)

type askRequest struct {
	Question          string   `json:"question"`
	TopK              int      `json:"top_k,omitempty"`
	CitationThreshold *float32 `json:"citation_threshold,omitempty"`
}

type askResponse struct {
	SessionID string `json:"session_id"`
	*chat.Answer
	HTML string `json:"html"`
}

type sessionResponse struct {
	ID    string      `json:"id"`
	State string      `json:"state"`
	Turns []chat.Turn `json:"turns"`
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type searchHit struct {
	Source string  `json:"source"`
	Page   string  `json:"page"`
	Score  float32 `json:"score"`
	Text   string  `json:"text"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, State: sess.State().String(), Turns: []chat.Turn{}})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	turns := sess.Turns()
	if turns == nil {
		turns = []chat.Turn{}
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, State: sess.State().String(), Turns: turns})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	resp, err := s.ask(r, sess, req)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) ask(r *http.Request, sess *chat.Session, req askRequest) (*askResponse, error) {
	answer, err := s.engine.AskWith(r.Context(), sess, req.Question, chat.AskOptions{
		TopK:              req.TopK,
		CitationThreshold: req.CitationThreshold,
	})
	if err != nil {
		return nil, err
	}
	html, err := s.renderer.Render(answer.Text)
	if err != nil {
		log.Printf("server: rendering answer: %v", err)
	}
	return &askResponse{SessionID: sess.ID, Answer: answer, HTML: html}, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.K <= 0 {
		req.K = 5
	}

	results, err := s.searcher.SimilaritySearch(r.Context(), req.Query, req.K)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	hits := make([]searchHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, searchHit{
			Source: res.Chunk.Source,
			Page:   res.Chunk.Page.String(),
			Score:  res.Score,
			Text:   res.Chunk.Text,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// errorStatus maps engine and index errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, vectordb.ErrIndexNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, chat.ErrRetrieval), errors.Is(err, chat.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
