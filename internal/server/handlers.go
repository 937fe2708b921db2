package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/healthtrace/internal/agent"
	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/documents"
	"github.com/ziadkadry99/healthtrace/internal/embeddings"
	"github.com/ziadkadry99/healthtrace/internal/llm"
	"github.com/ziadkadry99/healthtrace/internal/patterns"
)

type checkInRequest struct {
	Transcript string             `json:"transcript"`
	Summary    string             `json:"summary"`
	Mood       int                `json:"mood"`
	Energy     int                `json:"energy"`
	Symptoms   []checkins.Symptom `json:"symptoms"`
	Source     checkins.Source    `json:"source"`
	CreatedAt  *time.Time         `json:"created_at"`
}

type documentRequest struct {
	Title        string     `json:"title"`
	DocumentType string     `json:"document_type"`
	Content      string     `json:"content"`
	CreatedAt    *time.Time `json:"created_at"`
}

type contextRequest struct {
	Query               string   `json:"query"`
	Limit               int      `json:"limit"`
	IncludeCheckIns     *bool    `json:"include_checkins"`
	IncludeDocuments    *bool    `json:"include_documents"`
	SimilarityThreshold *float32 `json:"similarity_threshold"`
}

type askRequest struct {
	Question string       `json:"question"`
	History  []agent.Turn `json:"history"`
}

type patternsResponse struct {
	Patterns []patterns.Pattern `json:"patterns"`
}

func (s *Server) handleCreateCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c := &checkins.CheckIn{
		UserID:     chi.URLParam(r, "userID"),
		Transcript: req.Transcript,
		Summary:    req.Summary,
		Mood:       req.Mood,
		Energy:     req.Energy,
		Symptoms:   req.Symptoms,
		Source:     req.Source,
	}
	if req.CreatedAt != nil {
		c.CreatedAt = req.CreatedAt.UTC()
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Ingest.IngestCheckIn(r.Context(), c)
	if err != nil {
		s.logger.Error("creating check-in", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListCheckIns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	list, err := s.deps.CheckIns.List(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []checkins.CheckIn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkins": list})
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	docType, err := documents.ParseType(req.DocumentType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc := &documents.Document{
		UserID:       chi.URLParam(r, "userID"),
		Title:        req.Title,
		DocumentType: docType,
		Content:      req.Content,
	}
	if req.CreatedAt != nil {
		doc.CreatedAt = req.CreatedAt.UTC()
	}

	res, err := s.deps.Ingest.IngestDocument(r.Context(), doc)
	if err != nil {
		s.logger.Error("ingesting document", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	opts := s.deps.RetrievalDefaults
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}
	if req.IncludeCheckIns != nil {
		opts.IncludeCheckIns = *req.IncludeCheckIns
	}
	if req.IncludeDocuments != nil {
		opts.IncludeDocuments = *req.IncludeDocuments
	}
	if req.SimilarityThreshold != nil {
		opts.SimilarityThreshold = *req.SimilarityThreshold
	}

	bundle, err := s.deps.Retriever.Retrieve(r.Context(), req.Query, chi.URLParam(r, "userID"), opts)
	if err != nil {
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	list := s.deps.Patterns.Detect(r.Context(), chi.URLParam(r, "userID"))
	if list == nil {
		list = []patterns.Pattern{}
	}
	writeJSON(w, http.StatusOK, patternsResponse{Patterns: list})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	ans, err := s.deps.Agent.Ask(r.Context(), chi.URLParam(r, "userID"), req.Question, req.History...)
	if err != nil {
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

// upstreamStatus maps provider outages to 502 and anything else to 500.
func upstreamStatus(err error) int {
	if errors.Is(err, embeddings.ErrUnavailable) || errors.Is(err, llm.ErrUnavailable) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
