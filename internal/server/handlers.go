package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gridsmith/sldgen/pkg/errors"
	"github.com/gridsmith/sldgen/pkg/layout"
	"github.com/gridsmith/sldgen/pkg/pipeline"
	"github.com/gridsmith/sldgen/pkg/sparql"
	"github.com/gridsmith/sldgen/pkg/store"
	"github.com/gridsmith/sldgen/pkg/validate"
)

// GenerateRequest is the body of POST /sld/generate-data.
type GenerateRequest struct {
	Dataset    string `json:"dataset" validate:"required"`
	Convention string `json:"convention,omitempty"`
	Refresh    bool   `json:"refresh,omitempty"`
	// Store persists the document and returns its ID.
	Store bool `json:"store,omitempty"`
}

// GenerateResponse is the body of a successful generation.
type GenerateResponse struct {
	ID       string            `json:"id,omitempty"`
	Document *layout.Document  `json:"document"`
	Findings validate.Findings `json:"findings,omitempty"`
	Cached   bool              `json:"cached"`
	RowsHash string            `json:"rows_hash,omitempty"`
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid request body: %v", err))
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request"))
		return
	}
	if req.Convention == "" {
		req.Convention = pipeline.DefaultConvention
	}

	src := &sparql.Source{Client: s.client, Dataset: req.Dataset}
	result, err := s.runner.Execute(r.Context(), src, pipeline.Options{
		Convention: req.Convention,
		Endpoint:   s.cfg.Endpoint,
		Dataset:    req.Dataset,
		Refresh:    req.Refresh,
		Logger:     s.logger,
	})

	s.metrics.observeRun(req.Convention, err, time.Since(start))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.observeFindings(result.Stats.FindingCount)

	resp := GenerateResponse{
		Document: result.Document,
		Findings: result.Findings,
		Cached:   result.CacheInfo.DocumentHit,
		RowsHash: result.RowsHash,
	}
	if req.Store {
		id, err := s.store.Put(r.Context(), req.Dataset, req.Convention, result.Document)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.ID = id
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []*store.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListSymbols(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.symbols.All())
}

func (s *Server) handleGetSymbol(w http.ResponseWriter, r *http.Request) {
	sym, err := s.symbols.Get(chi.URLParam(r, "type"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sym)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response", "err", err)
	}
}

// writeError maps error codes onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := errors.GetCode(err)
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConvention:
		status = http.StatusBadRequest
	case errors.ErrCodeMalformedTopology:
		status = http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound, errors.ErrCodeSymbolNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeSPARQLQuery, errors.ErrCodeSPARQLNetwork:
		status = http.StatusBadGateway
	case "":
		code = errors.ErrCodeInternal
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "err", err)
	}
	s.writeJSON(w, status, errorResponse{
		Code:    string(code),
		Message: errors.UserMessage(err),
	})
}
