// Package chi exposes the engine over a REST surface.
package chi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/signalrank/signalrank/internal/domain"
	"github.com/signalrank/signalrank/internal/domain/record"
	"github.com/signalrank/signalrank/internal/domain/search/result"
	"github.com/signalrank/signalrank/internal/domain/signal"
	"github.com/signalrank/signalrank/internal/metrics"
	"github.com/signalrank/signalrank/internal/usecase/recommend"
	"github.com/signalrank/signalrank/internal/version"
)

// Server routes engine operations.
type Server struct {
	engine *recommend.Service
	logger *zap.Logger
}

// NewServer creates the REST server around one engine service.
func NewServer(engine *recommend.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: engine, logger: logger}
}

// Router assembles the chi router with middleware and routes.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(RequestIDMiddleware(s.logger))
	r.Use(LoggingMiddleware())
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/recommend", s.handleRecommend)
		r.Post("/track", s.handleTrack)
		r.Post("/search", s.handleSearch)
		r.Post("/link", s.handleLink)
	})

	return r
}

// --- DTOs ---

type recordDTO struct {
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

func (d recordDTO) toRecord() record.Record {
	return record.NewMap(d.Key, d.Fields)
}

type candidateDTO struct {
	Key    string         `json:"key"`
	Rank   *float64       `json:"rank,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

func toCandidateDTOs(candidates []result.Candidate) []candidateDTO {
	out := make([]candidateDTO, len(candidates))
	for i, c := range candidates {
		dto := candidateDTO{Key: c.Key()}
		if c.Ranked() {
			rank := c.Rank()
			dto.Rank = &rank
		}
		if m, ok := c.Record().(*record.MapRecord); ok {
			dto.Fields = m.Fields()
		}
		out[i] = dto
	}
	return out
}

func toSetDTO(set result.Set) map[string][]candidateDTO {
	out := make(map[string][]candidateDTO, len(set))
	for label, candidates := range set {
		out[label] = toCandidateDTOs(candidates)
	}
	return out
}

// --- Handlers ---

type recommendRequest struct {
	Labels         []string         `json:"labels"`
	Profiles       []signal.Profile `json:"profiles,omitempty"`
	Geo            *signal.Geo      `json:"geo,omitempty"`
	Size           int              `json:"size,omitempty"`
	MaxPollingSize int              `json:"max_polling_size,omitempty"`
	SkipRank       bool             `json:"skip_rank,omitempty"`
}

type recommendResponse struct {
	Results  map[string][]candidateDTO `json:"results"`
	Response *signal.Response          `json:"response,omitempty"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Labels) == 0 {
		writeError(w, http.StatusBadRequest, "labels is required")
		return
	}

	set, resp, err := s.engine.Recommend(r.Context(), req.Labels, recommend.Options{
		Profiles:       req.Profiles,
		Geo:            req.Geo,
		Size:           req.Size,
		MaxPollingSize: req.MaxPollingSize,
		SkipRank:       req.SkipRank,
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	for label, candidates := range set {
		metrics.RankedCandidatesTotal.WithLabelValues(label).Add(float64(len(candidates)))
	}
	writeJSON(w, http.StatusOK, recommendResponse{Results: toSetDTO(set), Response: resp})
}

type trackRequest struct {
	Record   recordDTO        `json:"record"`
	Label    string           `json:"label"`
	Profiles []signal.Profile `json:"profiles,omitempty"`
	Location *signal.Location `json:"location,omitempty"`
	Geo      *signal.Geo      `json:"geo,omitempty"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Label == "" || req.Record.Key == "" {
		writeError(w, http.StatusBadRequest, "label and record.key are required")
		return
	}

	resp, err := s.engine.Track(r.Context(), req.Record.toRecord(), req.Label,
		req.Profiles, req.Location, recommend.TrackOptions{Geo: req.Geo})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	Query          string      `json:"query"`
	Tokens         []string    `json:"tokens,omitempty"`
	Labels         []string    `json:"labels,omitempty"`
	Geo            *signal.Geo `json:"geo,omitempty"`
	Size           int         `json:"size,omitempty"`
	MaxPollingSize int         `json:"max_polling_size,omitempty"`
	SkipRank       bool        `json:"skip_rank,omitempty"`
}

type searchResponse struct {
	Results   map[string][]candidateDTO `json:"results"`
	Flat      []candidateDTO            `json:"flat,omitempty"`
	Responses []*signal.Response        `json:"responses,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Query == "" && len(req.Tokens) == 0 {
		writeError(w, http.StatusBadRequest, "query or tokens is required")
		return
	}

	tokens := req.Tokens
	if len(tokens) == 0 {
		tokens = nil
	}
	opts := recommend.SearchOptions{
		Labels:         req.Labels,
		Geo:            req.Geo,
		Size:           req.Size,
		MaxPollingSize: req.MaxPollingSize,
		SkipRank:       req.SkipRank,
	}

	var (
		set       result.Set
		responses []*signal.Response
		err       error
	)
	if tokens != nil {
		set, responses, err = s.engine.SearchTokens(r.Context(), recommend.Tokenize(tokens), opts)
	} else {
		set, responses, err = s.engine.Search(r.Context(), req.Query, opts)
	}
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	out := searchResponse{Results: toSetDTO(set), Responses: responses}
	if flat := set.Flat(); flat != nil {
		out.Flat = toCandidateDTOs(flat)
	}
	writeJSON(w, http.StatusOK, out)
}

type linkRequest struct {
	Record   recordDTO        `json:"record"`
	Other    recordDTO        `json:"other"`
	Label    string           `json:"label"`
	Location *signal.Location `json:"location,omitempty"`
	Geo      *signal.Geo      `json:"geo,omitempty"`
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Label == "" || req.Record.Key == "" || req.Other.Key == "" {
		writeError(w, http.StatusBadRequest, "label, record.key, and other.key are required")
		return
	}

	resp, err := s.engine.Link(r.Context(), req.Record.toRecord(), s.engine,
		req.Other.toRecord(), req.Label, req.Location,
		recommend.TrackOptions{Geo: req.Geo})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// --- Helpers ---

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("engine call failed", zap.Error(err),
		zap.String("path", r.URL.Path))

	switch {
	case errors.Is(err, domain.ErrConfiguration):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
