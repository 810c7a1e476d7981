// Package chi exposes the match pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jewelmatch/internal/domain"
	"github.com/kailas-cloud/jewelmatch/internal/domain/cascade"
	"github.com/kailas-cloud/jewelmatch/internal/domain/catalog"
	"github.com/kailas-cloud/jewelmatch/internal/logger"
	healthuc "github.com/kailas-cloud/jewelmatch/internal/usecase/health"
	matchuc "github.com/kailas-cloud/jewelmatch/internal/usecase/match"
)

// User-facing messages. Internal detail is logged, never returned.
const (
	msgMissingImageURL = "Missing 'image_url' in request."
	msgInvalidImageURL = "Invalid 'image_url' in request."
	msgCaptionFailure  = "Could not analyze the image. Please try a different image or URL."
	msgExtraction      = "Could not understand the features of the jewelry in the image."
	msgSearch          = "Failed to retrieve initial search results from API."
	msgInternal        = "An unexpected error occurred. Please check server logs."
)

var validate = validator.New()

// Matcher runs the pipeline for an image.
type Matcher interface {
	Find(ctx context.Context, imageURL string) (matchuc.Outcome, error)
}

// errorHandler tries to handle a pipeline error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	match         Matcher
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(match Matcher, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		match:  match,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidImage, http.StatusInternalServerError, msgCaptionFailure),
		sentinelHandler(domain.ErrCaptionFailure, http.StatusInternalServerError, msgCaptionFailure),
		sentinelHandler(domain.ErrExtractionFailure, http.StatusInternalServerError, msgExtraction),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusInternalServerError, msgSearch),
	}
	return s
}

type findRequest struct {
	ImageURL string `json:"image_url" validate:"required,max=4096"`
}

type findResponse struct {
	Data                      []catalog.Item `json:"data"`
	TotalFound                int            `json:"total_found"`
	SourcePass                cascade.Label  `json:"source_pass"`
	TotalFoundByPrimarySource int            `json:"total_found_by_primary_source"`
	GeneratedCaption          string         `json:"generated_caption"`
}

type errorResponse struct {
	Error      string         `json:"error"`
	Data       []catalog.Item `json:"data"`
	TotalFound int            `json:"total_found"`
}

type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// FindSimilarJewelry handles POST /find_similar_jewelry.
func (s *Server) FindSimilarJewelry(w http.ResponseWriter, r *http.Request) {
	var req findRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, msgMissingImageURL)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidImageURL)
		return
	}

	ctx := logger.With(r.Context(), zap.String("image_url", req.ImageURL))
	out, err := s.match.Find(ctx, req.ImageURL)
	if err != nil {
		s.handlePipelineError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, findResponse{
		Data:                      nonNil(out.Result.Data),
		TotalFound:                out.Result.TotalFound,
		SourcePass:                out.Result.SourcePass,
		TotalFoundByPrimarySource: out.Result.TotalFoundByPrimarySource,
		GeneratedCaption:          out.Caption,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{
		Error: message,
		Data:  []catalog.Item{},
	})
}

func nonNil(items []catalog.Item) []catalog.Item {
	if items == nil {
		return []catalog.Item{}
	}
	return items
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, msg string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func (s *Server) handlePipelineError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("pipeline error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, msgInternal)
}
