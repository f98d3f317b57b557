package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pagescope/pagescope/internal/analyzer"
)

// Version is the current API version (can be set via ldflags at build time)
var Version = "0.1.0"

// PageAnalyzer runs the page-analysis pipeline for one URL. It always
// returns a well-formed report; fatal fetch failures arrive as
// error-shaped reports, not as errors.
type PageAnalyzer interface {
	Analyze(ctx context.Context, targetURL string) *analyzer.Report
}

// Handler holds dependencies for API handlers
type Handler struct {
	Analyzer PageAnalyzer
}

// NewHandler creates a new API handler with dependencies
func NewHandler(pageAnalyzer PageAnalyzer) *Handler {
	return &Handler{Analyzer: pageAnalyzer}
}

// SetupRoutes configures all API routes
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/extract", h.Extract)

	// Static landing page
	mux.HandleFunc("/", h.ServeHomepage)
}

// extractRequest is the POST /extract request body.
type extractRequest struct {
	URL string `json:"url"`
}

// Extract handles POST /extract: it runs the analysis pipeline
// synchronously and returns the report as JSON. Reports for failed
// fetches are still returned with status 200; their error field tells
// the consumer what went wrong. Only a missing URL is a client error.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, r)
		return
	}

	// A malformed or absent body is treated the same as a missing URL.
	var req extractRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	targetURL := strings.TrimSpace(req.URL)
	if targetURL == "" {
		BadRequest(w, r, "URL is required")
		return
	}

	logger := loggerWithRequest(r)
	logger.Info().Str("url", targetURL).Msg("Starting page analysis")

	report := h.Analyzer.Analyze(r.Context(), targetURL)
	if report.Error != "" {
		logger.Warn().Str("url", targetURL).Str("error", report.Error).Msg("Analysis returned error report")
	}

	WriteJSON(w, r, report, http.StatusOK)
}

// HealthCheck handles basic health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, r)
		return
	}

	WriteHealthy(w, r, "pagescope", Version)
}

// ServeHomepage serves the static landing page
func (h *Handler) ServeHomepage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, "./web/index.html")
}
