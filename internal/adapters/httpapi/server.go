// Package httpapi exposes the scoring engine over HTTP. The route shapes
// match what the browser-side UI expects: analyze a message row, check a
// link before following it, look up authentication headers, submit
// feedback.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/core"
)

// Server serves the scoring API.
type Server struct {
	service *core.ScoringService
	logger  *zap.Logger
	addr    string
	httpSrv *http.Server
}

// NewServer creates the HTTP surface on the given listen address.
func NewServer(service *core.ScoringService, logger *zap.Logger, addr string) *Server {
	return &Server{service: service, logger: logger, addr: addr}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/analyze-email", s.handleAnalyzeEmail)
	r.Post("/check-url", s.handleCheckURL)
	r.Post("/lookup-headers", s.handleLookupHeaders)
	r.Post("/feedback", s.handleFeedback)
	r.Get("/health", s.handleHealth)
	return r
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP API starting", zap.String("address", s.addr))
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

type analyzeRequest struct {
	MessageID string   `json:"message_id"`
	Sender    string   `json:"sender"`
	Subject   string   `json:"subject"`
	Snippet   string   `json:"snippet"`
	Row       string   `json:"row,omitempty"`
	Links     []string `json:"links,omitempty"`
}

type analyzeResponse struct {
	Local       int    `json:"local"`
	ML          int    `json:"ml"`
	MLAvailable bool   `json:"ml_available"`
	HeaderTrust int    `json:"header_trust"`
	Final       int    `json:"final"`
	Verdict     string `json:"verdict"`
	RiskLevel   string `json:"risk_level"`
}

func (s *Server) handleAnalyzeEmail(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Sender == "" || req.Subject == "" {
		writeError(w, http.StatusBadRequest, "missing sender/subject")
		return
	}

	bundle := s.service.ScoreMessage(r.Context(), core.ScoreRequest{
		MessageID: req.MessageID,
		Sender:    req.Sender,
		Subject:   req.Subject,
		Snippet:   req.Snippet,
		Row:       req.Row,
		Links:     req.Links,
	})

	writeJSON(w, http.StatusOK, analyzeResponse{
		Local:       bundle.Local,
		ML:          bundle.ML,
		MLAvailable: bundle.MLAvailable,
		HeaderTrust: bundle.HeaderTrust,
		Final:       bundle.Final,
		Verdict:     bundle.Verdict.String(),
		RiskLevel:   bundle.Verdict.RiskLabel(),
	})
}

type checkURLRequest struct {
	URL   string          `json:"url"`
	Owner *analyzeRequest `json:"owner,omitempty"`
}

type checkURLResponse struct {
	Risk        int      `json:"risk"`
	Final       int      `json:"final"`
	PatternVeto bool     `json:"pattern_veto"`
	Reasons     []string `json:"reasons,omitempty"`
	Verdict     string   `json:"verdict"`
}

func (s *Server) handleCheckURL(w http.ResponseWriter, r *http.Request) {
	var req checkURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "no URL provided")
		return
	}

	var owner *core.ScoreRequest
	if req.Owner != nil {
		owner = &core.ScoreRequest{
			MessageID: req.Owner.MessageID,
			Sender:    req.Owner.Sender,
			Subject:   req.Owner.Subject,
			Snippet:   req.Owner.Snippet,
		}
	}

	verdict := s.service.CheckLink(r.Context(), req.URL, owner)
	writeJSON(w, http.StatusOK, checkURLResponse{
		Risk:        verdict.Risk,
		Final:       verdict.Final,
		PatternVeto: verdict.PatternVeto,
		Reasons:     verdict.Reasons,
		Verdict:     verdict.Verdict.String(),
	})
}

type lookupResponse struct {
	MessageID        string            `json:"message_id"`
	Headers          map[string]string `json:"headers"`
	SPF              string            `json:"spf"`
	DKIM             string            `json:"dkim"`
	DMARC            string            `json:"dmarc"`
	Trust            int               `json:"trust"`
	TrustBoost       int               `json:"trust_boost"`
	EnvelopeMismatch bool              `json:"envelope_mismatch"`
	RelayDetected    bool              `json:"relay_detected"`
}

func (s *Server) handleLookupHeaders(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	info, err := s.service.LookupHeaders(r.Context(), core.ScoreRequest{
		MessageID: req.MessageID,
		Sender:    req.Sender,
		Subject:   req.Subject,
		Snippet:   req.Snippet,
	})
	if err != nil {
		// the failure tag tells the UI whether re-authorization is needed
		status := http.StatusBadGateway
		if errors.Is(err, core.ErrNoCredentials) {
			status = http.StatusUnauthorized
		} else if errors.Is(err, core.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": core.FailureTag(err)})
		return
	}

	writeJSON(w, http.StatusOK, lookupResponse{
		MessageID:        info.MessageID,
		Headers:          info.Headers,
		SPF:              string(info.Parsed.SPF),
		DKIM:             string(info.Parsed.DKIM),
		DMARC:            string(info.Parsed.DMARC),
		Trust:            info.Trust,
		TrustBoost:       info.TrustBoost,
		EnvelopeMismatch: info.EnvelopeMismatch,
		RelayDetected:    info.RelayDetected,
	})
}

type feedbackRequest struct {
	Label  string            `json:"label"`
	Detail map[string]string `json:"detail"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	label := core.FeedbackLabel(req.Label)
	if label != core.FeedbackSafe && label != core.FeedbackUnsafe {
		writeError(w, http.StatusBadRequest, "label must be safe or unsafe")
		return
	}

	s.service.SubmitFeedback(r.Context(), label, req.Detail)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "phishspector",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
