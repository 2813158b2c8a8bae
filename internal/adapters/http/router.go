package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/lexora-app/lexora/internal/adapters/http/openapi"
	"github.com/lexora-app/lexora/internal/config"
	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/core/ports"
	"github.com/lexora-app/lexora/internal/observability/metrics"
)

const (
	serviceName = "lexora-api"

	// multipartOverhead leaves room for boundaries and part headers on top
	// of the file itself.
	multipartOverhead  = 1 << 20
	maxJSONBodyBytes   = 1 << 20
	msgNoFileProvided  = "No file provided"
	msgNoMessageFound  = "No message provided"
	msgInvalidJSONBody = "invalid json"
)

type Router struct {
	cfg      config.Config
	analyzer ports.DocumentAnalyzer
	ingestor ports.DocumentIngestor
	reader   ports.DocumentReader
	chat     ports.ChatService

	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewRouter(
	cfg config.Config,
	analyzer ports.DocumentAnalyzer,
	ingestor ports.DocumentIngestor,
	reader ports.DocumentReader,
	chat ports.ChatService,
) *Router {
	return &Router{
		cfg:      cfg,
		analyzer: analyzer,
		ingestor: ingestor,
		reader:   reader,
		chat:     chat,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) WithLogger(logger *slog.Logger) *Router {
	if logger != nil {
		rt.logger = logger
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPIDocument)
	mux.HandleFunc("POST /v1/analyze", rt.analyzeDocument)
	mux.HandleFunc("POST /v1/classify", rt.classifyText)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocumentByID)
	mux.HandleFunc("POST /v1/documents/{id}/retry", rt.retryDocument)
	mux.HandleFunc("GET /v1/documents/{id}/chat", rt.chatHistory)
	mux.HandleFunc("POST /v1/chat", rt.askQuestion)
	mux.HandleFunc("GET /v1/chat/suggestions", rt.suggestedQuestions)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(
		handler,
		rt.cfg.APIMaxInFlight,
		time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond,
		rt.rejected("backpressure"),
	)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.rejected("rate_limit"))
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) rejected(reason string) func() {
	return func() {
		if rt.metrics != nil {
			rt.metrics.RecordRejected(serviceName, reason)
		}
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Raw())
}

type analyzeResponse struct {
	Success      bool                    `json:"success"`
	Analysis     domain.DocumentAnalysis `json:"analysis"`
	DocumentID   string                  `json:"documentId"`
	DocumentName string                  `json:"documentName"`
	ProcessedAt  time.Time               `json:"processedAt"`
}

func (rt *Router) analyzeDocument(w http.ResponseWriter, r *http.Request) {
	file, header, ok := rt.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	session, err := rt.analyzer.Analyze(
		r.Context(),
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	analysis := domain.DocumentAnalysis{}
	if session.Analysis != nil {
		analysis = *session.Analysis
	}
	rt.recordAnalysis("analyze", analysis)

	writeJSON(w, http.StatusOK, analyzeResponse{
		Success:      true,
		Analysis:     analysis,
		DocumentID:   session.ID,
		DocumentName: session.DocumentName,
		ProcessedAt:  session.UpdatedAt,
	})
}

func (rt *Router) classifyText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text *string `json:"text"`
	}
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	analysis, err := rt.analyzer.AnalyzeText(r.Context(), *req.Text)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.recordAnalysis("classify", analysis)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"analysis": analysis,
	})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, header, ok := rt.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	session, err := rt.ingestor.Upload(
		r.Context(),
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, session)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	session, err := rt.reader.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) retryDocument(w http.ResponseWriter, r *http.Request) {
	session, err := rt.ingestor.Retry(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, session)
}

func (rt *Router) chatHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	history, err := rt.chat.History(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documentId": id,
		"history":    history,
	})
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message    string `json:"message"`
		DocumentID string `json:"documentId"`
	}
	if !rt.decodeJSON(w, r, &req) {
		return
	}

	exchange, err := rt.chat.Ask(r.Context(), req.DocumentID, req.Message)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgNoMessageFound})
			return
		}
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordChatQuestion(serviceName, exchange.Matched)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"response":  exchange.Answer,
		"timestamp": exchange.Timestamp,
	})
}

func (rt *Router) suggestedQuestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"questions": rt.chat.SuggestedQuestions(),
	})
}

// formFile reads the "file" part under a body cap derived from the upload limit.
func (rt *Router) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	maxUpload := domain.UploadLimits{MaxBytes: rt.cfg.MaxUploadBytes}.Max()
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			rt.writeError(w, r, domain.UploadLimits{MaxBytes: maxUpload}.TooLarge())
			return nil, nil, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgNoFileProvided})
		return nil, nil, false
	}
	return file, header, true
}

func (rt *Router) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidJSONBody})
		return false
	}
	return true
}

func (rt *Router) recordAnalysis(endpoint string, analysis domain.DocumentAnalysis) {
	if rt.metrics == nil {
		return
	}
	rs := analysis.RiskSummary
	rt.metrics.RecordAnalysis(serviceName, endpoint, analysis.IsLegalDocument, analysis.DocumentType, rs.High, rs.Medium, rs.Low)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": publicMessage(status, err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
