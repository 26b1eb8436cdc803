package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/pdf-analysis-gateway/internal/config"
	"github.com/kirillkom/pdf-analysis-gateway/internal/core/ports"
	"github.com/kirillkom/pdf-analysis-gateway/internal/observability/metrics"
)

const serviceName = "api"

// uploadOverheadBytes covers multipart framing and small text parts on top
// of the file ceiling.
const uploadOverheadBytes = 1 << 20

type Router struct {
	analyzer   ports.DocumentAnalyzer
	downloader ports.FileDownloader
	history    ports.AnalysisReader
	metrics    *metrics.HTTPServerMetrics
	breakers   func() map[string]string

	uploadMaxBytes   int64
	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

// NewRouter builds the gateway routes. history may be nil, in which case the
// analysis history route is not registered.
func NewRouter(
	cfg config.Config,
	analyzer ports.DocumentAnalyzer,
	downloader ports.FileDownloader,
	history ports.AnalysisReader,
) *Router {
	uploadMaxBytes := cfg.UploadMaxBytes
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = 20 << 20
	}
	return &Router{
		analyzer:         analyzer,
		downloader:       downloader,
		history:          history,
		uploadMaxBytes:   uploadMaxBytes,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIMaxInFlight,
		backpressureWait: time.Duration(cfg.APIBackpressureWaitMS) * time.Millisecond,
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

// WithBreakerStates exposes circuit breaker states on /healthz.
func (rt *Router) WithBreakerStates(states func() map[string]string) *Router {
	rt.breakers = states
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/analyze", rt.analyzeDocument)
	api.HandleFunc("/download", rt.downloadFile)
	api.HandleFunc("/export", rt.exportTable)
	if rt.history != nil {
		api.HandleFunc("/v1/analyses", rt.listAnalyses)
		api.HandleFunc("/v1/analyses/", rt.getAnalysisByID)
	}

	var guarded http.Handler = api
	guarded = backpressureMiddleware(guarded, rt.maxInFlight, rt.backpressureWait)
	guarded = rateLimitMiddleware(guarded, rt.rateLimitRPS, rt.rateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/openapi.json", serveOpenAPIJSON)
	mux.HandleFunc("/openapi.yaml", serveOpenAPIYAML)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.Handle("/", guarded)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{"status": "ok"}
	if rt.breakers != nil {
		payload["breakers"] = rt.breakers()
	}
	writeJSON(w, http.StatusOK, payload)
}

// envelope is the stable response shape of every JSON endpoint.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{StatusCode: status, Data: data, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeEnvelope(w, http.StatusMethodNotAllowed, nil, msgMethodNotAllowed)
	return false
}
