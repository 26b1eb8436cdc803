package mlservice

import (
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/resilience"
)

const (
	DefaultAnalyzePath = "/analyze"
	DefaultTimeout     = 60 * time.Second

	fileFieldName = "file"
)

// Client talks to the remote analysis service. The base URL is fixed at
// construction.
type Client struct {
	baseURL     string
	analyzePath string

	httpClient   *http.Client
	streamClient *http.Client
	executor     *resilience.Executor
}

type Options struct {
	AnalyzePath string
	Timeout     time.Duration
	Executor    *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	analyzePath := strings.TrimSpace(options.AnalyzePath)
	if analyzePath == "" {
		analyzePath = DefaultAnalyzePath
	}
	if !strings.HasPrefix(analyzePath, "/") {
		analyzePath = "/" + analyzePath
	}

	// Downloads may stream for longer than the timeout; only the wait for
	// response headers is bounded.
	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = timeout

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		analyzePath:  analyzePath,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{Transport: streamTransport},
		executor:     options.Executor,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}
