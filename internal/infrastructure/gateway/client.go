// Package gateway is a Go client for the analysis gateway HTTP API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/mlservice"
)

const (
	defaultTimeout  = 2 * time.Minute
	maxResponseBody = 64 << 20

	fallbackFailureMessage = "Upload failed"
	unparseableMessage     = "Unable to parse server response as CSV or JSON"
	unexpectedShapeMessage = "Unexpected JSON response shape"
)

// Error carries a message fit for an end user. Cause keeps the diagnostic
// chain for logs and errors.Is.
type Error struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Options struct {
	Timeout    time.Duration
	HTTPClient *http.Client
}

func New(baseURL string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// AnalyzeDocument uploads body and normalizes whatever comes back into rows,
// branching on the response Content-Type.
func (c *Client) AnalyzeDocument(ctx context.Context, filename string, body io.Reader) (domain.TabularData, error) {
	resp, payload, err := c.upload(ctx, filename, body)
	if err != nil {
		return nil, err
	}

	rows, err := mlservice.Normalize(resp.Header.Get("Content-Type"), payload)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: normalizeFailureMessage(err), Cause: err}
	}
	return rows, nil
}

// AnalyzeRows uploads body once and returns rows whether the server answered
// with tabular content or with the gateway envelope, in which case the
// preview rows are used.
func (c *Client) AnalyzeRows(ctx context.Context, filename string, body io.Reader) (domain.TabularData, error) {
	resp, payload, err := c.upload(ctx, filename, body)
	if err != nil {
		return nil, err
	}

	rows, err := mlservice.Normalize(resp.Header.Get("Content-Type"), payload)
	if err == nil {
		return rows, nil
	}
	if !domain.IsKind(err, domain.ErrUnrecognizedResponseShape) {
		return nil, &Error{StatusCode: resp.StatusCode, Message: normalizeFailureMessage(err), Cause: err}
	}
	result, envErr := decodeEnvelope(resp.StatusCode, payload)
	if envErr != nil || !hasTabularPreview(result) {
		return nil, &Error{StatusCode: resp.StatusCode, Message: normalizeFailureMessage(err), Cause: err}
	}
	return result.PreviewRows, nil
}

// Analyze uploads body and decodes the gateway envelope. PreviewRows is
// filled from the preview payload when it has a tabular shape.
func (c *Client) Analyze(ctx context.Context, filename string, body io.Reader) (*domain.AnalysisResult, error) {
	resp, payload, err := c.upload(ctx, filename, body)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(resp.StatusCode, payload)
}

func hasTabularPreview(result *domain.AnalysisResult) bool {
	if len(result.Preview) == 0 {
		return false
	}
	_, err := mlservice.ClassifyPayload(result.Preview).Tabulate()
	return err == nil
}

func decodeEnvelope(statusCode int, payload []byte) (*domain.AnalysisResult, error) {
	var env struct {
		Data *domain.AnalysisResult `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil || env.Data == nil {
		if err == nil {
			err = errors.New("envelope without data")
		}
		return nil, &Error{
			StatusCode: statusCode,
			Message:    unparseableMessage,
			Cause:      domain.WrapError(domain.ErrUnparseableResponse, "decode envelope", err),
		}
	}
	if len(env.Data.Preview) > 0 {
		if rows, err := mlservice.ClassifyPayload(env.Data.Preview).Tabulate(); err == nil {
			env.Data.PreviewRows = rows
		}
	}
	return env.Data, nil
}

// Download opens a result file through the gateway download proxy. The
// caller closes Body.
func (c *Client) Download(ctx context.Context, reference string) (*domain.RemoteFile, error) {
	target := c.baseURL + "/download?" + url.Values{"file": {reference}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{
			Message: fallbackFailureMessage,
			Cause:   domain.WrapError(domain.ErrUpstreamUnavailable, "gateway download", err),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return nil, rejection(resp.StatusCode, payload)
	}
	return &domain.RemoteFile{
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		Body:               resp.Body,
	}, nil
}

func (c *Client) upload(ctx context.Context, filename string, body io.Reader) (*http.Response, []byte, error) {
	pr, pw := io.Pipe()
	defer pr.Close()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeFilePart(writer, filename, body))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", pr)
	if err != nil {
		return nil, nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &Error{
			Message: fallbackFailureMessage,
			Cause:   domain.WrapError(domain.ErrUpstreamUnavailable, "gateway analyze", err),
		}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    fallbackFailureMessage,
			Cause:      domain.WrapError(domain.ErrUpstreamUnavailable, "read analyze response", err),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, rejection(resp.StatusCode, payload)
	}
	return resp, payload, nil
}

func writeFilePart(writer *multipart.Writer, filename string, body io.Reader) error {
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, body); err != nil {
		return err
	}
	return writer.Close()
}

// rejection prefers the server's envelope message over a generic one.
func rejection(statusCode int, payload []byte) error {
	message := fallbackFailureMessage
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &env); err == nil && strings.TrimSpace(env.Message) != "" {
		message = env.Message
	}
	return &Error{
		StatusCode: statusCode,
		Message:    message,
		Cause:      domain.WrapError(domain.ErrUpstreamRejected, "gateway", fmt.Errorf("status %d", statusCode)),
	}
}

func normalizeFailureMessage(err error) string {
	if domain.IsKind(err, domain.ErrUnrecognizedResponseShape) {
		return unexpectedShapeMessage
	}
	return unparseableMessage
}
