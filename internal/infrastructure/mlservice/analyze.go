package mlservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

// Analyze streams the staged file to the analysis endpoint and normalizes the
// JSON envelope it returns. The staged file is not removed here.
func (c *Client) Analyze(ctx context.Context, file *domain.StagedFile) (*domain.AnalysisResult, error) {
	if file == nil {
		return nil, domain.WrapError(domain.ErrNoFileProvided, "analyze", fmt.Errorf("staged file is nil"))
	}

	var body []byte
	err := c.execute(ctx, "ml.analyze", func(callCtx context.Context) error {
		raw, err := c.postFile(callCtx, file)
		if err != nil {
			return err
		}
		body = raw
		return nil
	})
	if err != nil {
		return nil, wrapUpstreamError("analyze", err)
	}

	return c.ParseEnvelope(body), nil
}

func (c *Client) postFile(ctx context.Context, file *domain.StagedFile) ([]byte, error) {
	f, err := os.Open(file.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	head, tail, contentType, err := multipartFrame(file.OriginalName)
	if err != nil {
		return nil, err
	}

	payload := io.MultiReader(bytes.NewReader(head), f, bytes.NewReader(tail))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.analyzePath, payload)
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	req.ContentLength = int64(len(head)) + file.SizeBytes + int64(len(tail))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ml service analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, newHTTPStatusError("analyze", resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read analyze response: %w", err)
	}
	return raw, nil
}

// multipartFrame renders everything around the file content of a one-part
// multipart body so the file itself can be streamed from disk.
func multipartFrame(filename string) (head, tail []byte, contentType string, err error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		fileFieldName, quoteEscaper.Replace(filename)))
	partHeader.Set("Content-Type", partContentType(filename))
	if _, err := mw.CreatePart(partHeader); err != nil {
		return nil, nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	headLen := buf.Len()

	if err := mw.Close(); err != nil {
		return nil, nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	raw := buf.Bytes()
	return raw[:headLen:headLen], raw[headLen:], mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func partContentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
