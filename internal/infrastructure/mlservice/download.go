package mlservice

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

// Fetch resolves reference and opens the remote file as a stream. The caller
// must close the returned body.
func (c *Client) Fetch(ctx context.Context, reference string) (*domain.RemoteFile, error) {
	target := c.Resolve(reference)

	var resp *http.Response
	err := c.execute(ctx, "ml.download", func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("create download request: %w", err)
		}
		r, err := c.streamClient.Do(req)
		if err != nil {
			return fmt.Errorf("ml service download request: %w", err)
		}
		if r.StatusCode >= 300 {
			defer r.Body.Close()
			return newHTTPStatusError("download", r)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, wrapUpstreamError("download", err)
	}

	return &domain.RemoteFile{
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		Body:               resp.Body,
	}, nil
}
