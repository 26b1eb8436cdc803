package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
	"github.com/kirillkom/pdf-analysis-gateway/internal/core/ports"
)

type DownloadFileUseCase struct {
	fetcher ports.FileFetcher
}

func NewDownloadFileUseCase(fetcher ports.FileFetcher) *DownloadFileUseCase {
	return &DownloadFileUseCase{fetcher: fetcher}
}

// Open resolves reference against the analysis service and returns the open
// remote stream. The caller closes RemoteFile.Body.
func (uc *DownloadFileUseCase) Open(ctx context.Context, reference string) (*domain.RemoteFile, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, domain.WrapError(domain.ErrMissingParameter, "download", errors.New("file reference is required"))
	}

	file, err := uc.fetcher.Fetch(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("fetch remote file: %w", err)
	}
	return file, nil
}
