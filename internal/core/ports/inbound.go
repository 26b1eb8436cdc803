package ports

import (
	"context"
	"io"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

// DocumentAnalyzer is the inbound contract for the upload-and-forward pipeline.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, analysisID, filename string, body io.Reader) (*domain.AnalysisResult, error)
}

// FileDownloader is the inbound contract for the download proxy.
type FileDownloader interface {
	Open(ctx context.Context, reference string) (*domain.RemoteFile, error)
}

// AnalysisReader is the inbound read model for analysis history.
type AnalysisReader interface {
	GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.AnalysisRecord, error)
}
