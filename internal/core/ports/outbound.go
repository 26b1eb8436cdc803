package ports

import (
	"context"
	"io"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

// UploadStager writes an incoming upload to ephemeral storage.
type UploadStager interface {
	Stage(ctx context.Context, filename string, body io.Reader) (*domain.StagedFile, error)
	Release(ctx context.Context, file *domain.StagedFile) error
}

// AnalysisClient submits a staged document to the remote analysis service.
type AnalysisClient interface {
	Analyze(ctx context.Context, file *domain.StagedFile) (*domain.AnalysisResult, error)
}

// FileFetcher resolves a file reference against the analysis service and opens it as a stream.
type FileFetcher interface {
	Fetch(ctx context.Context, reference string) (*domain.RemoteFile, error)
}

// AnalysisPublisher emits history events for finished analyses.
type AnalysisPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, record domain.AnalysisRecord) error
}

// AnalysisRepository persists analysis history.
type AnalysisRepository interface {
	Save(ctx context.Context, record domain.AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.AnalysisRecord, error)
}
