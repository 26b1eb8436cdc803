package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
	"github.com/kirillkom/pdf-analysis-gateway/internal/core/ports"
)

// AnalysisObserver receives a copy of every finished analysis record.
type AnalysisObserver interface {
	ObserveAnalysis(record domain.AnalysisRecord)
}

type AnalyzeDocumentUseCase struct {
	stager    ports.UploadStager
	client    ports.AnalysisClient
	publisher ports.AnalysisPublisher
	observer  AnalysisObserver

	now func() time.Time
}

// NewAnalyzeDocumentUseCase wires the upload pipeline. publisher and observer may be nil.
func NewAnalyzeDocumentUseCase(
	stager ports.UploadStager,
	client ports.AnalysisClient,
	publisher ports.AnalysisPublisher,
	observer AnalysisObserver,
) *AnalyzeDocumentUseCase {
	return &AnalyzeDocumentUseCase{
		stager:    stager,
		client:    client,
		publisher: publisher,
		observer:  observer,
		now:       time.Now,
	}
}

// Analyze stages body, forwards it to the analysis service and returns the
// normalized result. The staged file is released on every return path.
func (uc *AnalyzeDocumentUseCase) Analyze(
	ctx context.Context,
	analysisID, filename string,
	body io.Reader,
) (*domain.AnalysisResult, error) {
	started := uc.now()

	staged, err := uc.stager.Stage(ctx, filename, body)
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	defer uc.release(ctx, analysisID, staged)

	result, err := uc.client.Analyze(ctx, staged)
	uc.finish(ctx, analysisID, staged, started, result, err)
	if err != nil {
		return nil, fmt.Errorf("forward document: %w", err)
	}
	return result, nil
}

func (uc *AnalyzeDocumentUseCase) release(ctx context.Context, analysisID string, staged *domain.StagedFile) {
	if err := uc.stager.Release(context.WithoutCancel(ctx), staged); err != nil {
		slog.Warn("staged_file_release_failed",
			"analysis_id", analysisID,
			"file", staged.OriginalName,
			"error", err,
		)
	}
}

func (uc *AnalyzeDocumentUseCase) finish(
	ctx context.Context,
	analysisID string,
	staged *domain.StagedFile,
	started time.Time,
	result *domain.AnalysisResult,
	analyzeErr error,
) {
	record := domain.AnalysisRecord{
		ID:         analysisID,
		Filename:   staged.OriginalName,
		SizeBytes:  staged.SizeBytes,
		PageCount:  staged.PageCount,
		Status:     domain.AnalysisSucceeded,
		DurationMS: float64(uc.now().Sub(started).Microseconds()) / 1000.0,
		CreatedAt:  started.UTC(),
	}
	if analyzeErr != nil {
		record.Status = domain.AnalysisFailed
		record.Error = analyzeErr.Error()
		slog.Error("analysis_forward_failed",
			"analysis_id", analysisID,
			"file", staged.OriginalName,
			"size_bytes", staged.SizeBytes,
			"error", analyzeErr,
		)
	} else if result != nil {
		record.CSVDownload = derefString(result.CSVDownload)
		record.JSONDownload = derefString(result.JSONDownload)
		record.NumRecords = result.NumRecords
		record.PreviewRows = len(result.PreviewRows)
		slog.Info("analysis_forwarded",
			"analysis_id", analysisID,
			"file", staged.OriginalName,
			"size_bytes", staged.SizeBytes,
			"pages", staged.PageCount,
			"duration_ms", record.DurationMS,
		)
	}

	if uc.observer != nil {
		uc.observer.ObserveAnalysis(record)
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishAnalysisCompleted(context.WithoutCancel(ctx), record); err != nil {
			slog.Warn("analysis_event_publish_failed", "analysis_id", analysisID, "error", err)
		}
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
