package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

type stagerFake struct {
	stageErr   error
	releaseErr error

	stagedBody string
	released   []*domain.StagedFile
}

func (f *stagerFake) Stage(_ context.Context, filename string, body io.Reader) (*domain.StagedFile, error) {
	if f.stageErr != nil {
		return nil, f.stageErr
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.stagedBody = string(raw)
	return &domain.StagedFile{
		LocalPath:    "/tmp/staged_" + filename,
		OriginalName: filename,
		SizeBytes:    int64(len(raw)),
		PageCount:    2,
	}, nil
}

func (f *stagerFake) Release(_ context.Context, file *domain.StagedFile) error {
	f.released = append(f.released, file)
	return f.releaseErr
}

type analysisClientFake struct {
	result *domain.AnalysisResult
	err    error
	got    *domain.StagedFile
}

func (f *analysisClientFake) Analyze(_ context.Context, file *domain.StagedFile) (*domain.AnalysisResult, error) {
	f.got = file
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type publisherFake struct {
	records []domain.AnalysisRecord
	err     error
}

func (f *publisherFake) PublishAnalysisCompleted(_ context.Context, record domain.AnalysisRecord) error {
	f.records = append(f.records, record)
	return f.err
}

type observerFake struct {
	records []domain.AnalysisRecord
}

func (f *observerFake) ObserveAnalysis(record domain.AnalysisRecord) {
	f.records = append(f.records, record)
}

func strPtr(s string) *string { return &s }

func TestAnalyzeSuccessReleasesStagedFile(t *testing.T) {
	num := int64(3)
	stager := &stagerFake{}
	client := &analysisClientFake{result: &domain.AnalysisResult{
		CSVDownload: strPtr("http://ml/download?file=a.csv"),
		NumRecords:  &num,
		PreviewRows: domain.TabularData{{"h"}, {"v"}},
	}}
	publisher := &publisherFake{}
	observer := &observerFake{}
	uc := NewAnalyzeDocumentUseCase(stager, client, publisher, observer)

	result, err := uc.Analyze(context.Background(), "req-1", "soil.pdf", strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result != client.result {
		t.Fatalf("expected client result to be returned")
	}
	if stager.stagedBody != "pdf-bytes" {
		t.Fatalf("unexpected staged body %q", stager.stagedBody)
	}
	if client.got == nil || client.got.OriginalName != "soil.pdf" {
		t.Fatalf("client did not receive staged file: %+v", client.got)
	}
	if len(stager.released) != 1 || stager.released[0] != client.got {
		t.Fatalf("expected staged file to be released once, got %d", len(stager.released))
	}

	if len(publisher.records) != 1 {
		t.Fatalf("expected one published record, got %d", len(publisher.records))
	}
	rec := publisher.records[0]
	if rec.ID != "req-1" || rec.Status != domain.AnalysisSucceeded || rec.CSVDownload != "http://ml/download?file=a.csv" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.NumRecords == nil || *rec.NumRecords != 3 || rec.PreviewRows != 2 || rec.PageCount != 2 {
		t.Fatalf("unexpected record counters: %+v", rec)
	}
	if len(observer.records) != 1 {
		t.Fatalf("expected observer to see the record")
	}
}

func TestAnalyzeUpstreamFailureStillReleases(t *testing.T) {
	stager := &stagerFake{}
	upstreamErr := domain.WrapError(domain.ErrUpstreamRejected, "analyze", errors.New("status 500"))
	client := &analysisClientFake{err: upstreamErr}
	publisher := &publisherFake{}
	uc := NewAnalyzeDocumentUseCase(stager, client, publisher, nil)

	_, err := uc.Analyze(context.Background(), "req-2", "a.pdf", strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrUpstreamRejected) {
		t.Fatalf("expected ErrUpstreamRejected, got %v", err)
	}
	if len(stager.released) != 1 {
		t.Fatalf("expected release after failure, got %d", len(stager.released))
	}
	if len(publisher.records) != 1 || publisher.records[0].Status != domain.AnalysisFailed {
		t.Fatalf("expected failed record, got %+v", publisher.records)
	}
	if !strings.Contains(publisher.records[0].Error, "status 500") {
		t.Fatalf("expected error detail in record, got %q", publisher.records[0].Error)
	}
}

func TestAnalyzeStageFailureSkipsForwarding(t *testing.T) {
	stager := &stagerFake{stageErr: domain.WrapError(domain.ErrPayloadTooLarge, "stage", errors.New("too big"))}
	client := &analysisClientFake{}
	publisher := &publisherFake{}
	uc := NewAnalyzeDocumentUseCase(stager, client, publisher, nil)

	_, err := uc.Analyze(context.Background(), "req-3", "a.pdf", strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if client.got != nil {
		t.Fatalf("client must not be called when staging fails")
	}
	if len(stager.released) != 0 {
		t.Fatalf("nothing staged, nothing to release")
	}
	if len(publisher.records) != 0 {
		t.Fatalf("no record expected for rejected uploads")
	}
}

func TestAnalyzeReleaseAndPublishFailuresAreNotEscalated(t *testing.T) {
	stager := &stagerFake{releaseErr: errors.New("permission denied")}
	client := &analysisClientFake{result: &domain.AnalysisResult{}}
	publisher := &publisherFake{err: errors.New("nats down")}
	uc := NewAnalyzeDocumentUseCase(stager, client, publisher, nil)

	if _, err := uc.Analyze(context.Background(), "req-4", "a.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
}
