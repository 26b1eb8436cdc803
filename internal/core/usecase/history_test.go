package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

type historyRepoFake struct {
	saved []domain.AnalysisRecord
}

func (f *historyRepoFake) Save(_ context.Context, record domain.AnalysisRecord) error {
	f.saved = append(f.saved, record)
	return nil
}

func (f *historyRepoFake) GetByID(_ context.Context, id string) (*domain.AnalysisRecord, error) {
	for _, rec := range f.saved {
		if rec.ID == id {
			copyRec := rec
			return &copyRec, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get analysis", errors.New(id))
}

func (f *historyRepoFake) ListRecent(_ context.Context, limit int) ([]domain.AnalysisRecord, error) {
	out := make([]domain.AnalysisRecord, 0, len(f.saved))
	for i := len(f.saved) - 1; i >= 0 && (limit == 0 || len(out) < limit); i-- {
		out = append(out, f.saved[i])
	}
	return out, nil
}

func TestHistoryRecordRequiresID(t *testing.T) {
	uc := NewAnalysisHistoryUseCase(&historyRepoFake{})
	err := uc.Record(context.Background(), domain.AnalysisRecord{})
	if !domain.IsKind(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestHistoryRecordAndGet(t *testing.T) {
	repo := &historyRepoFake{}
	uc := NewAnalysisHistoryUseCase(repo)

	if err := uc.Record(context.Background(), domain.AnalysisRecord{ID: "a-1", Filename: "x.pdf"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	rec, err := uc.GetByID(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if rec.Status != domain.AnalysisSucceeded || rec.Filename != "x.pdf" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestHistoryGetRequiresID(t *testing.T) {
	uc := NewAnalysisHistoryUseCase(&historyRepoFake{})
	if _, err := uc.GetByID(context.Background(), " "); !domain.IsKind(err, domain.ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
}

func TestHistoryListRecent(t *testing.T) {
	repo := &historyRepoFake{}
	uc := NewAnalysisHistoryUseCase(repo)
	for _, id := range []string{"a-1", "a-2", "a-3"} {
		if err := uc.Record(context.Background(), domain.AnalysisRecord{ID: id}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	records, err := uc.ListRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(records) != 2 || records[0].ID != "a-3" || records[1].ID != "a-2" {
		t.Fatalf("unexpected records %+v", records)
	}

	if _, err := uc.ListRecent(context.Background(), MaxListLimit+1); !domain.IsKind(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for oversized limit, got %v", err)
	}
}
