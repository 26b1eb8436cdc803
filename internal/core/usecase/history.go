package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
	"github.com/kirillkom/pdf-analysis-gateway/internal/core/ports"
)

const MaxListLimit = 500

type AnalysisHistoryUseCase struct {
	repo ports.AnalysisRepository
}

func NewAnalysisHistoryUseCase(repo ports.AnalysisRepository) *AnalysisHistoryUseCase {
	return &AnalysisHistoryUseCase{repo: repo}
}

// Record persists one finished analysis. Records without an id are rejected.
func (uc *AnalysisHistoryUseCase) Record(ctx context.Context, record domain.AnalysisRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return domain.WrapError(domain.ErrInvalidParameter, "record analysis", errors.New("analysis id is required"))
	}
	if record.Status == "" {
		record.Status = domain.AnalysisSucceeded
	}
	if err := uc.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("save analysis record: %w", err)
	}
	return nil
}

func (uc *AnalysisHistoryUseCase) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrMissingParameter, "get analysis", errors.New("analysis id is required"))
	}
	return uc.repo.GetByID(ctx, id)
}

// ListRecent returns up to limit records, newest first. limit must not exceed
// MaxListLimit; zero selects the repository default.
func (uc *AnalysisHistoryUseCase) ListRecent(ctx context.Context, limit int) ([]domain.AnalysisRecord, error) {
	if limit < 0 || limit > MaxListLimit {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "list analyses", fmt.Errorf("limit must be between 0 and %d", MaxListLimit))
	}
	records, err := uc.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list analysis records: %w", err)
	}
	return records, nil
}
