package app

import (
	"context"
	"strings"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

// RegisterGenerator upserts a generator from the external inventory
// contract. A default rating row is guaranteed afterwards.
func (s *Service) RegisterGenerator(ctx context.Context, record storage.GeneratorRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return apperrors.New(apperrors.CodeInvalidPayload, "generator_id is required")
	}
	if strings.TrimSpace(record.Name) == "" {
		return apperrors.New(apperrors.CodeInvalidPayload, "generator name is required")
	}

	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := s.store.UpsertGenerator(ctx, record); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "upsert generator", err)
	}
	return nil
}

// RegisterLevel upserts a level owned by a known generator.
func (s *Service) RegisterLevel(ctx context.Context, record storage.LevelRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return apperrors.New(apperrors.CodeInvalidPayload, "level_id is required")
	}
	if record.Width <= 0 || record.Height <= 0 {
		return apperrors.New(apperrors.CodeInvalidPayload, "level dimensions must be positive")
	}

	if _, err := s.store.GetGenerator(ctx, record.GeneratorID); err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return apperrors.WithMetadata(apperrors.CodeGeneratorNotFound,
				"generator not found", map[string]string{"generator_id": record.GeneratorID})
		}
		return apperrors.Wrap(apperrors.CodeInternal, "load generator", err)
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	if err := s.store.UpsertLevel(ctx, record); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "upsert level", err)
	}
	return nil
}
