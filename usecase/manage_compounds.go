package usecase

import (
	"context"
	"log/slog"

	"thai-search-proxy/dictionary"
	"thai-search-proxy/domain"
	otelmetrics "thai-search-proxy/utils/otel"
)

// ManageCompoundsUsecase is the admin surface over the dictionary store.
// Every mutation publishes a new snapshot before the call returns.
type ManageCompoundsUsecase struct {
	store  *dictionary.Store
	logger *slog.Logger
}

func NewManageCompoundsUsecase(store *dictionary.Store, logger *slog.Logger) *ManageCompoundsUsecase {
	return &ManageCompoundsUsecase{store: store, logger: logger}
}

// List returns entries filtered by category with pagination.
func (u *ManageCompoundsUsecase) List(ctx context.Context, category string, offset, limit int) ([]domain.CompoundEntry, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		return nil, 0, domain.NewProxyError(domain.KindInvalidInput, "ListCompounds", "limit must be at most 500")
	}
	if offset < 0 {
		return nil, 0, domain.NewProxyError(domain.KindInvalidInput, "ListCompounds", "offset must not be negative")
	}
	entries, total := u.store.List(category, offset, limit)
	return entries, total, nil
}

func (u *ManageCompoundsUsecase) Add(ctx context.Context, entry domain.CompoundEntry) (domain.CompoundEntry, error) {
	added, err := u.store.Add(entry)
	if err != nil {
		return added, err
	}
	u.logger.Info("compound added", "surface", added.Surface, "category", added.Category)
	if otelmetrics.Metrics != nil {
		otelmetrics.Metrics.DictionaryReloads.Add(ctx, 1)
	}
	return added, nil
}

func (u *ManageCompoundsUsecase) Update(ctx context.Context, surface string, entry domain.CompoundEntry) (domain.CompoundEntry, error) {
	updated, err := u.store.Update(surface, entry)
	if err != nil {
		return updated, err
	}
	u.logger.Info("compound updated", "surface", updated.Surface)
	if otelmetrics.Metrics != nil {
		otelmetrics.Metrics.DictionaryReloads.Add(ctx, 1)
	}
	return updated, nil
}

func (u *ManageCompoundsUsecase) Remove(ctx context.Context, surface string) error {
	if err := u.store.Remove(surface); err != nil {
		return err
	}
	u.logger.Info("compound removed", "surface", surface)
	if otelmetrics.Metrics != nil {
		otelmetrics.Metrics.DictionaryReloads.Add(ctx, 1)
	}
	return nil
}
