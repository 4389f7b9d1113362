package services

import (
	"context"
	"fmt"
	"log/slog"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/logger/sl"
	"kansetsu/internal/repository"
)

const topN = 5

type StatsService struct {
	log       *slog.Logger
	stats     repository.StatsRepository
	photoSets repository.PhotoSetRepository
}

func NewStatsService(log *slog.Logger, stats repository.StatsRepository, photoSets repository.PhotoSetRepository) *StatsService {
	return &StatsService{
		log:       log,
		stats:     stats,
		photoSets: photoSets,
	}
}

// Dashboard собирает сводку для админ-панели
func (s *StatsService) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	const op = "service.StatsService.Dashboard"

	log := s.log.With(slog.String("op", op))

	var (
		out models.DashboardStats
		err error
	)

	if out.TotalPhotoSets, err = s.stats.CountPhotoSets(ctx, models.StatusPublished); err != nil {
		log.Error("failed to count photo sets", sl.Err(err))
		return models.DashboardStats{}, fmt.Errorf("%s: %w", op, err)
	}

	if out.TotalCategories, err = s.stats.CountCategories(ctx); err != nil {
		log.Error("failed to count categories", sl.Err(err))
		return models.DashboardStats{}, fmt.Errorf("%s: %w", op, err)
	}

	if out.TotalViews, err = s.stats.SumViews(ctx, models.StatusPublished); err != nil {
		log.Error("failed to sum views", sl.Err(err))
		return models.DashboardStats{}, fmt.Errorf("%s: %w", op, err)
	}

	if out.TopPhotoSets, err = s.photoSets.ListTopPhotoSets(ctx, topN); err != nil {
		log.Error("failed to list top photo sets", sl.Err(err))
		return models.DashboardStats{}, fmt.Errorf("%s: %w", op, err)
	}

	if out.TopCategories, err = s.stats.TopCategoriesByViews(ctx, topN); err != nil {
		log.Error("failed to rank categories", sl.Err(err))
		return models.DashboardStats{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
