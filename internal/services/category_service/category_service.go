package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/logger/sl"
	"kansetsu/internal/lib/sanitize"
	"kansetsu/internal/metrics"
	"kansetsu/internal/repository"
	"kansetsu/internal/storage"
	"kansetsu/internal/storage/cache"
)

const maxNameLen = 100

// DefaultCategories are seeded into an empty store on first boot.
var DefaultCategories = []string{
	"Beauty",
	"Landscape",
	"Street Fashion",
	"Art Photography",
	"Others",
}

type CategoryService struct {
	log   *slog.Logger
	repo  repository.CategoryRepository
	cache cache.Cache
	ttl   time.Duration
}

func NewCategoryService(log *slog.Logger, repo repository.CategoryRepository, c cache.Cache, ttl time.Duration) *CategoryService {
	if c == nil {
		c = cache.Nop{}
	}

	return &CategoryService{
		log:   log,
		repo:  repo,
		cache: c,
		ttl:   ttl,
	}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	const op = "service.CategoryService.List"

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		s.log.Error("failed to list categories", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}

// ListWithCount возвращает категории с количеством опубликованных фотосетов
func (s *CategoryService) ListWithCount(ctx context.Context) ([]models.CategoryWithCount, error) {
	const op = "service.CategoryService.ListWithCount"

	log := s.log.With(slog.String("op", op))

	var categories []models.CategoryWithCount
	found, err := s.cache.Get(ctx, cache.KeyCategoriesWithCount, &categories)
	if err != nil {
		log.Warn("cache read failed", sl.Err(err))
	}
	if found {
		metrics.CacheHit(cache.KeyCategoriesWithCount)
		return categories, nil
	}
	metrics.CacheMiss(cache.KeyCategoriesWithCount)

	categories, err = s.repo.ListCategoriesWithCount(ctx)
	if err != nil {
		log.Error("failed to list categories", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(ctx, cache.KeyCategoriesWithCount, categories, s.ttl); err != nil {
		log.Warn("cache write failed", sl.Err(err))
	}

	return categories, nil
}

func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (models.Category, error) {
	const op = "service.CategoryService.GetBySlug"

	c, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, name string) (models.Category, error) {
	const op = "service.CategoryService.Create"

	name = sanitize.Text(name)

	log := s.log.With(
		slog.String("op", op),
		slog.String("name", name),
	)

	if err := validateName(name); err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.repo.CreateCategory(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryExists) {
			log.Warn("category already exists")
		} else {
			log.Error("failed to create category", sl.Err(err))
		}
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, log)

	log.Info("category created", slog.Int64("id", c.ID), slog.String("slug", c.Slug))

	return c, nil
}

// Update renames a category; false means the id is unknown.
func (s *CategoryService) Update(ctx context.Context, id int64, name string) (bool, error) {
	const op = "service.CategoryService.Update"

	name = sanitize.Text(name)

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("id", id),
	)

	if err := validateName(name); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := s.repo.UpdateCategory(ctx, id, name)
	if err != nil {
		log.Error("failed to update category", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if ok {
		s.invalidate(ctx, log)
	}

	return ok, nil
}

// Delete refuses categories that still own photo sets with
// storage.ErrCategoryInUse.
func (s *CategoryService) Delete(ctx context.Context, id int64) (bool, error) {
	const op = "service.CategoryService.Delete"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("id", id),
	)

	ok, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryInUse) {
			log.Info("category still has photo sets")
		} else {
			log.Error("failed to delete category", sl.Err(err))
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if ok {
		s.invalidate(ctx, log)
	}

	return ok, nil
}

// EnsureDefaults seeds DefaultCategories when the store has no categories.
func (s *CategoryService) EnsureDefaults(ctx context.Context) (int, error) {
	const op = "service.CategoryService.EnsureDefaults"

	log := s.log.With(slog.String("op", op))

	existing, err := s.repo.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	created := 0
	for _, name := range DefaultCategories {
		_, err := s.repo.CreateCategory(ctx, name)
		if errors.Is(err, storage.ErrCategoryExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("%s: %w", op, err)
		}
		created++
	}

	if created > 0 {
		s.invalidate(ctx, log)
		log.Info("default categories created", slog.Int("count", created))
	}

	return created, nil
}

func (s *CategoryService) invalidate(ctx context.Context, log *slog.Logger) {
	// hot photo sets embed category names
	if err := s.cache.Delete(ctx, cache.KeyCategoriesWithCount, cache.KeyHotPhotoSets); err != nil {
		log.Warn("cache invalidation failed", sl.Err(err))
	}
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required: %w", models.ErrValidation)
	}
	if len([]rune(name)) > maxNameLen {
		return fmt.Errorf("name is longer than %d characters: %w", maxNameLen, models.ErrValidation)
	}
	return nil
}
