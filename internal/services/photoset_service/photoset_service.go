package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/logger/sl"
	"kansetsu/internal/lib/pagination"
	"kansetsu/internal/lib/sanitize"
	"kansetsu/internal/metrics"
	"kansetsu/internal/repository"
	"kansetsu/internal/storage"
	"kansetsu/internal/storage/cache"
)

const (
	DefaultHotLimit = 10

	maxTitleLen       = 200
	maxDescriptionLen = 1000
	maxImages         = 50
	maxTags           = 10
	maxTagLen         = 50

	// hot listing is cached once at full size and sliced per request
	hotCacheSize = pagination.MaxLimit
)

type PhotoSetService struct {
	log    *slog.Logger
	repo   repository.PhotoSetRepository
	cache  cache.Cache
	hotTTL time.Duration
}

func NewPhotoSetService(log *slog.Logger, repo repository.PhotoSetRepository, c cache.Cache, hotTTL time.Duration) *PhotoSetService {
	if c == nil {
		c = cache.Nop{}
	}

	return &PhotoSetService{
		log:    log,
		repo:   repo,
		cache:  c,
		hotTTL: hotTTL,
	}
}

// ListPublished возвращает страницу опубликованных фотосетов
func (s *PhotoSetService) ListPublished(ctx context.Context, q models.PhotoSetQuery) ([]models.PhotoSet, pagination.Page, error) {
	q.Status = models.StatusPublished
	return s.list(ctx, "service.PhotoSetService.ListPublished", q)
}

// ListAdmin lists photo sets of any status unless q.Status narrows it.
func (s *PhotoSetService) ListAdmin(ctx context.Context, q models.PhotoSetQuery) ([]models.PhotoSet, pagination.Page, error) {
	const op = "service.PhotoSetService.ListAdmin"

	if q.Status != "" && !q.Status.Valid() {
		return nil, pagination.Page{}, fmt.Errorf("%s: unknown status %q: %w", op, q.Status, models.ErrValidation)
	}

	return s.list(ctx, op, q)
}

func (s *PhotoSetService) list(ctx context.Context, op string, q models.PhotoSetQuery) ([]models.PhotoSet, pagination.Page, error) {
	q.Page, q.Limit = pagination.Normalize(q.Page, q.Limit)
	q.Sort = models.ParseSort(string(q.Sort))
	q.CategorySlug = strings.TrimSpace(q.CategorySlug)
	q.Tag = strings.TrimSpace(q.Tag)
	q.Search = strings.TrimSpace(q.Search)

	log := s.log.With(
		slog.String("op", op),
		slog.Int("page", q.Page),
		slog.Int("limit", q.Limit),
	)

	sets, total, err := s.repo.ListPhotoSets(ctx, q)
	if err != nil {
		log.Error("failed to list photo sets", sl.Err(err))
		return nil, pagination.Page{}, fmt.Errorf("%s: %w", op, err)
	}

	return sets, pagination.New(q.Page, q.Limit, total), nil
}

// GetBySlug returns a photo set and counts the view.
func (s *PhotoSetService) GetBySlug(ctx context.Context, slug string) (models.PhotoSet, error) {
	const op = "service.PhotoSetService.GetBySlug"

	p, err := s.repo.GetPhotoSetBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, storage.ErrPhotoSetNotFound) {
			s.log.Error("failed to get photo set",
				slog.String("op", op),
				slog.String("slug", slug),
				sl.Err(err),
			)
		}
		return models.PhotoSet{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.PhotoSetViewsTotal.Inc()

	return p, nil
}

func (s *PhotoSetService) GetByID(ctx context.Context, id int64) (models.PhotoSet, error) {
	const op = "service.PhotoSetService.GetByID"

	p, err := s.repo.GetPhotoSetByID(ctx, id)
	if err != nil {
		return models.PhotoSet{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// Top возвращает самые просматриваемые опубликованные фотосеты
func (s *PhotoSetService) Top(ctx context.Context, n int) ([]models.PhotoSet, error) {
	const op = "service.PhotoSetService.Top"

	log := s.log.With(slog.String("op", op))

	if n < 1 {
		n = DefaultHotLimit
	}
	if n > hotCacheSize {
		n = hotCacheSize
	}

	var hot []models.PhotoSet
	found, err := s.cache.Get(ctx, cache.KeyHotPhotoSets, &hot)
	if err != nil {
		log.Warn("cache read failed", sl.Err(err))
	}

	if found {
		metrics.CacheHit(cache.KeyHotPhotoSets)
	} else {
		metrics.CacheMiss(cache.KeyHotPhotoSets)

		hot, err = s.repo.ListTopPhotoSets(ctx, hotCacheSize)
		if err != nil {
			log.Error("failed to list top photo sets", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if err := s.cache.Set(ctx, cache.KeyHotPhotoSets, hot, s.hotTTL); err != nil {
			log.Warn("cache write failed", sl.Err(err))
		}
	}

	if len(hot) > n {
		hot = hot[:n]
	}

	return hot, nil
}

func (s *PhotoSetService) Create(ctx context.Context, in models.PhotoSetCreate) (int64, error) {
	const op = "service.PhotoSetService.Create"

	in.Title = sanitize.Text(in.Title)
	in.Description = sanitize.Text(in.Description)
	in.CategoryName = sanitize.Text(in.CategoryName)
	in.Tags = NormalizeTags(in.Tags)
	in.Images = normalizeImages(in.Images)
	if in.Status == "" {
		in.Status = models.StatusPublished
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("title", in.Title),
	)

	log.Info("creating photo set")

	if err := validateTitle(in.Title); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateDescription(in.Description); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if in.CategoryName == "" {
		return 0, fmt.Errorf("%s: category is required: %w", op, models.ErrValidation)
	}
	if err := validateImages(in.Images); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateTags(in.Tags); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if !in.Status.Valid() {
		return 0, fmt.Errorf("%s: unknown status %q: %w", op, in.Status, models.ErrValidation)
	}

	id, err := s.repo.CreatePhotoSet(ctx, in)
	if err != nil {
		log.Error("failed to create photo set", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, log)

	log.Info("photo set created", slog.Int64("id", id))

	return id, nil
}

// Update applies a partial update; it reports false when the id is unknown.
func (s *PhotoSetService) Update(ctx context.Context, id int64, upd models.PhotoSetUpdate) (bool, error) {
	const op = "service.PhotoSetService.Update"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("id", id),
	)

	if upd.Title != nil {
		title := sanitize.Text(*upd.Title)
		if err := validateTitle(title); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		upd.Title = &title
	}
	if upd.Description != nil {
		description := sanitize.Text(*upd.Description)
		if err := validateDescription(description); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		upd.Description = &description
	}
	if upd.CategoryName != nil {
		name := sanitize.Text(*upd.CategoryName)
		if name == "" {
			return false, fmt.Errorf("%s: category is required: %w", op, models.ErrValidation)
		}
		upd.CategoryName = &name
	}
	if upd.Tags != nil {
		tags := NormalizeTags(*upd.Tags)
		if err := validateTags(tags); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		upd.Tags = &tags
	}
	if upd.Images != nil {
		images := normalizeImages(*upd.Images)
		if err := validateImages(images); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		upd.Images = &images
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return false, fmt.Errorf("%s: unknown status %q: %w", op, *upd.Status, models.ErrValidation)
	}

	log.Info("updating photo set")

	ok, err := s.repo.UpdatePhotoSet(ctx, id, upd)
	if err != nil {
		log.Error("failed to update photo set", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if ok {
		s.invalidate(ctx, log)
	}

	return ok, nil
}

func (s *PhotoSetService) Delete(ctx context.Context, id int64) (bool, error) {
	const op = "service.PhotoSetService.Delete"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("id", id),
	)

	log.Info("deleting photo set")

	ok, err := s.repo.DeletePhotoSet(ctx, id)
	if err != nil {
		log.Error("failed to delete photo set", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if ok {
		s.invalidate(ctx, log)
	}

	return ok, nil
}

// every write can move category counts, tag tallies and the hot list
func (s *PhotoSetService) invalidate(ctx context.Context, log *slog.Logger) {
	err := s.cache.Delete(ctx, cache.KeyHotPhotoSets, cache.KeyTags, cache.KeyCategoriesWithCount)
	if err != nil {
		log.Warn("cache invalidation failed", sl.Err(err))
	}
}

// NormalizeTags splits comma separated entries, trims them and drops empties
// and repeats while keeping the first occurrence order.
func NormalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	for _, raw := range in {
		for _, tag := range strings.Split(raw, ",") {
			tag = sanitize.Text(tag)
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}

	return out
}

func normalizeImages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, img := range in {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("title is required: %w", models.ErrValidation)
	}
	if len([]rune(title)) > maxTitleLen {
		return fmt.Errorf("title is longer than %d characters: %w", maxTitleLen, models.ErrValidation)
	}
	return nil
}

func validateDescription(description string) error {
	if len([]rune(description)) > maxDescriptionLen {
		return fmt.Errorf("description is longer than %d characters: %w", maxDescriptionLen, models.ErrValidation)
	}
	return nil
}

func validateImages(images []string) error {
	if len(images) == 0 {
		return fmt.Errorf("at least one image is required: %w", models.ErrValidation)
	}
	if len(images) > maxImages {
		return fmt.Errorf("at most %d images are allowed: %w", maxImages, models.ErrValidation)
	}
	return nil
}

func validateTags(tags []string) error {
	if len(tags) > maxTags {
		return fmt.Errorf("at most %d tags are allowed: %w", maxTags, models.ErrValidation)
	}
	for _, t := range tags {
		if len([]rune(t)) > maxTagLen {
			return fmt.Errorf("tag %q is longer than %d characters: %w", t, maxTagLen, models.ErrValidation)
		}
	}
	return nil
}
