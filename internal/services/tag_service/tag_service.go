package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/codec"
	"kansetsu/internal/lib/logger/sl"
	"kansetsu/internal/lib/pagination"
	"kansetsu/internal/metrics"
	"kansetsu/internal/repository"
	"kansetsu/internal/storage/cache"
)

const DefaultPopularLimit = 20

type TagService struct {
	log    *slog.Logger
	source repository.TagSource
	cache  cache.Cache
	ttl    time.Duration
}

func NewTagService(log *slog.Logger, source repository.TagSource, c cache.Cache, ttl time.Duration) *TagService {
	if c == nil {
		c = cache.Nop{}
	}

	return &TagService{
		log:    log,
		source: source,
		cache:  c,
		ttl:    ttl,
	}
}

// All возвращает все теги опубликованных фотосетов с частотой
func (s *TagService) All(ctx context.Context) ([]models.Tag, error) {
	const op = "service.TagService.All"

	log := s.log.With(slog.String("op", op))

	var tags []models.Tag
	found, err := s.cache.Get(ctx, cache.KeyTags, &tags)
	if err != nil {
		log.Warn("cache read failed", sl.Err(err))
	}
	if found {
		metrics.CacheHit(cache.KeyTags)
		return tags, nil
	}
	metrics.CacheMiss(cache.KeyTags)

	columns, err := s.source.PublishedTagColumns(ctx)
	if err != nil {
		log.Error("failed to load tags", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tags = Tally(columns)

	if err := s.cache.Set(ctx, cache.KeyTags, tags, s.ttl); err != nil {
		log.Warn("cache write failed", sl.Err(err))
	}

	return tags, nil
}

// Popular returns the n most used tags; n outside [1, 100] falls back
// to the default or the maximum.
func (s *TagService) Popular(ctx context.Context, n int) ([]models.Tag, error) {
	const op = "service.TagService.Popular"

	if n < 1 {
		n = DefaultPopularLimit
	}
	_, n = pagination.Normalize(1, n)

	tags, err := s.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(tags) > n {
		tags = tags[:n]
	}

	return tags, nil
}

// Delete removes the tag from every photo set and reports how many changed.
func (s *TagService) Delete(ctx context.Context, name string) (int, error) {
	const op = "service.TagService.Delete"

	name = strings.TrimSpace(name)

	log := s.log.With(
		slog.String("op", op),
		slog.String("tag", name),
	)

	if name == "" {
		return 0, fmt.Errorf("%s: tag is required: %w", op, models.ErrValidation)
	}

	updated, err := s.source.RemoveTag(ctx, name)
	if err != nil {
		log.Error("failed to remove tag", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if updated > 0 {
		if err := s.cache.Delete(ctx, cache.KeyTags, cache.KeyHotPhotoSets); err != nil {
			log.Warn("cache invalidation failed", sl.Err(err))
		}
	}

	log.Info("tag removed", slog.Int("photosets", updated))

	return updated, nil
}

// Tally counts every tag once per encoded column, most used first and
// alphabetical among equals.
func Tally(columns []string) []models.Tag {
	counts := make(map[string]int)

	for _, column := range columns {
		seen := make(map[string]struct{})
		for _, tag := range codec.DecodeTags(column) {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			counts[tag]++
		}
	}

	tags := make([]models.Tag, 0, len(counts))
	for name, count := range counts {
		tags = append(tags, models.Tag{Name: name, Count: count})
	}

	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Name < tags[j].Name
	})

	return tags
}
