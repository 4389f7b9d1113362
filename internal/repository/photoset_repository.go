package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/codec"
	"kansetsu/internal/lib/logger/sl"
	"kansetsu/internal/lib/pagination"
	"kansetsu/internal/lib/slug"
	"kansetsu/internal/metrics"
	"kansetsu/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var photoSetColumns = []string{
	"p.id",
	"p.title",
	"p.description",
	"p.category_id",
	"c.name",
	"c.slug",
	"p.tags",
	"p.images",
	"p.view_count",
	"p.status",
	"p.is_featured",
	"p.slug",
	"p.published_at",
	"p.updated_at",
}

// incrementViewsQuery bumps the counter and returns the updated row in a
// single round trip.
var incrementViewsQuery = `
UPDATE photosets p
SET view_count = p.view_count + 1
FROM categories c
WHERE c.id = p.category_id AND p.slug = $1
RETURNING ` + strings.Join(photoSetColumns, ", ")

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type PhotoSetRepo struct {
	log        *slog.Logger
	db         *pgxpool.Pool
	sb         sq.StatementBuilderType
	categories *CategoryRepo
}

func NewPhotoSetRepo(log *slog.Logger, db *pgxpool.Pool, categories *CategoryRepo) *PhotoSetRepo {
	return &PhotoSetRepo{
		log:        log,
		db:         db,
		sb:         sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		categories: categories,
	}
}

// ListPhotoSets returns one page of photo sets matching q together with the
// number of rows matching the same filter without pagination.
func (r *PhotoSetRepo) ListPhotoSets(ctx context.Context, q models.PhotoSetQuery) ([]models.PhotoSet, int, error) {
	const op = "repository.PhotoSetRepo.ListPhotoSets"
	defer metrics.ObserveQuery("list_photosets", time.Now())

	page, limit := pagination.Normalize(q.Page, q.Limit)
	where := photoSetFilter(q)

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").
		From("photosets p").
		Join("categories c ON c.id = p.category_id").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	if total == 0 {
		return make([]models.PhotoSet, 0), 0, nil
	}

	if pagination.Beyond(page, limit, total) {
		return make([]models.PhotoSet, 0), total, nil
	}

	query, args, err := r.selectPhotoSets().
		Where(where).
		OrderBy(photoSetOrder(q.Sort)...).
		Limit(uint64(limit)).
		Offset(uint64(pagination.Offset(page, limit))).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	sets, err := r.queryPhotoSets(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return sets, total, nil
}

// ListTopPhotoSets returns up to n published photo sets, most viewed first.
func (r *PhotoSetRepo) ListTopPhotoSets(ctx context.Context, n int) ([]models.PhotoSet, error) {
	const op = "repository.PhotoSetRepo.ListTopPhotoSets"
	defer metrics.ObserveQuery("list_top_photosets", time.Now())

	_, n = pagination.Normalize(1, n)

	query, args, err := r.selectPhotoSets().
		Where(sq.Eq{"p.status": string(models.StatusPublished)}).
		OrderBy(photoSetOrder(models.SortViewsDesc)...).
		Limit(uint64(n)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sets, err := r.queryPhotoSets(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sets, nil
}

// GetPhotoSetBySlug counts a detail view: the view counter is incremented
// atomically and the returned row carries the new value.
func (r *PhotoSetRepo) GetPhotoSetBySlug(ctx context.Context, photoSetSlug string) (models.PhotoSet, error) {
	const op = "repository.PhotoSetRepo.GetPhotoSetBySlug"
	defer metrics.ObserveQuery("get_photoset_by_slug", time.Now())

	p, err := r.scanPhotoSet(r.db.QueryRow(ctx, incrementViewsQuery, photoSetSlug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PhotoSet{}, fmt.Errorf("%s: %w", op, storage.ErrPhotoSetNotFound)
		}
		return models.PhotoSet{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// GetPhotoSetByID reads a photo set without counting a view.
func (r *PhotoSetRepo) GetPhotoSetByID(ctx context.Context, id int64) (models.PhotoSet, error) {
	const op = "repository.PhotoSetRepo.GetPhotoSetByID"

	query, args, err := r.selectPhotoSets().
		Where(sq.Eq{"p.id": id}).
		ToSql()
	if err != nil {
		return models.PhotoSet{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := r.scanPhotoSet(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PhotoSet{}, fmt.Errorf("%s: %w", op, storage.ErrPhotoSetNotFound)
		}
		return models.PhotoSet{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// CreatePhotoSet resolves the category by name (creating it if needed),
// derives a unique slug from the title and stores the photo set.
func (r *PhotoSetRepo) CreatePhotoSet(ctx context.Context, in models.PhotoSetCreate) (int64, error) {
	const op = "repository.PhotoSetRepo.CreatePhotoSet"
	defer metrics.ObserveQuery("create_photoset", time.Now())

	category, err := r.categories.GetOrCreateCategory(ctx, in.CategoryName)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	status := in.Status
	if status == "" {
		status = models.StatusPublished
	}

	base := slug.MakeOrFallback(in.Title, "photoset")

	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		photoSetSlug, err := r.uniqueSlug(ctx, base, 0)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		query, args, err := r.sb.Insert("photosets").
			Columns(
				"title",
				"description",
				"category_id",
				"tags",
				"images",
				"status",
				"is_featured",
				"slug",
			).
			Values(
				in.Title,
				nullable(in.Description),
				category.ID,
				nullable(codec.EncodeTags(in.Tags)),
				codec.EncodeImages(in.Images),
				string(status),
				in.IsFeatured,
				photoSetSlug,
			).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		var id int64
		err = r.db.QueryRow(ctx, query, args...).Scan(&id)
		switch {
		case err == nil:
			return id, nil
		case isUniqueViolation(err, constraintPhotoSetSlug):
			r.log.Debug("slug taken concurrently, retrying", slog.String("slug", photoSetSlug))
			continue
		case isForeignKeyViolation(err):
			return 0, fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
		default:
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	return 0, fmt.Errorf("%s: %w", op, storage.ErrSlugTaken)
}

// UpdatePhotoSet applies the non-nil fields of upd. A new title re-derives
// the slug, kept unique against every other photo set. updated_at is always
// refreshed. It reports false when no photo set has the given id.
func (r *PhotoSetRepo) UpdatePhotoSet(ctx context.Context, id int64, upd models.PhotoSetUpdate) (bool, error) {
	const op = "repository.PhotoSetRepo.UpdatePhotoSet"
	defer metrics.ObserveQuery("update_photoset", time.Now())

	builder := r.sb.Update("photosets").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})

	if upd.Title != nil {
		builder = builder.Set("title", *upd.Title)
	}
	if upd.Description != nil {
		builder = builder.Set("description", nullable(*upd.Description))
	}
	if upd.CategoryName != nil {
		// resolving may insert a category, so a missing photo set must stop it
		found, err := exists(ctx, r.db, r.sb.Select("1").From("photosets").Where(sq.Eq{"id": id}))
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		if !found {
			return false, nil
		}

		category, err := r.categories.GetOrCreateCategory(ctx, *upd.CategoryName)
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		builder = builder.Set("category_id", category.ID)
	}
	if upd.Tags != nil {
		builder = builder.Set("tags", nullable(codec.EncodeTags(*upd.Tags)))
	}
	if upd.Images != nil {
		builder = builder.Set("images", codec.EncodeImages(*upd.Images))
	}
	if upd.IsFeatured != nil {
		builder = builder.Set("is_featured", *upd.IsFeatured)
	}
	if upd.Status != nil {
		builder = builder.Set("status", string(*upd.Status))
	}

	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		b := builder
		if upd.Title != nil {
			photoSetSlug, err := r.uniqueSlug(ctx, slug.MakeOrFallback(*upd.Title, "photoset"), id)
			if err != nil {
				return false, fmt.Errorf("%s: %w", op, err)
			}
			b = b.Set("slug", photoSetSlug)
		}

		query, args, err := b.ToSql()
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		res, err := r.db.Exec(ctx, query, args...)
		switch {
		case err == nil:
			return res.RowsAffected() > 0, nil
		case upd.Title != nil && isUniqueViolation(err, constraintPhotoSetSlug):
			continue
		default:
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}

	return false, fmt.Errorf("%s: %w", op, storage.ErrSlugTaken)
}

// DeletePhotoSet reports whether a row was removed.
func (r *PhotoSetRepo) DeletePhotoSet(ctx context.Context, id int64) (bool, error) {
	const op = "repository.PhotoSetRepo.DeletePhotoSet"

	query, args, err := r.sb.Delete("photosets").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	res, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return res.RowsAffected() > 0, nil
}

// PublishedTagColumns returns the raw encoded tag column of every published
// photo set that has tags.
func (r *PhotoSetRepo) PublishedTagColumns(ctx context.Context) ([]string, error) {
	const op = "repository.PhotoSetRepo.PublishedTagColumns"
	defer metrics.ObserveQuery("published_tags", time.Now())

	query, args, err := r.sb.Select("tags").
		From("photosets").
		Where(sq.Eq{"status": string(models.StatusPublished)}).
		Where(sq.And{sq.NotEq{"tags": nil}, sq.NotEq{"tags": ""}}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	columns := make([]string, 0)
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		columns = append(columns, tags)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return columns, nil
}

// RemoveTag drops tag from the tag list of every photo set carrying it and
// returns how many photo sets changed. Matching is exact.
func (r *PhotoSetRepo) RemoveTag(ctx context.Context, tag string) (int, error) {
	const op = "repository.PhotoSetRepo.RemoveTag"
	defer metrics.ObserveQuery("remove_tag", time.Now())

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query, args, err := r.sb.Select("id", "tags").
		From("photosets").
		Where(sq.ILike{"tags": containsPattern(tag)}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	kept := make(map[int64][]string)
	for rows.Next() {
		var (
			id      int64
			encoded string
		)
		if err := rows.Scan(&id, &encoded); err != nil {
			rows.Close()
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		tags := codec.DecodeTags(encoded)
		rest := make([]string, 0, len(tags))
		for _, t := range tags {
			if t != tag {
				rest = append(rest, t)
			}
		}
		if len(rest) != len(tags) {
			kept[id] = rest
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for id, rest := range kept {
		query, args, err := r.sb.Update("photosets").
			Set("tags", nullable(codec.EncodeTags(rest))).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return len(kept), nil
}

func (r *PhotoSetRepo) selectPhotoSets() sq.SelectBuilder {
	return r.sb.Select(photoSetColumns...).
		From("photosets p").
		Join("categories c ON c.id = p.category_id")
}

func (r *PhotoSetRepo) queryPhotoSets(ctx context.Context, query string, args ...interface{}) ([]models.PhotoSet, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make([]models.PhotoSet, 0)
	for rows.Next() {
		p, err := r.scanPhotoSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

func (r *PhotoSetRepo) scanPhotoSet(row pgx.Row) (models.PhotoSet, error) {
	var (
		p           models.PhotoSet
		description *string
		tags        *string
		images      string
		status      string
	)

	err := row.Scan(
		&p.ID,
		&p.Title,
		&description,
		&p.CategoryID,
		&p.CategoryName,
		&p.CategorySlug,
		&tags,
		&images,
		&p.ViewCount,
		&status,
		&p.IsFeatured,
		&p.Slug,
		&p.PublishedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return models.PhotoSet{}, err
	}

	if description != nil {
		p.Description = *description
	}

	p.Status = models.PhotoSetStatus(status)

	p.Tags = make([]string, 0)
	if tags != nil {
		p.Tags = codec.DecodeTags(*tags)
	}

	p.Images, err = codec.ParseImages(images)
	if err != nil {
		// the row stays readable with an empty image list
		r.log.Warn("corrupt image list",
			slog.Int64("photoset_id", p.ID),
			sl.Err(err),
		)
	}

	return p, nil
}

func (r *PhotoSetRepo) uniqueSlug(ctx context.Context, base string, excludeID int64) (string, error) {
	return freeSlug(ctx, base, func(ctx context.Context, candidate string) (bool, error) {
		return exists(ctx, r.db, r.sb.Select("1").
			From("photosets").
			Where(sq.Eq{"slug": candidate}).
			Where(sq.NotEq{"id": excludeID}))
	})
}

// photoSetFilter ANDs together every filter present in q. Tag matching is a
// substring match on the encoded tag column, so "sun" also matches "sunset".
func photoSetFilter(q models.PhotoSetQuery) sq.And {
	where := sq.And{}

	if q.Status != "" {
		where = append(where, sq.Eq{"p.status": string(q.Status)})
	}

	if s := strings.TrimSpace(q.CategorySlug); s != "" {
		where = append(where, sq.Eq{"c.slug": s})
	}

	if tag := strings.TrimSpace(q.Tag); tag != "" {
		where = append(where, sq.ILike{"p.tags": containsPattern(tag)})
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := containsPattern(search)
		where = append(where, sq.Or{
			sq.ILike{"p.title": pattern},
			sq.ILike{"p.description": pattern},
			sq.ILike{"p.tags": pattern},
		})
	}

	return where
}

// photoSetOrder maps the closed sort enum to ORDER BY terms. The id term
// makes pages stable when the primary key ties.
func photoSetOrder(sort models.PhotoSetSort) []string {
	switch sort {
	case models.SortPublishedAsc:
		return []string{"p.published_at ASC", "p.id ASC"}
	case models.SortViewsDesc:
		return []string{"p.view_count DESC", "p.id DESC"}
	case models.SortViewsAsc:
		return []string{"p.view_count ASC", "p.id ASC"}
	default:
		return []string{"p.published_at DESC", "p.id DESC"}
	}
}

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
