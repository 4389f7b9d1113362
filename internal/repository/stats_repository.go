package repository

import (
	"context"
	"fmt"
	"time"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/pagination"
	"kansetsu/internal/metrics"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StatsRepo answers the aggregate queries behind the admin dashboard.
type StatsRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewStatsRepo(db *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CountPhotoSets counts photo sets with the given status, or all of them
// when status is empty.
func (r *StatsRepo) CountPhotoSets(ctx context.Context, status models.PhotoSetStatus) (int, error) {
	const op = "repository.StatsRepo.CountPhotoSets"

	builder := r.sb.Select("COUNT(*)").From("photosets")
	if status != "" {
		builder = builder.Where(sq.Eq{"status": string(status)})
	}

	var count int
	if err := r.scalar(ctx, builder, &count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (r *StatsRepo) CountCategories(ctx context.Context) (int, error) {
	const op = "repository.StatsRepo.CountCategories"

	var count int
	if err := r.scalar(ctx, r.sb.Select("COUNT(*)").From("categories"), &count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// SumViews adds up view_count over photo sets with the given status.
func (r *StatsRepo) SumViews(ctx context.Context, status models.PhotoSetStatus) (int64, error) {
	const op = "repository.StatsRepo.SumViews"

	builder := r.sb.Select("COALESCE(SUM(view_count), 0)::BIGINT").From("photosets")
	if status != "" {
		builder = builder.Where(sq.Eq{"status": string(status)})
	}

	var sum int64
	if err := r.scalar(ctx, builder, &sum); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return sum, nil
}

// TopCategoriesByViews ranks categories by the summed views of their
// published photo sets, ties broken by name.
func (r *StatsRepo) TopCategoriesByViews(ctx context.Context, n int) ([]models.CategoryViews, error) {
	const op = "repository.StatsRepo.TopCategoriesByViews"
	defer metrics.ObserveQuery("top_categories_by_views", time.Now())

	_, n = pagination.Normalize(1, n)

	query, args, err := r.sb.Select(
		"c.id", "c.name", "c.slug", "c.created_at",
		"COALESCE(SUM(p.view_count), 0)::BIGINT AS views",
		"COUNT(p.id) AS photosets",
	).
		From("categories c").
		LeftJoin("photosets p ON p.category_id = c.id AND p.status = ?", string(models.StatusPublished)).
		GroupBy("c.id").
		OrderBy("views DESC", "c.name ASC").
		Limit(uint64(n)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	top := make([]models.CategoryViews, 0, n)
	for rows.Next() {
		var c models.CategoryViews
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.Views, &c.Count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		top = append(top, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return top, nil
}

func (r *StatsRepo) scalar(ctx context.Context, builder sq.SelectBuilder, dst interface{}) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, query, args...).Scan(dst)
}
