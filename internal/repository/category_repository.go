package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/slug"
	"kansetsu/internal/metrics"
	"kansetsu/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// maxInsertAttempts bounds how often a write retries after losing a
// uniqueness race to a concurrent writer.
const maxInsertAttempts = 5

var categoryColumns = []string{"c.id", "c.name", "c.slug", "c.created_at"}

type CategoryRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewCategoryRepo(db *pgxpool.Pool) *CategoryRepo {
	return &CategoryRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ListCategories возвращает все категории, отсортированные по имени
func (r *CategoryRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	const op = "repository.CategoryRepo.ListCategories"
	defer metrics.ObserveQuery("list_categories", time.Now())

	query, args, err := r.sb.Select(categoryColumns...).
		From("categories c").
		OrderBy("c.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}

// ListCategoriesWithCount annotates every category with the number of its
// published photo sets. Empty categories report zero.
func (r *CategoryRepo) ListCategoriesWithCount(ctx context.Context) ([]models.CategoryWithCount, error) {
	const op = "repository.CategoryRepo.ListCategoriesWithCount"
	defer metrics.ObserveQuery("list_categories_with_count", time.Now())

	query, args, err := r.sb.Select(append(categoryColumns, "COUNT(p.id)")...).
		From("categories c").
		LeftJoin("photosets p ON p.category_id = c.id AND p.status = ?", string(models.StatusPublished)).
		GroupBy("c.id").
		OrderBy("c.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	categories := make([]models.CategoryWithCount, 0)
	for rows.Next() {
		var c models.CategoryWithCount
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.Count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}

func (r *CategoryRepo) GetCategoryBySlug(ctx context.Context, categorySlug string) (models.Category, error) {
	const op = "repository.CategoryRepo.GetCategoryBySlug"

	c, err := r.getCategory(ctx, sq.Eq{"c.slug": categorySlug})
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (r *CategoryRepo) GetCategoryByID(ctx context.Context, id int64) (models.Category, error) {
	const op = "repository.CategoryRepo.GetCategoryByID"

	c, err := r.getCategory(ctx, sq.Eq{"c.id": id})
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (r *CategoryRepo) getCategory(ctx context.Context, where sq.Sqlizer) (models.Category, error) {
	query, args, err := r.sb.Select(categoryColumns...).
		From("categories c").
		Where(where).
		ToSql()
	if err != nil {
		return models.Category{}, err
	}

	var c models.Category
	err = r.db.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Category{}, storage.ErrCategoryNotFound
		}
		return models.Category{}, err
	}

	return c, nil
}

// GetOrCreateCategory looks a category up by its exact name and inserts it
// with a freshly derived slug when it does not exist yet.
func (r *CategoryRepo) GetOrCreateCategory(ctx context.Context, name string) (models.Category, error) {
	const op = "repository.CategoryRepo.GetOrCreateCategory"
	defer metrics.ObserveQuery("get_or_create_category", time.Now())

	name = strings.TrimSpace(name)

	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		c, err := r.getCategory(ctx, sq.Eq{"c.name": name})
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, storage.ErrCategoryNotFound) {
			return models.Category{}, fmt.Errorf("%s: %w", op, err)
		}

		c, err = r.insertCategory(ctx, name, "ON CONFLICT (name) DO NOTHING")
		switch {
		case err == nil:
			return c, nil
		case errors.Is(err, pgx.ErrNoRows):
			// a concurrent writer created the same name; read it back
			continue
		case isUniqueViolation(err, constraintCategorySlug):
			continue
		default:
			return models.Category{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	return models.Category{}, fmt.Errorf("%s: %w", op, storage.ErrSlugTaken)
}

// CreateCategory fails with storage.ErrCategoryExists on a duplicate name.
func (r *CategoryRepo) CreateCategory(ctx context.Context, name string) (models.Category, error) {
	const op = "repository.CategoryRepo.CreateCategory"

	name = strings.TrimSpace(name)

	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		c, err := r.insertCategory(ctx, name, "")
		switch {
		case err == nil:
			return c, nil
		case isUniqueViolation(err, constraintCategoryName):
			return models.Category{}, fmt.Errorf("%s: %w", op, storage.ErrCategoryExists)
		case isUniqueViolation(err, constraintCategorySlug):
			continue
		default:
			return models.Category{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	return models.Category{}, fmt.Errorf("%s: %w", op, storage.ErrSlugTaken)
}

func (r *CategoryRepo) insertCategory(ctx context.Context, name, conflict string) (models.Category, error) {
	categorySlug, err := r.uniqueSlug(ctx, slug.MakeOrFallback(name, "category"), 0)
	if err != nil {
		return models.Category{}, err
	}

	suffix := "RETURNING id, name, slug, created_at"
	if conflict != "" {
		suffix = conflict + " " + suffix
	}

	query, args, err := r.sb.Insert("categories").
		Columns("name", "slug").
		Values(name, categorySlug).
		Suffix(suffix).
		ToSql()
	if err != nil {
		return models.Category{}, err
	}

	var c models.Category
	err = r.db.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if err != nil {
		return models.Category{}, err
	}

	return c, nil
}

// UpdateCategory renames a category and re-derives its slug. It reports
// false when no category has the given id.
func (r *CategoryRepo) UpdateCategory(ctx context.Context, id int64, name string) (bool, error) {
	const op = "repository.CategoryRepo.UpdateCategory"

	name = strings.TrimSpace(name)

	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		categorySlug, err := r.uniqueSlug(ctx, slug.MakeOrFallback(name, "category"), id)
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		query, args, err := r.sb.Update("categories").
			Set("name", name).
			Set("slug", categorySlug).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		res, err := r.db.Exec(ctx, query, args...)
		switch {
		case err == nil:
			return res.RowsAffected() > 0, nil
		case isUniqueViolation(err, constraintCategoryName):
			return false, fmt.Errorf("%s: %w", op, storage.ErrCategoryExists)
		case isUniqueViolation(err, constraintCategorySlug):
			continue
		default:
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}

	return false, fmt.Errorf("%s: %w", op, storage.ErrSlugTaken)
}

// DeleteCategory removes a category that no photo set references. The check
// and the delete are one statement. A referenced category yields
// storage.ErrCategoryInUse; an unknown id yields false.
func (r *CategoryRepo) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	const op = "repository.CategoryRepo.DeleteCategory"

	query, args, err := r.sb.Delete("categories").
		Where(sq.Eq{"id": id}).
		Where("NOT EXISTS (SELECT 1 FROM photosets WHERE category_id = ?)", id).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	res, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("%s: %w", op, storage.ErrCategoryInUse)
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if res.RowsAffected() > 0 {
		return true, nil
	}

	if _, err := r.getCategory(ctx, sq.Eq{"c.id": id}); err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return false, fmt.Errorf("%s: %w", op, storage.ErrCategoryInUse)
}

// uniqueSlug returns base, or base-N for the smallest N that no other
// category uses. excludeID lets a row keep its own slug.
func (r *CategoryRepo) uniqueSlug(ctx context.Context, base string, excludeID int64) (string, error) {
	return freeSlug(ctx, base, func(ctx context.Context, candidate string) (bool, error) {
		return r.slugExists(ctx, candidate, excludeID)
	})
}

func (r *CategoryRepo) slugExists(ctx context.Context, s string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, r.sb.Select("1").
		From("categories").
		Where(sq.Eq{"slug": s}).
		Where(sq.NotEq{"id": excludeID}))
}
