package repository

import (
	"context"
	"log/slog"

	"kansetsu/internal/lib/slug"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4/pgxpool"
)

type Repository struct {
	PhotoSets  *PhotoSetRepo
	Categories *CategoryRepo
	Admins     *AdminRepo
	Stats      *StatsRepo
}

func NewRepository(log *slog.Logger, db *pgxpool.Pool) *Repository {
	categories := NewCategoryRepo(db)

	return &Repository{
		PhotoSets:  NewPhotoSetRepo(log, db, categories),
		Categories: categories,
		Admins:     NewAdminRepo(db),
		Stats:      NewStatsRepo(db),
	}
}

// freeSlug tries base, base-1, base-2, ... and returns the first candidate
// taken reports as free. The store is finite, so the loop ends.
func freeSlug(ctx context.Context, base string, taken func(context.Context, string) (bool, error)) (string, error) {
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate := slug.WithSuffix(base, n)

		used, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
	}
}

func exists(ctx context.Context, db *pgxpool.Pool, sb sq.SelectBuilder) (bool, error) {
	query, args, err := sb.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, err
	}

	var ok bool
	if err := db.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}

	return ok, nil
}
