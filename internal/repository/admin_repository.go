package repository

import (
	"context"
	"errors"
	"fmt"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type AdminRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewAdminRepo(db *pgxpool.Pool) *AdminRepo {
	return &AdminRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *AdminRepo) SaveAdmin(ctx context.Context, username string, passHash []byte) (int64, error) {
	const op = "repository.AdminRepo.SaveAdmin"

	query, args, err := r.sb.Insert("admin_users").
		Columns("username", "password").
		Values(username, string(passHash)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err, constraintAdminUsername) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrAdminExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *AdminRepo) AdminByUsername(ctx context.Context, username string) (models.AdminUser, error) {
	const op = "repository.AdminRepo.AdminByUsername"

	query, args, err := r.sb.Select("id", "username", "password", "created_at").
		From("admin_users").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return models.AdminUser{}, fmt.Errorf("%s: %w", op, err)
	}

	var (
		admin models.AdminUser
		hash  string
	)

	err = r.db.QueryRow(ctx, query, args...).Scan(&admin.ID, &admin.Username, &hash, &admin.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AdminUser{}, fmt.Errorf("%s: %w", op, storage.ErrAdminNotFound)
		}
		return models.AdminUser{}, fmt.Errorf("%s: %w", op, err)
	}

	admin.PasswordHash = []byte(hash)

	return admin, nil
}

func (r *AdminRepo) CountAdmins(ctx context.Context) (int, error) {
	const op = "repository.AdminRepo.CountAdmins"

	query, args, err := r.sb.Select("COUNT(*)").From("admin_users").ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}
