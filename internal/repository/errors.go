package repository

import (
	"errors"

	"github.com/jackc/pgconn"
)

// Postgres SQLSTATE codes the repositories translate into storage errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

const (
	constraintPhotoSetSlug  = "photosets_slug_key"
	constraintCategoryName  = "categories_name_key"
	constraintCategorySlug  = "categories_slug_key"
	constraintAdminUsername = "admin_users_username_key"
)

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}
