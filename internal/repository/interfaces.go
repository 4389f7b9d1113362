package repository

import (
	"context"

	"kansetsu/internal/domain/models"
)

type PhotoSetRepository interface {
	ListPhotoSets(ctx context.Context, q models.PhotoSetQuery) ([]models.PhotoSet, int, error)
	ListTopPhotoSets(ctx context.Context, n int) ([]models.PhotoSet, error)
	GetPhotoSetBySlug(ctx context.Context, slug string) (models.PhotoSet, error)
	GetPhotoSetByID(ctx context.Context, id int64) (models.PhotoSet, error)
	CreatePhotoSet(ctx context.Context, in models.PhotoSetCreate) (int64, error)
	UpdatePhotoSet(ctx context.Context, id int64, upd models.PhotoSetUpdate) (bool, error)
	DeletePhotoSet(ctx context.Context, id int64) (bool, error)
}

type TagSource interface {
	PublishedTagColumns(ctx context.Context) ([]string, error)
	RemoveTag(ctx context.Context, tag string) (int, error)
}

type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListCategoriesWithCount(ctx context.Context) ([]models.CategoryWithCount, error)
	GetCategoryBySlug(ctx context.Context, slug string) (models.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (models.Category, error)
	GetOrCreateCategory(ctx context.Context, name string) (models.Category, error)
	CreateCategory(ctx context.Context, name string) (models.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (bool, error)
	DeleteCategory(ctx context.Context, id int64) (bool, error)
}

type AdminRepository interface {
	SaveAdmin(ctx context.Context, username string, passHash []byte) (int64, error)
	AdminByUsername(ctx context.Context, username string) (models.AdminUser, error)
	CountAdmins(ctx context.Context) (int, error)
}

type StatsRepository interface {
	CountPhotoSets(ctx context.Context, status models.PhotoSetStatus) (int, error)
	CountCategories(ctx context.Context) (int, error)
	SumViews(ctx context.Context, status models.PhotoSetStatus) (int64, error)
	TopCategoriesByViews(ctx context.Context, n int) ([]models.CategoryViews, error)
}

var (
	_ PhotoSetRepository = (*PhotoSetRepo)(nil)
	_ TagSource          = (*PhotoSetRepo)(nil)
	_ CategoryRepository = (*CategoryRepo)(nil)
	_ AdminRepository    = (*AdminRepo)(nil)
	_ StatsRepository    = (*StatsRepo)(nil)
)
