package http

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/jwt"
	"kansetsu/internal/lib/logger/sl"
	"kansetsu/internal/lib/pagination"
	"kansetsu/internal/services/auth"
	"kansetsu/internal/storage"
	"kansetsu/internal/storage/filestorage"
	"kansetsu/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"

	_ "kansetsu/docs"
)

const (
	// SessionName is the cookie session holding the admin token.
	SessionName     = "session"
	SessionTokenKey = "token"

	// ClaimsContextKey is where the admin gate stores *jwt.Claims.
	ClaimsContextKey = "admin"
)

type PhotoSetService interface {
	ListPublished(ctx context.Context, q models.PhotoSetQuery) ([]models.PhotoSet, pagination.Page, error)
	ListAdmin(ctx context.Context, q models.PhotoSetQuery) ([]models.PhotoSet, pagination.Page, error)
	GetBySlug(ctx context.Context, slug string) (models.PhotoSet, error)
	GetByID(ctx context.Context, id int64) (models.PhotoSet, error)
	Top(ctx context.Context, n int) ([]models.PhotoSet, error)
	Create(ctx context.Context, in models.PhotoSetCreate) (int64, error)
	Update(ctx context.Context, id int64, upd models.PhotoSetUpdate) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type CategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	ListWithCount(ctx context.Context) ([]models.CategoryWithCount, error)
	GetBySlug(ctx context.Context, slug string) (models.Category, error)
	Create(ctx context.Context, name string) (models.Category, error)
	Update(ctx context.Context, id int64, name string) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type TagService interface {
	All(ctx context.Context) ([]models.Tag, error)
	Popular(ctx context.Context, n int) ([]models.Tag, error)
	Delete(ctx context.Context, name string) (int, error)
}

type StatsService interface {
	Dashboard(ctx context.Context) (models.DashboardStats, error)
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (string, models.AdminUser, error)
}

type FileStorage interface {
	SaveImage(ctx context.Context, file *multipart.FileHeader) (filestorage.StoredFile, error)
	Delete(ctx context.Context, relPath string) error
}

// HealthChecker is anything /api/health should ping.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Routers struct {
	log             *slog.Logger
	PhotoSetService PhotoSetService
	CategoryService CategoryService
	TagService      TagService
	StatsService    StatsService
	AuthService     AuthService
	FileStorage     FileStorage
	HealthCheckers  []HealthChecker
	// SessionMaxAge bounds the admin session cookie.
	SessionMaxAge time.Duration
	// SecureCookies marks the session cookie https-only.
	SecureCookies bool
}

func NewRouter(
	log *slog.Logger,
	photoSetService PhotoSetService,
	categoryService CategoryService,
	tagService TagService,
	statsService StatsService,
	authService AuthService,
	fileStorage FileStorage,
	checkers ...HealthChecker,
) *Routers {
	return &Routers{
		log:             log,
		PhotoSetService: photoSetService,
		CategoryService: categoryService,
		TagService:      tagService,
		StatsService:    statsService,
		AuthService:     authService,
		FileStorage:     fileStorage,
		HealthCheckers:  checkers,
		SessionMaxAge:   jwt.DefaultTTL,
	}
}

// AdminFromContext returns the claims the admin gate stored for this request.
func AdminFromContext(c echo.Context) (*jwt.Claims, bool) {
	claims, ok := c.Get(ClaimsContextKey).(*jwt.Claims)
	return claims, ok
}

func (r *Routers) adminLog(c echo.Context, log *slog.Logger) *slog.Logger {
	if claims, ok := AdminFromContext(c); ok {
		return log.With(slog.Int64("admin_id", claims.UserID))
	}
	return log
}

// fail maps service errors onto statuses and the error envelope.
func (r *Routers) fail(c echo.Context, log *slog.Logger, err error) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", err.Error()))
	case errors.Is(err, storage.ErrPhotoSetNotFound):
		return c.JSON(http.StatusNotFound, response.ErrPhotoSetNotFound)
	case errors.Is(err, storage.ErrCategoryNotFound):
		return c.JSON(http.StatusNotFound, response.ErrCategoryNotFound)
	case errors.Is(err, storage.ErrCategoryExists):
		return c.JSON(http.StatusConflict, response.ErrCategoryExists)
	case errors.Is(err, storage.ErrCategoryInUse):
		return c.JSON(http.StatusConflict, response.ErrCategoryInUse)
	case errors.Is(err, storage.ErrSlugTaken):
		return c.JSON(http.StatusConflict, response.ErrSlugTaken)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
	case errors.Is(err, jwt.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	case errors.Is(err, storage.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	case errors.Is(err, storage.ErrInvalidFileType):
		return c.JSON(http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
	case errors.Is(err, storage.ErrFileNotFound):
		return c.JSON(http.StatusNotFound, response.ErrFileNotFound)
	}

	log.Error("request failed", sl.Err(err))

	return c.JSON(http.StatusInternalServerError, response.ErrInternal)
}

// bindAndValidate writes a 400 and reports false when req is unusable.
func (r *Routers) bindAndValidate(c echo.Context, log *slog.Logger, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return false, c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		return false, c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", err.Error()))
	}

	return true, nil
}

func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func queryInt(c echo.Context, name string) (int, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
