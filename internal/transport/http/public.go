package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"kansetsu/internal/lib/logger/sl"
	"kansetsu/internal/transport/http/dto"
	"kansetsu/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

const (
	cacheListing    = "public, max-age=300"
	cacheCategories = "public, max-age=3600"
	cacheTags       = "public, max-age=1800"
	cacheHot        = "public, max-age=600"

	healthTimeout = 3 * time.Second
)

// ListPhotoSets godoc
// @Summary Список опубликованных фотосетов
// @Description Страница опубликованных фотосетов с фильтрами по категории, тегу и поиску
// @Tags photosets
// @Produce json
// @Param page query int false "Номер страницы" default(1)
// @Param limit query int false "Размер страницы (1-100)" default(20)
// @Param category query string false "Slug категории"
// @Param tag query string false "Тег"
// @Param search query string false "Поиск по заголовку, описанию и тегам"
// @Param sort query string false "Сортировка" Enums(published_at_desc, published_at_asc, view_count_desc, view_count_asc)
// @Success 200 {object} response.PageResponse{data=[]dto.PhotoSetResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/photosets [get]
func (r *Routers) ListPhotoSets(c echo.Context) error {
	const op = "http.routers.ListPhotoSets"

	log := r.log.With(slog.String("op", op))

	var q dto.PhotoSetListQuery
	if ok, err := r.bindAndValidate(c, log, &q); !ok {
		return err
	}

	sets, page, err := r.PhotoSetService.ListPublished(c.Request().Context(), q.Model())
	if err != nil {
		return r.fail(c, log, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, cacheListing)

	return c.JSON(http.StatusOK, response.SuccessPage(dto.NewPhotoSetResponses(sets), page))
}

// GetPhotoSet godoc
// @Summary Фотосет по slug
// @Description Возвращает фотосет и увеличивает счетчик просмотров
// @Tags photosets
// @Produce json
// @Param slug path string true "Slug фотосета"
// @Success 200 {object} response.Response{data=dto.PhotoSetResponse}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/photosets/{slug} [get]
func (r *Routers) GetPhotoSet(c echo.Context) error {
	const op = "http.routers.GetPhotoSet"

	slug := c.Param("slug")

	log := r.log.With(
		slog.String("op", op),
		slog.String("slug", slug),
	)

	if slug == "" || len(slug) > 200 {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	p, err := r.PhotoSetService.GetBySlug(c.Request().Context(), slug)
	if err != nil {
		return r.fail(c, log, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, cacheListing)

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.NewPhotoSetResponse(p)))
}

// ListCategories godoc
// @Summary Категории с количеством фотосетов
// @Tags categories
// @Produce json
// @Success 200 {object} response.Response{data=[]models.CategoryWithCount}
// @Failure 500 {object} response.ErrorResponse
// @Router /api/categories [get]
func (r *Routers) ListCategories(c echo.Context) error {
	const op = "http.routers.ListCategories"

	log := r.log.With(slog.String("op", op))

	categories, err := r.CategoryService.ListWithCount(c.Request().Context())
	if err != nil {
		return r.fail(c, log, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, cacheCategories)

	return c.JSON(http.StatusOK, response.SuccessResponse(categories))
}

// GetCategory godoc
// @Summary Категория и ее опубликованные фотосеты
// @Tags categories
// @Produce json
// @Param slug path string true "Slug категории"
// @Param page query int false "Номер страницы" default(1)
// @Param limit query int false "Размер страницы (1-100)" default(20)
// @Param sort query string false "Сортировка" Enums(published_at_desc, published_at_asc, view_count_desc, view_count_asc)
// @Success 200 {object} response.PageResponse{data=dto.CategoryPageResponse}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/categories/{slug} [get]
func (r *Routers) GetCategory(c echo.Context) error {
	const op = "http.routers.GetCategory"

	slug := c.Param("slug")

	log := r.log.With(
		slog.String("op", op),
		slog.String("slug", slug),
	)

	var q dto.PhotoSetListQuery
	if ok, err := r.bindAndValidate(c, log, &q); !ok {
		return err
	}

	ctx := c.Request().Context()

	category, err := r.CategoryService.GetBySlug(ctx, slug)
	if err != nil {
		return r.fail(c, log, err)
	}

	q.Category = category.Slug
	sets, page, err := r.PhotoSetService.ListPublished(ctx, q.Model())
	if err != nil {
		return r.fail(c, log, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, cacheListing)

	return c.JSON(http.StatusOK, response.SuccessPage(dto.CategoryPageResponse{
		Category:  category,
		PhotoSets: dto.NewPhotoSetResponses(sets),
	}, page))
}

// ListTags godoc
// @Summary Популярные теги
// @Tags tags
// @Produce json
// @Param limit query int false "Количество тегов" default(20)
// @Success 200 {object} response.Response{data=[]models.Tag}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/tags [get]
func (r *Routers) ListTags(c echo.Context) error {
	const op = "http.routers.ListTags"

	log := r.log.With(slog.String("op", op))

	limit, ok := queryInt(c, "limit")
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	tags, err := r.TagService.Popular(c.Request().Context(), limit)
	if err != nil {
		return r.fail(c, log, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, cacheTags)

	return c.JSON(http.StatusOK, response.SuccessResponse(tags))
}

// ListHot godoc
// @Summary Самые просматриваемые фотосеты
// @Tags photosets
// @Produce json
// @Param limit query int false "Количество" default(10)
// @Success 200 {object} response.Response{data=[]dto.PhotoSetResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/hot [get]
func (r *Routers) ListHot(c echo.Context) error {
	const op = "http.routers.ListHot"

	log := r.log.With(slog.String("op", op))

	limit, ok := queryInt(c, "limit")
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	sets, err := r.PhotoSetService.Top(c.Request().Context(), limit)
	if err != nil {
		return r.fail(c, log, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, cacheHot)

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.NewPhotoSetResponses(sets)))
}

// Health godoc
// @Summary Проверка состояния
// @Tags health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse
// @Router /api/health [get]
func (r *Routers) Health(c echo.Context) error {
	const op = "http.routers.Health"

	log := r.log.With(slog.String("op", op))

	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	for _, checker := range r.HealthCheckers {
		if err := checker.HealthCheck(ctx); err != nil {
			log.Error("health check failed", sl.Err(err))
			return c.JSON(http.StatusServiceUnavailable, response.ErrorResponseWithDetails("unhealthy", err.Error()))
		}
	}

	categories, err := r.CategoryService.List(ctx)
	if err != nil {
		log.Error("health check failed", sl.Err(err))
		return c.JSON(http.StatusServiceUnavailable, response.ErrorResponseWithDetails("unhealthy", err.Error()))
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(map[string]interface{}{
		"database":   "connected",
		"categories": len(categories),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}))
}
