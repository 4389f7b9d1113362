package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kansetsu/internal/lib/logger/sl"
	"kansetsu/internal/transport/http/dto"
	"kansetsu/internal/transport/http/dto/request"
	"kansetsu/internal/transport/http/dto/response"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// Login godoc
// @Summary Вход администратора
// @Description Проверяет логин и пароль, выдает JWT и сохраняет его в cookie-сессии
// @Tags admin
// @Accept json
// @Produce json
// @Param request body request.LoginRequest true "Данные для входа"
// @Success 200 {object} response.Response{data=object{token=string,expires_in=int,user=object{id=int,username=string}}}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Router /admin/login [post]
func (r *Routers) Login(c echo.Context) error {
	const op = "http.routers.Login"

	log := r.log.With(slog.String("op", op))

	var req request.LoginRequest
	if ok, err := r.bindAndValidate(c, log, &req); !ok {
		return err
	}

	token, admin, err := r.AuthService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return r.fail(c, log, err)
	}

	sess, err := session.Get(SessionName, c)
	if err != nil {
		log.Warn("failed to decode session, issuing a new one", sl.Err(err))
	}
	if sess != nil {
		sess.Options = r.sessionOptions(int(r.SessionMaxAge / time.Second))
		sess.Values[SessionTokenKey] = token
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			log.Error("failed to save session", sl.Err(err))
		}
	}

	log.Info("admin logged in", slog.Int64("admin_id", admin.ID))

	return c.JSON(http.StatusOK, response.SuccessResponse(map[string]interface{}{
		"token":      token,
		"expires_in": int(r.SessionMaxAge / time.Second),
		"user": map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
		},
	}))
}

// Logout godoc
// @Summary Выход администратора
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response
// @Router /admin/logout [post]
func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	log := r.log.With(slog.String("op", op))

	sess, _ := session.Get(SessionName, c)
	if sess != nil {
		sess.Options = r.sessionOptions(-1)
		delete(sess.Values, SessionTokenKey)
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			log.Error("failed to clear session", sl.Err(err))
		}
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "logged out"})
}

func (r *Routers) sessionOptions(maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   r.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// DashboardStats godoc
// @Summary Сводная статистика
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=models.DashboardStats}
// @Failure 401 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/dashboard-stats [get]
func (r *Routers) DashboardStats(c echo.Context) error {
	const op = "http.routers.DashboardStats"

	log := r.log.With(slog.String("op", op))

	stats, err := r.StatsService.Dashboard(c.Request().Context())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(map[string]interface{}{
		"total_photosets":  stats.TotalPhotoSets,
		"total_categories": stats.TotalCategories,
		"total_views":      stats.TotalViews,
		"top_photosets":    dto.NewPhotoSetResponses(stats.TopPhotoSets),
		"top_categories":   stats.TopCategories,
	}))
}

// AdminListPhotoSets godoc
// @Summary Список фотосетов любого статуса
// @Tags admin
// @Produce json
// @Param page query int false "Номер страницы" default(1)
// @Param limit query int false "Размер страницы" default(20)
// @Param category query string false "Slug категории"
// @Param tag query string false "Тег"
// @Param search query string false "Поиск"
// @Param sort query string false "Сортировка"
// @Param status query string false "Статус" Enums(draft, published, archived)
// @Success 200 {object} response.PageResponse{data=[]dto.PhotoSetResponse}
// @Security ApiKeyAuth
// @Router /admin/api/photosets [get]
func (r *Routers) AdminListPhotoSets(c echo.Context) error {
	const op = "http.routers.AdminListPhotoSets"

	log := r.log.With(slog.String("op", op))

	var q dto.PhotoSetListQuery
	if ok, err := r.bindAndValidate(c, log, &q); !ok {
		return err
	}

	sets, page, err := r.PhotoSetService.ListAdmin(c.Request().Context(), q.Model())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessPage(dto.NewPhotoSetResponses(sets), page))
}

// AdminGetPhotoSet godoc
// @Summary Фотосет по id
// @Description Не увеличивает счетчик просмотров
// @Tags admin
// @Produce json
// @Param id path int true "ID фотосета"
// @Success 200 {object} response.Response{data=dto.PhotoSetResponse}
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/photosets/{id} [get]
func (r *Routers) AdminGetPhotoSet(c echo.Context) error {
	const op = "http.routers.AdminGetPhotoSet"

	log := r.log.With(slog.String("op", op))

	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	p, err := r.PhotoSetService.GetByID(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.NewPhotoSetResponse(p)))
}

// CreatePhotoSet godoc
// @Summary Создание фотосета
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.CreatePhotoSetRequest true "Фотосет"
// @Success 201 {object} response.Response{data=dto.PhotoSetResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/photosets [post]
func (r *Routers) CreatePhotoSet(c echo.Context) error {
	const op = "http.routers.CreatePhotoSet"

	log := r.adminLog(c, r.log.With(slog.String("op", op)))

	var req dto.CreatePhotoSetRequest
	if ok, err := r.bindAndValidate(c, log, &req); !ok {
		return err
	}

	ctx := c.Request().Context()

	id, err := r.PhotoSetService.Create(ctx, req.Model())
	if err != nil {
		return r.fail(c, log, err)
	}

	p, err := r.PhotoSetService.GetByID(ctx, id)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(dto.NewPhotoSetResponse(p)))
}

// UpdatePhotoSet godoc
// @Summary Частичное обновление фотосета
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "ID фотосета"
// @Param request body dto.UpdatePhotoSetRequest true "Изменяемые поля"
// @Success 200 {object} response.Response{data=dto.PhotoSetResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/photosets/{id} [put]
func (r *Routers) UpdatePhotoSet(c echo.Context) error {
	const op = "http.routers.UpdatePhotoSet"

	log := r.log.With(slog.String("op", op))

	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	var req dto.UpdatePhotoSetRequest
	if ok, err := r.bindAndValidate(c, log, &req); !ok {
		return err
	}

	upd := req.Model()
	if upd.Empty() {
		return c.JSON(http.StatusBadRequest, response.ErrNothingToUpdate)
	}

	ctx := c.Request().Context()

	updated, err := r.PhotoSetService.Update(ctx, id, upd)
	if err != nil {
		return r.fail(c, log, err)
	}
	if !updated {
		return c.JSON(http.StatusNotFound, response.ErrPhotoSetNotFound)
	}

	p, err := r.PhotoSetService.GetByID(ctx, id)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.NewPhotoSetResponse(p)))
}

// DeletePhotoSet godoc
// @Summary Удаление фотосета
// @Tags admin
// @Produce json
// @Param id path int true "ID фотосета"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/photosets/{id} [delete]
func (r *Routers) DeletePhotoSet(c echo.Context) error {
	const op = "http.routers.DeletePhotoSet"

	log := r.adminLog(c, r.log.With(slog.String("op", op)))

	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	deleted, err := r.PhotoSetService.Delete(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, log, err)
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, response.ErrPhotoSetNotFound)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "photo set deleted"})
}

// AdminListCategories godoc
// @Summary Категории (админ)
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=[]models.CategoryWithCount}
// @Security ApiKeyAuth
// @Router /admin/api/categories [get]
func (r *Routers) AdminListCategories(c echo.Context) error {
	const op = "http.routers.AdminListCategories"

	log := r.log.With(slog.String("op", op))

	categories, err := r.CategoryService.ListWithCount(c.Request().Context())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(categories))
}

// CreateCategory godoc
// @Summary Создание категории
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.CategoryRequest true "Категория"
// @Success 201 {object} response.Response{data=models.Category}
// @Failure 409 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/categories [post]
func (r *Routers) CreateCategory(c echo.Context) error {
	const op = "http.routers.CreateCategory"

	log := r.log.With(slog.String("op", op))

	var req dto.CategoryRequest
	if ok, err := r.bindAndValidate(c, log, &req); !ok {
		return err
	}

	category, err := r.CategoryService.Create(c.Request().Context(), req.Name)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(category))
}

// UpdateCategory godoc
// @Summary Переименование категории
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "ID категории"
// @Param request body dto.CategoryRequest true "Категория"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/categories/{id} [put]
func (r *Routers) UpdateCategory(c echo.Context) error {
	const op = "http.routers.UpdateCategory"

	log := r.log.With(slog.String("op", op))

	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	var req dto.CategoryRequest
	if ok, err := r.bindAndValidate(c, log, &req); !ok {
		return err
	}

	updated, err := r.CategoryService.Update(c.Request().Context(), id, req.Name)
	if err != nil {
		return r.fail(c, log, err)
	}
	if !updated {
		return c.JSON(http.StatusNotFound, response.ErrCategoryNotFound)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "category updated"})
}

// DeleteCategory godoc
// @Summary Удаление категории
// @Description Категорию с фотосетами удалить нельзя (409)
// @Tags admin
// @Produce json
// @Param id path int true "ID категории"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/categories/{id} [delete]
func (r *Routers) DeleteCategory(c echo.Context) error {
	const op = "http.routers.DeleteCategory"

	log := r.adminLog(c, r.log.With(slog.String("op", op)))

	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	deleted, err := r.CategoryService.Delete(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, log, err)
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, response.ErrCategoryNotFound)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "category deleted"})
}

// AdminListTags godoc
// @Summary Все теги
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Tag}
// @Security ApiKeyAuth
// @Router /admin/api/tags [get]
func (r *Routers) AdminListTags(c echo.Context) error {
	const op = "http.routers.AdminListTags"

	log := r.log.With(slog.String("op", op))

	tags, err := r.TagService.All(c.Request().Context())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(tags))
}

// AdminPopularTags godoc
// @Summary Популярные теги (админ)
// @Tags admin
// @Produce json
// @Param limit query int false "Количество" default(20)
// @Success 200 {object} response.Response{data=[]models.Tag}
// @Security ApiKeyAuth
// @Router /admin/api/tags/popular [get]
func (r *Routers) AdminPopularTags(c echo.Context) error {
	const op = "http.routers.AdminPopularTags"

	log := r.log.With(slog.String("op", op))

	limit, ok := queryInt(c, "limit")
	if !ok {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	tags, err := r.TagService.Popular(c.Request().Context(), limit)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(tags))
}

// DeleteTag godoc
// @Summary Удаление тега
// @Description Убирает тег из всех фотосетов
// @Tags admin
// @Produce json
// @Param name path string true "Тег"
// @Success 200 {object} response.Response{data=object{updated=int}}
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/tags/{name} [delete]
func (r *Routers) DeleteTag(c echo.Context) error {
	const op = "http.routers.DeleteTag"

	log := r.adminLog(c, r.log.With(slog.String("op", op)))

	name := c.Param("name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if strings.TrimSpace(name) == "" || len(name) > 50 {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	updated, err := r.TagService.Delete(c.Request().Context(), name)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(map[string]interface{}{
		"updated": updated,
	}))
}

// UploadImage godoc
// @Summary Загрузка изображения
// @Description Сохраняет изображение (JPEG, PNG, GIF, WebP) и возвращает его публичный URL
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Изображение"
// @Success 201 {object} response.Response{data=filestorage.StoredFile}
// @Failure 400 {object} response.ErrorResponse
// @Failure 413 {object} response.ErrorResponse
// @Failure 415 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/uploads [post]
func (r *Routers) UploadImage(c echo.Context) error {
	const op = "http.routers.UploadImage"

	log := r.adminLog(c, r.log.With(slog.String("op", op)))

	file, err := c.FormFile("file")
	if err != nil {
		log.Warn("empty file in request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrFileRequired)
	}

	log.Debug("got file for upload",
		slog.String("filename", file.Filename),
		slog.Int64("size", file.Size),
	)

	stored, err := r.FileStorage.SaveImage(c.Request().Context(), file)
	if err != nil {
		return r.fail(c, log, err)
	}

	log.Info("image uploaded", slog.String("path", stored.Path), slog.Int64("size", stored.Size))

	return c.JSON(http.StatusCreated, response.SuccessResponse(stored))
}

// DeleteUpload godoc
// @Summary Удаление загруженного изображения
// @Tags admin
// @Produce json
// @Param path query string true "Путь файла, возвращенный при загрузке"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/api/uploads [delete]
func (r *Routers) DeleteUpload(c echo.Context) error {
	const op = "http.routers.DeleteUpload"

	path := c.QueryParam("path")

	log := r.adminLog(c, r.log.With(
		slog.String("op", op),
		slog.String("path", path),
	))

	if path == "" {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := r.FileStorage.Delete(c.Request().Context(), path); err != nil {
		return r.fail(c, log, err)
	}

	log.Info("upload deleted")

	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "file deleted"})
}
