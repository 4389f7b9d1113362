package app

import (
	"context"
	"log/slog"
	"time"

	httpapp "kansetsu/internal/app/http"
	"kansetsu/internal/config"
	"kansetsu/internal/lib/jwt"
	"kansetsu/internal/lib/logger/sl"
	"kansetsu/internal/repository"
	"kansetsu/internal/services/auth"
	categories "kansetsu/internal/services/category_service"
	photosets "kansetsu/internal/services/photoset_service"
	stats "kansetsu/internal/services/stats_service"
	tags "kansetsu/internal/services/tag_service"
	"kansetsu/internal/storage/cache"
	"kansetsu/internal/storage/filestorage"
	"kansetsu/internal/storage/postgresql"
	redisapp "kansetsu/internal/storage/redis"
	httprouters "kansetsu/internal/transport/http"
)

const (
	cachePrefix          = "kansetsu:"
	cacheCleanupInterval = 5 * time.Minute
	startupTimeout       = 30 * time.Second
)

type App struct {
	HTTPServer *httpapp.Server

	log     *slog.Logger
	storage *postgresql.Storage
	redis   *redisapp.Client
}

func New(log *slog.Logger, cfg *config.Config) *App {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if cfg.MigrationsEnabled {
		if err := postgresql.Migrate(log, cfg.DSN); err != nil {
			panic(err)
		}
	}

	storage, err := postgresql.New(ctx, cfg.DSN)
	if err != nil {
		panic(err)
	}

	repo := repository.NewRepository(log, storage.Pool())

	checkers := []httprouters.HealthChecker{storage}

	var (
		c           cache.Cache = cache.Nop{}
		redisClient *redisapp.Client
	)
	switch {
	case !cfg.Cache.Enabled:
		log.Info("cache disabled")
	case cfg.Redis.RedisAddr != "":
		redisClient = redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)
		if err := redisClient.HealthCheck(ctx); err != nil {
			panic(err)
		}
		c = cache.NewRedisCache(redisClient, cachePrefix)
		checkers = append(checkers, redisClient)
		log.Info("using redis cache", slog.String("addr", cfg.Redis.RedisAddr))
	default:
		c = cache.NewMemoryCache(cacheCleanupInterval)
		log.Info("using in-memory cache")
	}

	fileStorage, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL, cfg.FileStorage.MaxSize)
	if err != nil {
		panic(err)
	}

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)

	authService := auth.New(log, repo.Admins, repo.Admins, tokens)
	photoSetService := photosets.NewPhotoSetService(log, repo.PhotoSets, c, cfg.Cache.HotTTL)
	categoryService := categories.NewCategoryService(log, repo.Categories, c, cfg.Cache.CategoriesTTL)
	tagService := tags.NewTagService(log, repo.PhotoSets, c, cfg.Cache.TagsTTL)
	statsService := stats.NewStatsService(log, repo.Stats, repo.PhotoSets)

	if _, err := authService.EnsureDefaultAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		panic(err)
	}

	if _, err := categoryService.EnsureDefaults(ctx); err != nil {
		panic(err)
	}

	routers := httprouters.NewRouter(
		log,
		photoSetService,
		categoryService,
		tagService,
		statsService,
		authService,
		fileStorage,
		checkers...,
	)

	server := httpapp.New(log, cfg, authService, routers)
	server.BuildRouters()

	return &App{
		HTTPServer: server,
		log:        log,
		storage:    storage,
		redis:      redisClient,
	}
}

// Stop shuts the http server down before closing the stores it uses.
func (a *App) Stop() {
	if err := a.HTTPServer.Stop(); err != nil {
		a.log.Error("failed to stop http server", sl.Err(err))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("failed to close redis", sl.Err(err))
		}
	}

	a.storage.Stop()
}
