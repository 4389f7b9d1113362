package httpapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kansetsu/internal/config"
	"kansetsu/internal/lib/jwt"
	"kansetsu/internal/lib/logger/sl"
	mw "kansetsu/internal/middleware"
	httprouters "kansetsu/internal/transport/http"
	"kansetsu/internal/transport/http/dto/response"

	"github.com/arl/statsviz"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// TokenValidator checks admin session tokens for the admin gate.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

type Server struct {
	m       *http.ServeMux
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	tokens  TokenValidator
	cfg     *config.Config
}

func New(log *slog.Logger, cfg *config.Config, tokens TokenValidator, routers *httprouters.Routers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Server.ReadTimeout = cfg.HTTP.Timeout
	e.Server.WriteTimeout = cfg.HTTP.Timeout

	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				log.Error("request", append(attrs, sl.Err(v.Error))...)
				return nil
			}

			log.Info("request", attrs...)

			return nil
		},
	}))

	e.Use(mw.PrometheusMetrics)

	e.Use(session.Middleware(sessions.NewCookieStore(cfg.SessionKey())))

	if cfg.Session.MaxAge > 0 {
		routers.SessionMaxAge = cfg.Session.MaxAge
	}
	routers.SecureCookies = cfg.Env == config.EnvProd

	mux := http.NewServeMux()
	err := statsviz.Register(mux)
	if err != nil {
		log.Info("Statsviz start with error", sl.Err(err))
	}

	return &Server{
		m:       mux,
		log:     log,
		e:       e,
		routers: routers,
		tokens:  tokens,
		cfg:     cfg,
	}
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info("starting http server",
		slog.String("op", op),
		slog.String("addr", s.addr()),
	)

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(s.addr()); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping http server", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) addr() string {
	return fmt.Sprintf("%s:%s", s.cfg.HTTP.Host, s.cfg.HTTP.Port)
}

// adminGate accepts a session token from the cookie session or the
// Authorization header and stores its claims for the handlers.
func (s *Server) adminGate() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:       httprouters.ClaimsContextKey,
		TokenLookup:      "header:" + echo.HeaderAuthorization + ":Bearer ",
		TokenLookupFuncs: []middleware.ValuesExtractor{sessionToken},
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return s.tokens.ValidateToken(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
		},
	})
}

func sessionToken(c echo.Context) ([]string, error) {
	sess, err := session.Get(httprouters.SessionName, c)
	if err != nil || sess == nil {
		return nil, echojwt.ErrJWTMissing
	}

	token, ok := sess.Values[httprouters.SessionTokenKey].(string)
	if !ok || token == "" {
		return nil, echojwt.ErrJWTMissing
	}

	return []string{token}, nil
}

func (s *Server) loginLimiter() echo.MiddlewareFunc {
	perMinute := s.cfg.Login.RatePerMinute
	if perMinute < 1 {
		perMinute = 1
	}
	burst := s.cfg.Login.Burst
	if burst < 1 {
		burst = 1
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(perMinute) / 60),
			Burst:     burst,
			ExpiresIn: 5 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, response.ErrInvalidRequestFormat)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			s.log.Warn("login rate limit exceeded", slog.String("ip", identifier))
			return c.JSON(http.StatusTooManyRequests, response.ErrorResponseWithDetails("too_many_requests", "Too many login attempts, try again later"))
		},
	})
}

func (s *Server) BuildRouters() {
	api := s.e.Group("/api")
	{
		api.GET("/photosets", s.routers.ListPhotoSets)
		api.GET("/photosets/:slug", s.routers.GetPhotoSet)
		api.GET("/categories", s.routers.ListCategories)
		api.GET("/categories/:slug", s.routers.GetCategory)
		api.GET("/tags", s.routers.ListTags)
		api.GET("/hot", s.routers.ListHot)
		api.GET("/health", s.routers.Health)
	}

	admin := s.e.Group("/admin")
	{
		admin.POST("/login", s.routers.Login, s.loginLimiter())
		admin.POST("/logout", s.routers.Logout)

		adminAPI := admin.Group("/api", s.adminGate())
		{
			adminAPI.GET("/dashboard-stats", s.routers.DashboardStats)

			adminAPI.GET("/photosets", s.routers.AdminListPhotoSets)
			adminAPI.POST("/photosets", s.routers.CreatePhotoSet)
			adminAPI.GET("/photosets/:id", s.routers.AdminGetPhotoSet)
			adminAPI.PUT("/photosets/:id", s.routers.UpdatePhotoSet)
			adminAPI.DELETE("/photosets/:id", s.routers.DeletePhotoSet)

			adminAPI.GET("/categories", s.routers.AdminListCategories)
			adminAPI.POST("/categories", s.routers.CreateCategory)
			adminAPI.PUT("/categories/:id", s.routers.UpdateCategory)
			adminAPI.DELETE("/categories/:id", s.routers.DeleteCategory)

			adminAPI.GET("/tags", s.routers.AdminListTags)
			adminAPI.GET("/tags/popular", s.routers.AdminPopularTags)
			adminAPI.DELETE("/tags/:name", s.routers.DeleteTag)

			uploadLimit := fmt.Sprintf("%dK", s.cfg.FileStorage.MaxSize/1024+1024)
			adminAPI.POST("/uploads", s.routers.UploadImage, middleware.BodyLimit(uploadLimit))
			adminAPI.DELETE("/uploads", s.routers.DeleteUpload)
		}
	}

	// uploads are served locally only when the public URL is a path
	if strings.HasPrefix(s.cfg.FileStorage.BaseURL, "/") {
		s.e.Static(s.cfg.FileStorage.BaseURL, s.cfg.FileStorage.BaseDir)
	}

	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	debug := s.e.Group("/debug")
	{
		debug.GET("/statsviz/", echo.WrapHandler(s.m))
		debug.GET("/statsviz/*", echo.WrapHandler(s.m))
	}

	swagger := s.e.Group("/swagger")
	{
		swagger.GET("/*", echoSwagger.WrapHandler)
	}
}
