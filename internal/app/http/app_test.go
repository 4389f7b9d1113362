package httpapp_test

import (
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpapp "kansetsu/internal/app/http"
	"kansetsu/internal/config"
	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/jwt"
	"kansetsu/internal/lib/logger/handlers/slogdiscard"
	"kansetsu/internal/lib/pagination"
	"kansetsu/internal/services/auth"
	"kansetsu/internal/storage/filestorage"
	httprouters "kansetsu/internal/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

type stubPhotoSets struct{}

func (stubPhotoSets) ListPublished(context.Context, models.PhotoSetQuery) ([]models.PhotoSet, pagination.Page, error) {
	return []models.PhotoSet{}, pagination.New(1, 20, 0), nil
}

func (stubPhotoSets) ListAdmin(context.Context, models.PhotoSetQuery) ([]models.PhotoSet, pagination.Page, error) {
	return []models.PhotoSet{}, pagination.New(1, 20, 0), nil
}

func (stubPhotoSets) GetBySlug(context.Context, string) (models.PhotoSet, error) {
	return models.PhotoSet{}, nil
}

func (stubPhotoSets) GetByID(context.Context, int64) (models.PhotoSet, error) {
	return models.PhotoSet{}, nil
}

func (stubPhotoSets) Top(context.Context, int) ([]models.PhotoSet, error) {
	return []models.PhotoSet{}, nil
}

func (stubPhotoSets) Create(context.Context, models.PhotoSetCreate) (int64, error) { return 1, nil }

func (stubPhotoSets) Update(context.Context, int64, models.PhotoSetUpdate) (bool, error) {
	return true, nil
}

func (stubPhotoSets) Delete(context.Context, int64) (bool, error) { return true, nil }

type stubCategories struct{}

func (stubCategories) List(context.Context) ([]models.Category, error) {
	return []models.Category{}, nil
}

func (stubCategories) GetBySlug(_ context.Context, slug string) (models.Category, error) {
	return models.Category{ID: 1, Name: "Landscape", Slug: slug}, nil
}

func (stubCategories) ListWithCount(context.Context) ([]models.CategoryWithCount, error) {
	return []models.CategoryWithCount{}, nil
}

func (stubCategories) Create(_ context.Context, name string) (models.Category, error) {
	return models.Category{ID: 1, Name: name}, nil
}

func (stubCategories) Update(context.Context, int64, string) (bool, error) { return true, nil }

func (stubCategories) Delete(context.Context, int64) (bool, error) { return true, nil }

type stubTags struct{}

func (stubTags) All(context.Context) ([]models.Tag, error) { return []models.Tag{}, nil }

func (stubTags) Popular(context.Context, int) ([]models.Tag, error) { return []models.Tag{}, nil }

func (stubTags) Delete(context.Context, string) (int, error) { return 0, nil }

type stubStats struct{}

func (stubStats) Dashboard(context.Context) (models.DashboardStats, error) {
	return models.DashboardStats{TotalPhotoSets: 3}, nil
}

type stubFiles struct{}

func (stubFiles) SaveImage(context.Context, *multipart.FileHeader) (filestorage.StoredFile, error) {
	return filestorage.StoredFile{}, nil
}

func (stubFiles) Delete(context.Context, string) error { return nil }

// stubAuth accepts admin/admin123 and signs real tokens.
type stubAuth struct {
	tokens *jwt.Manager
}

func (a stubAuth) Login(_ context.Context, username, password string) (string, models.AdminUser, error) {
	if username != "admin" || password != "admin123" {
		return "", models.AdminUser{}, auth.ErrInvalidCredentials
	}

	token, err := a.tokens.NewToken(1, username)
	if err != nil {
		return "", models.AdminUser{}, err
	}

	return token, models.AdminUser{ID: 1, Username: username}, nil
}

func (a stubAuth) ValidateToken(token string) (*jwt.Claims, error) {
	return a.tokens.Parse(token)
}

func testConfig() *config.Config {
	return &config.Config{
		Env: config.EnvLocal,
		HTTP: config.HTTPConfig{
			Port:           "0",
			Timeout:        5 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		JWT:         config.JWTConfig{Secret: testSecret, TTL: time.Hour},
		FileStorage: config.FileStorageConfig{BaseDir: "./uploads", BaseURL: "https://cdn.example.com", MaxSize: 1 << 20},
		Login:       config.LoginConfig{RatePerMinute: 1, Burst: 3},
	}
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) (*httpapp.Server, *jwt.Manager) {
	t.Helper()

	log := slogdiscard.NewDiscardLogger()
	tokens := jwt.NewManager(testSecret, time.Hour)
	authService := stubAuth{tokens: tokens}

	routers := httprouters.NewRouter(log,
		stubPhotoSets{}, stubCategories{}, stubTags{}, stubStats{}, authService, stubFiles{},
	)

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	srv := httpapp.New(log, cfg, authService, routers)
	srv.BuildRouters()

	return srv, tokens
}

func serve(srv *httpapp.Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func login(srv *httpapp.Server, password string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/login",
		strings.NewReader(`{"username":"admin","password":"`+password+`"}`))
	req.Header.Set("Content-Type", "application/json")
	return serve(srv, req)
}

func TestAdminGate(t *testing.T) {
	srv, tokens := newTestServer(t)

	t.Run("no credentials", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/admin/api/dashboard-stats", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/dashboard-stats", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		assert.Equal(t, http.StatusUnauthorized, serve(srv, req).Code)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := jwt.NewManager("another-secret-another-secret-1234", time.Hour)
		token, err := other.NewToken(1, "admin")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/api/dashboard-stats", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, serve(srv, req).Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		token, err := tokens.NewToken(1, "admin")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/api/dashboard-stats", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := serve(srv, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total_photosets":3`)
	})

	t.Run("session cookie", func(t *testing.T) {
		rec := login(srv, "admin123")
		require.Equal(t, http.StatusOK, rec.Code)

		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)

		req := httptest.NewRequest(http.MethodGet, "/admin/api/photosets", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}

		assert.Equal(t, http.StatusOK, serve(srv, req).Code)
	})

	t.Run("public routes stay open", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/photosets", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/categories/landscape", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin deletes are gated", func(t *testing.T) {
		for _, target := range []string{"/admin/api/tags/sunset", "/admin/api/uploads?path=a.jpg"} {
			rec := serve(srv, httptest.NewRequest(http.MethodDelete, target, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		}
	})
}

func TestSessionCookie(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		wantSecure bool
	}{
		{name: "local", env: config.EnvLocal},
		{name: "prod", env: config.EnvProd, wantSecure: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(cfg *config.Config) {
				cfg.Env = tt.env
				cfg.Session.MaxAge = 2 * time.Hour
			})

			rec := login(srv, "admin123")
			require.Equal(t, http.StatusOK, rec.Code)

			cookie := rec.Header().Get("Set-Cookie")
			assert.Contains(t, cookie, "Max-Age=7200")
			assert.Contains(t, cookie, "HttpOnly")
			if tt.wantSecure {
				assert.Contains(t, cookie, "; Secure")
			} else {
				assert.NotContains(t, cookie, "Secure")
			}
		})
	}
}

func TestLoginRateLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	// burst is 3, refill is one per minute
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, login(srv, "wrong-password").Code)
	}

	rec := login(srv, "admin123")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "too_many_requests")
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/admin/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(srv, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/admin/login", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	assert.Empty(t, serve(srv, req).Header().Get("Access-Control-Allow-Origin"))
}

func TestServiceRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	// populate the request counter first
	serve(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kansetsu_http_requests_total")

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidator(t *testing.T) {
	v := httpapp.NewValidator()

	type req struct {
		Name string `validate:"required,max=5"`
	}

	assert.NoError(t, v.Validate(&req{Name: "ok"}))
	assert.Error(t, v.Validate(&req{}))
	assert.Error(t, v.Validate(&req{Name: "too long"}))
}
