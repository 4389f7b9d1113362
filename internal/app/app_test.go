package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kansetsu/internal/app"
	"kansetsu/internal/config"
	"kansetsu/internal/lib/logger/handlers/slogdiscard"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Suite struct {
	*testing.T
	Cfg     *config.Config
	App     *app.App
	handler http.Handler
	token   string
}

func New(t *testing.T) *Suite {
	t.Helper()

	if testing.Short() {
		t.Skip("requires docker")
	}

	cfg := &config.Config{
		Env:               config.EnvLocal,
		DSN:               startPostgres(t),
		MigrationsEnabled: true,
		HTTP:              config.HTTPConfig{Port: "0", Timeout: 5 * time.Second},
		JWT:               config.JWTConfig{Secret: config.DefaultJWTSecret, TTL: time.Hour},
		Admin:             config.AdminConfig{Username: "admin", Password: "admin123"},
		Cache: config.CacheConfig{
			Enabled:       true,
			CategoriesTTL: time.Minute,
			TagsTTL:       time.Minute,
			HotTTL:        time.Minute,
		},
		FileStorage: config.FileStorageConfig{BaseDir: t.TempDir(), BaseURL: "/uploads", MaxSize: 1 << 20},
		Login:       config.LoginConfig{RatePerMinute: 10, Burst: 5},
	}
	require.NoError(t, cfg.Validate())

	application := app.New(slogdiscard.NewDiscardLogger(), cfg)

	t.Cleanup(application.Stop)

	return &Suite{
		T:       t,
		Cfg:     cfg,
		App:     application,
		handler: application.HTTPServer.Handler(),
	}
}

func startPostgres(t *testing.T) string {
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = pgContainer.Terminate(ctx)
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
}

type envelope struct {
	Status     string          `json:"status"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Pagination struct {
		Total int `json:"total"`
	} `json:"pagination"`
}

func (s *Suite) do(method, target string, body interface{}) (int, envelope) {
	s.Helper()

	var payload strings.Builder
	if body != nil {
		require.NoError(s, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, target, strings.NewReader(payload.String()))
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(s, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}

	return rec.Code, env
}

func (s *Suite) login() {
	s.Helper()

	code, env := s.do(http.MethodPost, "/admin/login", map[string]string{
		"username": s.Cfg.Admin.Username,
		"password": s.Cfg.Admin.Password,
	})
	require.Equal(s, http.StatusOK, code)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s, data.Token)

	s.token = data.Token
}

type photoSet struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug"`
	ViewCount int64  `json:"view_count"`
	Status    string `json:"status"`
}

type categoryCount struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGalleryFlow(t *testing.T) {
	s := New(t)

	code, env := s.do(http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, code)

	var categories []categoryCount
	require.NoError(t, json.Unmarshal(env.Data, &categories))
	require.Len(t, categories, 5)

	var landscapeID int64
	for _, c := range categories {
		assert.Zero(t, c.Count)
		if c.Name == "Landscape" {
			landscapeID = c.ID
		}
	}
	require.NotZero(t, landscapeID)

	code, _ = s.do(http.MethodPost, "/admin/api/photosets", map[string]interface{}{})
	require.Equal(t, http.StatusUnauthorized, code)

	s.login()

	code, env = s.do(http.MethodPost, "/admin/api/photosets", map[string]interface{}{
		"title":         "Morning Fog",
		"description":   gofakeit.Sentence(12),
		"category_name": "Landscape",
		"tags":          []string{"fog", "morning", "fog"},
		"images":        []string{"/uploads/a.jpg", "/uploads/b.jpg"},
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	var created photoSet
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "morning-fog", created.Slug)
	assert.Equal(t, "published", created.Status)

	code, _ = s.do(http.MethodPost, "/admin/api/photosets", map[string]interface{}{
		"title":         gofakeit.Sentence(3),
		"category_name": "Travel",
		"images":        []string{"/uploads/c.jpg"},
		"status":        "draft",
	})
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(http.MethodGet, "/api/photosets", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Pagination.Total)

	code, env = s.do(http.MethodGet, "/admin/api/photosets", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, env.Pagination.Total)

	for want := int64(1); want <= 2; want++ {
		code, env = s.do(http.MethodGet, "/api/photosets/morning-fog", nil)
		require.Equal(t, http.StatusOK, code)

		var got photoSet
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, want, got.ViewCount)
	}

	code, env = s.do(http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"name":"fog","count":1},{"name":"morning","count":1}]`, string(env.Data))

	code, env = s.do(http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &categories))
	assert.Len(t, categories, 6)

	code, env = s.do(http.MethodDelete, fmt.Sprintf("/admin/api/categories/%d", landscapeID), nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "category_in_use", env.Error)

	code, env = s.do(http.MethodGet, "/admin/api/dashboard-stats", nil)
	require.Equal(t, http.StatusOK, code)

	var dashboard struct {
		TotalPhotoSets int   `json:"total_photosets"`
		TotalViews     int64 `json:"total_views"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dashboard))
	assert.Equal(t, 1, dashboard.TotalPhotoSets)
	assert.Equal(t, int64(2), dashboard.TotalViews)

	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/admin/api/photosets/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/photosets/morning-fog", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "photoset_not_found", env.Error)
}

func TestDefaultAdminIsCreatedOnce(t *testing.T) {
	s := New(t)

	s.login()

	// a second start against the same database must not fail or add admins
	again := app.New(slogdiscard.NewDiscardLogger(), s.Cfg)
	again.Stop()

	s.login()
}
