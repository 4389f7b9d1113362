package repository_test

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"kansetsu/internal/domain/models"
	"kansetsu/internal/lib/logger/handlers/slogdiscard"
	"kansetsu/internal/repository"
	"kansetsu/internal/storage"
	"kansetsu/internal/storage/postgresql"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testCtx = context.Background()

type RepositorySuite struct {
	suite.Suite
	db   *pgxpool.Pool
	repo *repository.Repository
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.db = setupTestDB(s.T())
	s.repo = repository.NewRepository(slogdiscard.NewDiscardLogger(), s.db)
}

func (s *RepositorySuite) SetupTest() {
	_, err := s.db.Exec(testCtx, `TRUNCATE photosets, categories, admin_users RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf(
		"postgres://test:test@%s:%s/testdb?sslmode=disable",
		host, port.Port(),
	)

	require.NoError(t, postgresql.Migrate(slogdiscard.NewDiscardLogger(), connStr))

	pool, err := pgxpool.Connect(ctx, connStr)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	})

	return pool
}

func (s *RepositorySuite) createPhotoSet(in models.PhotoSetCreate) models.PhotoSet {
	if in.Title == "" {
		in.Title = gofakeit.Sentence(3)
	}
	if in.CategoryName == "" {
		in.CategoryName = "Landscape"
	}
	if in.Images == nil {
		in.Images = []string{gofakeit.URL() + "/1.jpg", gofakeit.URL() + "/2.jpg"}
	}

	id, err := s.repo.PhotoSets.CreatePhotoSet(testCtx, in)
	s.Require().NoError(err)

	p, err := s.repo.PhotoSets.GetPhotoSetByID(testCtx, id)
	s.Require().NoError(err)

	return p
}

func (s *RepositorySuite) TestCreatePhotoSet_SlugSuffix() {
	first := s.createPhotoSet(models.PhotoSetCreate{Title: "Sunset View"})
	second := s.createPhotoSet(models.PhotoSetCreate{Title: "Sunset View"})
	third := s.createPhotoSet(models.PhotoSetCreate{Title: "sunset   view!"})

	s.Equal("sunset-view", first.Slug)
	s.Equal("sunset-view-1", second.Slug)
	s.Equal("sunset-view-2", third.Slug)
}

func (s *RepositorySuite) TestCreatePhotoSet_Defaults() {
	p := s.createPhotoSet(models.PhotoSetCreate{
		Title:        "Kyoto Autumn",
		CategoryName: "Travel Notes",
		Tags:         []string{"japan", "autumn"},
		Images:       []string{"https://cdn.example.com/a,1.jpg", "https://cdn.example.com/b.jpg"},
	})

	s.Equal(models.StatusPublished, p.Status)
	s.Equal(int64(0), p.ViewCount)
	s.False(p.IsFeatured)
	s.Equal("", p.Description)
	s.Equal([]string{"japan", "autumn"}, p.Tags)
	s.Equal([]string{"https://cdn.example.com/a,1.jpg", "https://cdn.example.com/b.jpg"}, p.Images)
	s.Equal("Travel Notes", p.CategoryName)
	s.Equal("travel-notes", p.CategorySlug)
	s.False(p.PublishedAt.IsZero())
}

func (s *RepositorySuite) TestCreatePhotoSet_NonLatinTitle() {
	p := s.createPhotoSet(models.PhotoSetCreate{Title: "风景摄影", CategoryName: "风景"})

	s.Regexp(`^photoset-[0-9a-f]{8}$`, p.Slug)
	s.Regexp(`^category-[0-9a-f]{8}$`, p.CategorySlug)
}

func (s *RepositorySuite) TestCreatePhotoSet_ConcurrentSameTitle() {
	const n = 8

	var wg sync.WaitGroup
	ids := make([]int64, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = s.repo.PhotoSets.CreatePhotoSet(testCtx, models.PhotoSetCreate{
				Title:        "Race Day",
				CategoryName: "Street Fashion",
				Images:       []string{"a.jpg"},
			})
		}(i)
	}
	wg.Wait()

	slugs := make(map[string]bool)
	for i := 0; i < n; i++ {
		s.Require().NoError(errs[i])
		p, err := s.repo.PhotoSets.GetPhotoSetByID(testCtx, ids[i])
		s.Require().NoError(err)
		s.False(slugs[p.Slug], p.Slug)
		slugs[p.Slug] = true
	}

	categories, err := s.repo.Categories.ListCategories(testCtx)
	s.Require().NoError(err)
	s.Len(categories, 1)
}

func (s *RepositorySuite) TestListPhotoSets_Pagination() {
	for i := 0; i < 45; i++ {
		s.createPhotoSet(models.PhotoSetCreate{Title: fmt.Sprintf("Set %02d", i)})
	}
	for i := 0; i < 3; i++ {
		s.createPhotoSet(models.PhotoSetCreate{Title: fmt.Sprintf("Draft %d", i), Status: models.StatusDraft})
	}

	published := models.PhotoSetQuery{Status: models.StatusPublished}

	all, total, err := s.repo.PhotoSets.ListPhotoSets(testCtx, withPage(published, 1, 100))
	s.Require().NoError(err)
	s.Equal(45, total)
	s.Len(all, 45)

	page2, total, err := s.repo.PhotoSets.ListPhotoSets(testCtx, withPage(published, 2, 20))
	s.Require().NoError(err)
	s.Equal(45, total)
	s.Require().Len(page2, 20)
	s.Equal(ids(all[20:40]), ids(page2))

	page3, _, err := s.repo.PhotoSets.ListPhotoSets(testCtx, withPage(published, 3, 20))
	s.Require().NoError(err)
	s.Len(page3, 5)

	beyond, total, err := s.repo.PhotoSets.ListPhotoSets(testCtx, withPage(published, 9, 20))
	s.Require().NoError(err)
	s.Equal(45, total)
	s.Empty(beyond)

	for _, page := range []int{288230376151711745, math.MaxInt} {
		huge, total, err := s.repo.PhotoSets.ListPhotoSets(testCtx, withPage(published, page, 64))
		s.Require().NoError(err, "page=%d", page)
		s.Equal(45, total)
		s.Empty(huge, "page=%d", page)
	}

	any, total, err := s.repo.PhotoSets.ListPhotoSets(testCtx, withPage(models.PhotoSetQuery{}, 1, 100))
	s.Require().NoError(err)
	s.Equal(48, total)
	s.Len(any, 48)
}

func (s *RepositorySuite) TestListPhotoSets_Filters() {
	sunset := s.createPhotoSet(models.PhotoSetCreate{
		Title: "Golden Hour", Description: "Evening by the sea", CategoryName: "Landscape",
		Tags: []string{"sunset", "beach"},
	})
	sun := s.createPhotoSet(models.PhotoSetCreate{
		Title: "Midday", CategoryName: "Landscape", Tags: []string{"sun"},
	})
	street := s.createPhotoSet(models.PhotoSetCreate{
		Title: "Shibuya Crossing", CategoryName: "Street Fashion", Tags: []string{"tokyo", "night"},
	})
	draft := s.createPhotoSet(models.PhotoSetCreate{
		Title: "Unfinished Sunset", CategoryName: "Landscape", Tags: []string{"sunset"}, Status: models.StatusDraft,
	})
	percent := s.createPhotoSet(models.PhotoSetCreate{
		Title: "100% Film", CategoryName: "Art Photography",
	})

	tests := []struct {
		name string
		q    models.PhotoSetQuery
		want []int64
	}{
		{
			name: "category",
			q:    models.PhotoSetQuery{Status: models.StatusPublished, CategorySlug: "landscape"},
			want: []int64{sunset.ID, sun.ID},
		},
		{
			name: "tag is a substring match",
			q:    models.PhotoSetQuery{Status: models.StatusPublished, Tag: "sun"},
			want: []int64{sunset.ID, sun.ID},
		},
		{
			name: "tag exact",
			q:    models.PhotoSetQuery{Status: models.StatusPublished, Tag: "tokyo"},
			want: []int64{street.ID},
		},
		{
			name: "search title case insensitive",
			q:    models.PhotoSetQuery{Status: models.StatusPublished, Search: "shibuya"},
			want: []int64{street.ID},
		},
		{
			name: "search description",
			q:    models.PhotoSetQuery{Status: models.StatusPublished, Search: "by the sea"},
			want: []int64{sunset.ID},
		},
		{
			name: "search tags",
			q:    models.PhotoSetQuery{Status: models.StatusPublished, Search: "night"},
			want: []int64{street.ID},
		},
		{
			name: "filters combine",
			q:    models.PhotoSetQuery{Status: models.StatusPublished, CategorySlug: "landscape", Tag: "beach"},
			want: []int64{sunset.ID},
		},
		{
			name: "drafts hidden from published listing",
			q:    models.PhotoSetQuery{Status: models.StatusPublished, Search: "unfinished"},
			want: []int64{},
		},
		{
			name: "admin listing sees every status",
			q:    models.PhotoSetQuery{Search: "sunset"},
			want: []int64{sunset.ID, draft.ID},
		},
		{
			name: "status filter",
			q:    models.PhotoSetQuery{Status: models.StatusDraft},
			want: []int64{draft.ID},
		},
		{
			name: "like wildcards are literal",
			q:    models.PhotoSetQuery{Search: "%"},
			want: []int64{percent.ID},
		},
		{
			name: "unknown category",
			q:    models.PhotoSetQuery{CategorySlug: "nope"},
			want: []int64{},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, total, err := s.repo.PhotoSets.ListPhotoSets(testCtx, tt.q)
			s.Require().NoError(err)
			s.Equal(len(tt.want), total)
			s.ElementsMatch(tt.want, ids(got))
		})
	}
}

func (s *RepositorySuite) TestListPhotoSets_Sort() {
	a := s.createPhotoSet(models.PhotoSetCreate{Title: "A"})
	b := s.createPhotoSet(models.PhotoSetCreate{Title: "B"})
	c := s.createPhotoSet(models.PhotoSetCreate{Title: "C"})

	s.setPublishedAt(a.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.setPublishedAt(b.ID, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	s.setPublishedAt(c.ID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	s.viewTimes(a.Slug, 5)
	s.viewTimes(c.Slug, 2)

	tests := []struct {
		sort models.PhotoSetSort
		want []int64
	}{
		{sort: "", want: []int64{b.ID, c.ID, a.ID}},
		{sort: models.SortPublishedDesc, want: []int64{b.ID, c.ID, a.ID}},
		{sort: models.SortPublishedAsc, want: []int64{a.ID, c.ID, b.ID}},
		{sort: models.SortViewsDesc, want: []int64{a.ID, c.ID, b.ID}},
		{sort: models.SortViewsAsc, want: []int64{b.ID, c.ID, a.ID}},
		{sort: "title", want: []int64{b.ID, c.ID, a.ID}},
	}

	for _, tt := range tests {
		s.Run(string(tt.sort), func() {
			got, _, err := s.repo.PhotoSets.ListPhotoSets(testCtx, models.PhotoSetQuery{Sort: tt.sort})
			s.Require().NoError(err)
			s.Equal(tt.want, ids(got))
		})
	}
}

func (s *RepositorySuite) TestGetPhotoSetBySlug_IncrementsViews() {
	p := s.createPhotoSet(models.PhotoSetCreate{Title: "Counted"})

	first, err := s.repo.PhotoSets.GetPhotoSetBySlug(testCtx, p.Slug)
	s.Require().NoError(err)
	second, err := s.repo.PhotoSets.GetPhotoSetBySlug(testCtx, p.Slug)
	s.Require().NoError(err)

	s.Equal(p.ViewCount+1, first.ViewCount)
	s.Equal(p.ViewCount+2, second.ViewCount)
	s.Equal(p.CategoryName, second.CategoryName)
	s.Equal(p.Images, second.Images)

	byID, err := s.repo.PhotoSets.GetPhotoSetByID(testCtx, p.ID)
	s.Require().NoError(err)
	s.Equal(second.ViewCount, byID.ViewCount)
}

func (s *RepositorySuite) TestGetPhotoSetBySlug_ConcurrentViews() {
	p := s.createPhotoSet(models.PhotoSetCreate{Title: "Popular"})

	const n = 25
	var wg sync.WaitGroup
	counts := make([]int64, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := s.repo.PhotoSets.GetPhotoSetBySlug(testCtx, p.Slug)
			if err == nil {
				counts[i] = got.ViewCount
			}
		}(i)
	}
	wg.Wait()

	sort.Slice(counts, func(i, j int) bool { return counts[i] < counts[j] })
	for i, c := range counts {
		s.Equal(int64(i+1), c)
	}
}

func (s *RepositorySuite) TestGetPhotoSet_NotFound() {
	_, err := s.repo.PhotoSets.GetPhotoSetBySlug(testCtx, "missing")
	s.ErrorIs(err, storage.ErrPhotoSetNotFound)

	_, err = s.repo.PhotoSets.GetPhotoSetByID(testCtx, 999)
	s.ErrorIs(err, storage.ErrPhotoSetNotFound)
}

func (s *RepositorySuite) TestGetPhotoSet_CorruptImages() {
	p := s.createPhotoSet(models.PhotoSetCreate{Title: "Broken"})

	_, err := s.db.Exec(testCtx, `UPDATE photosets SET images = 'not json' WHERE id = $1`, p.ID)
	s.Require().NoError(err)

	got, err := s.repo.PhotoSets.GetPhotoSetByID(testCtx, p.ID)
	s.Require().NoError(err)
	s.Equal([]string{}, got.Images)
}

func (s *RepositorySuite) TestListTopPhotoSets() {
	low := s.createPhotoSet(models.PhotoSetCreate{Title: "Low"})
	high := s.createPhotoSet(models.PhotoSetCreate{Title: "High"})
	hidden := s.createPhotoSet(models.PhotoSetCreate{Title: "Hidden", Status: models.StatusArchived})

	s.viewTimes(low.Slug, 1)
	s.viewTimes(high.Slug, 3)
	s.viewTimes(hidden.Slug, 10)

	top, err := s.repo.PhotoSets.ListTopPhotoSets(testCtx, 5)
	s.Require().NoError(err)
	s.Equal([]int64{high.ID, low.ID}, ids(top))

	one, err := s.repo.PhotoSets.ListTopPhotoSets(testCtx, 1)
	s.Require().NoError(err)
	s.Equal([]int64{high.ID}, ids(one))
}

func (s *RepositorySuite) TestUpdatePhotoSet() {
	p := s.createPhotoSet(models.PhotoSetCreate{Title: "Before", Tags: []string{"a"}, Description: "keep me"})
	other := s.createPhotoSet(models.PhotoSetCreate{Title: "After"})

	time.Sleep(10 * time.Millisecond)

	title := "After"
	category := "Brand New"
	featured := true
	status := models.StatusArchived
	tags := []string{"x", "y"}

	ok, err := s.repo.PhotoSets.UpdatePhotoSet(testCtx, p.ID, models.PhotoSetUpdate{
		Title:        &title,
		CategoryName: &category,
		IsFeatured:   &featured,
		Status:       &status,
		Tags:         &tags,
	})
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.repo.PhotoSets.GetPhotoSetByID(testCtx, p.ID)
	s.Require().NoError(err)

	s.Equal("After", got.Title)
	s.Equal("after-1", got.Slug, "slug must not collide with %s", other.Slug)
	s.Equal("Brand New", got.CategoryName)
	s.True(got.IsFeatured)
	s.Equal(models.StatusArchived, got.Status)
	s.Equal([]string{"x", "y"}, got.Tags)
	s.Equal("keep me", got.Description)
	s.Equal(p.Images, got.Images)
	s.True(got.UpdatedAt.After(p.UpdatedAt))
}

func (s *RepositorySuite) TestUpdatePhotoSet_SameTitleKeepsSlug() {
	p := s.createPhotoSet(models.PhotoSetCreate{Title: "Stable"})

	title := "Stable"
	ok, err := s.repo.PhotoSets.UpdatePhotoSet(testCtx, p.ID, models.PhotoSetUpdate{Title: &title})
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.repo.PhotoSets.GetPhotoSetByID(testCtx, p.ID)
	s.Require().NoError(err)
	s.Equal("stable", got.Slug)
}

func (s *RepositorySuite) TestUpdatePhotoSet_ClearsOptionalFields() {
	p := s.createPhotoSet(models.PhotoSetCreate{Title: "Clear", Tags: []string{"a"}, Description: "desc"})

	empty := ""
	noTags := []string{}
	ok, err := s.repo.PhotoSets.UpdatePhotoSet(testCtx, p.ID, models.PhotoSetUpdate{Description: &empty, Tags: &noTags})
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.repo.PhotoSets.GetPhotoSetByID(testCtx, p.ID)
	s.Require().NoError(err)
	s.Equal("", got.Description)
	s.Equal([]string{}, got.Tags)
}

func (s *RepositorySuite) TestUpdatePhotoSet_NotFound() {
	title := "Ghost"
	ok, err := s.repo.PhotoSets.UpdatePhotoSet(testCtx, 12345, models.PhotoSetUpdate{Title: &title})
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.repo.PhotoSets.UpdatePhotoSet(testCtx, 12345, models.PhotoSetUpdate{})
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RepositorySuite) TestUpdatePhotoSet_NotFoundLeavesCategories() {
	name := "Brand New"
	ok, err := s.repo.PhotoSets.UpdatePhotoSet(testCtx, 12345, models.PhotoSetUpdate{CategoryName: &name})
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.repo.Categories.GetCategoryBySlug(testCtx, "brand-new")
	s.ErrorIs(err, storage.ErrCategoryNotFound)
}

func (s *RepositorySuite) TestDeletePhotoSet() {
	p := s.createPhotoSet(models.PhotoSetCreate{Title: "Doomed"})

	ok, err := s.repo.PhotoSets.DeletePhotoSet(testCtx, p.ID)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.repo.PhotoSets.DeletePhotoSet(testCtx, p.ID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RepositorySuite) TestPublishedTagColumns() {
	s.createPhotoSet(models.PhotoSetCreate{Title: "One", Tags: []string{"a", "b"}})
	s.createPhotoSet(models.PhotoSetCreate{Title: "Two"})
	s.createPhotoSet(models.PhotoSetCreate{Title: "Three", Tags: []string{"c"}, Status: models.StatusDraft})
	s.createPhotoSet(models.PhotoSetCreate{Title: "Four", Tags: []string{"b"}})

	columns, err := s.repo.PhotoSets.PublishedTagColumns(testCtx)
	s.Require().NoError(err)
	s.Equal([]string{"a,b", "b"}, columns)
}

func (s *RepositorySuite) TestRemoveTag() {
	both := s.createPhotoSet(models.PhotoSetCreate{Title: "Both", Tags: []string{"sun", "sea"}})
	only := s.createPhotoSet(models.PhotoSetCreate{Title: "Only", Tags: []string{"sun"}})
	similar := s.createPhotoSet(models.PhotoSetCreate{Title: "Similar", Tags: []string{"sunset"}})

	updated, err := s.repo.PhotoSets.RemoveTag(testCtx, "sun")
	s.Require().NoError(err)
	s.Equal(2, updated)

	got, err := s.repo.PhotoSets.GetPhotoSetByID(testCtx, both.ID)
	s.Require().NoError(err)
	s.Equal([]string{"sea"}, got.Tags)

	got, err = s.repo.PhotoSets.GetPhotoSetByID(testCtx, only.ID)
	s.Require().NoError(err)
	s.Empty(got.Tags)

	got, err = s.repo.PhotoSets.GetPhotoSetByID(testCtx, similar.ID)
	s.Require().NoError(err)
	s.Equal([]string{"sunset"}, got.Tags)

	columns, err := s.repo.PhotoSets.PublishedTagColumns(testCtx)
	s.Require().NoError(err)
	s.Equal([]string{"sea", "sunset"}, columns)

	updated, err = s.repo.PhotoSets.RemoveTag(testCtx, "sun")
	s.Require().NoError(err)
	s.Zero(updated)
}

func (s *RepositorySuite) TestCategories_GetOrCreate() {
	first, err := s.repo.Categories.GetOrCreateCategory(testCtx, "Art Photography")
	s.Require().NoError(err)
	s.Equal("art-photography", first.Slug)

	again, err := s.repo.Categories.GetOrCreateCategory(testCtx, "Art Photography")
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID)

	// same slug, different name
	clash, err := s.repo.Categories.GetOrCreateCategory(testCtx, "art photography!")
	s.Require().NoError(err)
	s.NotEqual(first.ID, clash.ID)
	s.Equal("art-photography-1", clash.Slug)

	bySlug, err := s.repo.Categories.GetCategoryBySlug(testCtx, "art-photography-1")
	s.Require().NoError(err)
	s.Equal(clash, bySlug)
}

func (s *RepositorySuite) TestCategories_CreateUpdate() {
	beauty, err := s.repo.Categories.CreateCategory(testCtx, "Beauty")
	s.Require().NoError(err)

	_, err = s.repo.Categories.CreateCategory(testCtx, "Beauty")
	s.ErrorIs(err, storage.ErrCategoryExists)

	others, err := s.repo.Categories.CreateCategory(testCtx, "Others")
	s.Require().NoError(err)

	ok, err := s.repo.Categories.UpdateCategory(testCtx, beauty.ID, "Portraits")
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.repo.Categories.GetCategoryByID(testCtx, beauty.ID)
	s.Require().NoError(err)
	s.Equal("Portraits", got.Name)
	s.Equal("portraits", got.Slug)

	_, err = s.repo.Categories.UpdateCategory(testCtx, others.ID, "Portraits")
	s.ErrorIs(err, storage.ErrCategoryExists)

	ok, err = s.repo.Categories.UpdateCategory(testCtx, 999, "Nothing")
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.repo.Categories.GetCategoryByID(testCtx, 999)
	s.ErrorIs(err, storage.ErrCategoryNotFound)

	list, err := s.repo.Categories.ListCategories(testCtx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("Others", list[0].Name)
	s.Equal("Portraits", list[1].Name)
}

func (s *RepositorySuite) TestCategories_DeleteWithDependents() {
	p := s.createPhotoSet(models.PhotoSetCreate{Title: "Anchor", CategoryName: "Landscape"})

	ok, err := s.repo.Categories.DeleteCategory(testCtx, p.CategoryID)
	s.ErrorIs(err, storage.ErrCategoryInUse)
	s.False(ok)

	_, err = s.repo.Categories.GetCategoryByID(testCtx, p.CategoryID)
	s.NoError(err)
	_, err = s.repo.PhotoSets.GetPhotoSetByID(testCtx, p.ID)
	s.NoError(err)

	// drafts count as dependents too
	draft := s.createPhotoSet(models.PhotoSetCreate{Title: "Hidden", CategoryName: "Others", Status: models.StatusDraft})
	_, err = s.repo.Categories.DeleteCategory(testCtx, draft.CategoryID)
	s.ErrorIs(err, storage.ErrCategoryInUse)
}

func (s *RepositorySuite) TestCategories_Delete() {
	c, err := s.repo.Categories.CreateCategory(testCtx, "Empty")
	s.Require().NoError(err)

	ok, err := s.repo.Categories.DeleteCategory(testCtx, c.ID)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.repo.Categories.DeleteCategory(testCtx, c.ID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RepositorySuite) TestCategories_WithCount() {
	fresh, err := s.repo.Categories.CreateCategory(testCtx, "Fresh")
	s.Require().NoError(err)

	s.createPhotoSet(models.PhotoSetCreate{Title: "L1", CategoryName: "Landscape"})
	s.createPhotoSet(models.PhotoSetCreate{Title: "L2", CategoryName: "Landscape"})
	s.createPhotoSet(models.PhotoSetCreate{Title: "L3", CategoryName: "Landscape", Status: models.StatusDraft})

	list, err := s.repo.Categories.ListCategoriesWithCount(testCtx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)

	s.Equal(fresh.ID, list[0].ID)
	s.Equal(0, list[0].Count)
	s.Equal("Landscape", list[1].Name)
	s.Equal(2, list[1].Count)
}

func (s *RepositorySuite) TestAdmins() {
	id, err := s.repo.Admins.SaveAdmin(testCtx, "admin", []byte("$2a$10$hash"))
	s.Require().NoError(err)
	s.NotZero(id)

	_, err = s.repo.Admins.SaveAdmin(testCtx, "admin", []byte("other"))
	s.ErrorIs(err, storage.ErrAdminExists)

	admin, err := s.repo.Admins.AdminByUsername(testCtx, "admin")
	s.Require().NoError(err)
	s.Equal(id, admin.ID)
	s.Equal([]byte("$2a$10$hash"), admin.PasswordHash)

	_, err = s.repo.Admins.AdminByUsername(testCtx, "nobody")
	s.ErrorIs(err, storage.ErrAdminNotFound)

	count, err := s.repo.Admins.CountAdmins(testCtx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *RepositorySuite) TestStats() {
	a := s.createPhotoSet(models.PhotoSetCreate{Title: "A", CategoryName: "Landscape"})
	b := s.createPhotoSet(models.PhotoSetCreate{Title: "B", CategoryName: "Landscape"})
	c := s.createPhotoSet(models.PhotoSetCreate{Title: "C", CategoryName: "Beauty"})
	d := s.createPhotoSet(models.PhotoSetCreate{Title: "D", CategoryName: "Beauty", Status: models.StatusDraft})
	_, err := s.repo.Categories.CreateCategory(testCtx, "Empty")
	s.Require().NoError(err)

	s.viewTimes(a.Slug, 2)
	s.viewTimes(b.Slug, 1)
	s.viewTimes(c.Slug, 4)
	s.viewTimes(d.Slug, 50)

	published, err := s.repo.Stats.CountPhotoSets(testCtx, models.StatusPublished)
	s.Require().NoError(err)
	s.Equal(3, published)

	all, err := s.repo.Stats.CountPhotoSets(testCtx, "")
	s.Require().NoError(err)
	s.Equal(4, all)

	categories, err := s.repo.Stats.CountCategories(testCtx)
	s.Require().NoError(err)
	s.Equal(3, categories)

	views, err := s.repo.Stats.SumViews(testCtx, models.StatusPublished)
	s.Require().NoError(err)
	s.Equal(int64(7), views)

	top, err := s.repo.Stats.TopCategoriesByViews(testCtx, 5)
	s.Require().NoError(err)
	s.Require().Len(top, 3)

	s.Equal("Beauty", top[0].Name)
	s.Equal(int64(4), top[0].Views)
	s.Equal(1, top[0].Count)
	s.Equal("Landscape", top[1].Name)
	s.Equal(int64(3), top[1].Views)
	s.Equal(2, top[1].Count)
	s.Equal("Empty", top[2].Name)
	s.Equal(int64(0), top[2].Views)
	s.Equal(0, top[2].Count)
}

func (s *RepositorySuite) TestStats_EmptyStore() {
	views, err := s.repo.Stats.SumViews(testCtx, models.StatusPublished)
	s.Require().NoError(err)
	s.Equal(int64(0), views)

	top, err := s.repo.Stats.TopCategoriesByViews(testCtx, 5)
	s.Require().NoError(err)
	s.Empty(top)
}

func (s *RepositorySuite) setPublishedAt(id int64, at time.Time) {
	_, err := s.db.Exec(testCtx, `UPDATE photosets SET published_at = $1 WHERE id = $2`, at, id)
	s.Require().NoError(err)
}

func (s *RepositorySuite) viewTimes(slug string, n int) {
	for i := 0; i < n; i++ {
		_, err := s.repo.PhotoSets.GetPhotoSetBySlug(testCtx, slug)
		s.Require().NoError(err)
	}
}

func withPage(q models.PhotoSetQuery, page, limit int) models.PhotoSetQuery {
	q.Page, q.Limit = page, limit
	return q
}

func ids(sets []models.PhotoSet) []int64 {
	out := make([]int64, 0, len(sets))
	for _, p := range sets {
		out = append(out, p.ID)
	}
	return out
}

func TestNewRepository(t *testing.T) {
	repo := repository.NewRepository(slogdiscard.NewDiscardLogger(), nil)
	assert.NotNil(t, repo.PhotoSets)
	assert.NotNil(t, repo.Categories)
	assert.NotNil(t, repo.Admins)
	assert.NotNil(t, repo.Stats)
}
