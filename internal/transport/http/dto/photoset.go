package dto

import (
	"time"

	"kansetsu/internal/domain/models"
)

// PhotoSetResponse представляет фотосет в ответах API
type PhotoSetResponse struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Slug         string    `json:"slug"`
	CategoryID   int64     `json:"category_id"`
	CategoryName string    `json:"category_name"`
	CategorySlug string    `json:"category_slug"`
	Tags         []string  `json:"tags"`
	Images       []string  `json:"images"`
	CoverImage   string    `json:"cover_image"` // первое изображение набора
	ImageCount   int       `json:"image_count"`
	ViewCount    int64     `json:"view_count"`
	Status       string    `json:"status"`
	IsFeatured   bool      `json:"is_featured"`
	PublishedAt  time.Time `json:"published_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewPhotoSetResponse(p models.PhotoSet) PhotoSetResponse {
	return PhotoSetResponse{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Slug:         p.Slug,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		CategorySlug: p.CategorySlug,
		Tags:         p.Tags,
		Images:       p.Images,
		CoverImage:   p.CoverImage(),
		ImageCount:   len(p.Images),
		ViewCount:    p.ViewCount,
		Status:       string(p.Status),
		IsFeatured:   p.IsFeatured,
		PublishedAt:  p.PublishedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func NewPhotoSetResponses(sets []models.PhotoSet) []PhotoSetResponse {
	out := make([]PhotoSetResponse, 0, len(sets))
	for _, p := range sets {
		out = append(out, NewPhotoSetResponse(p))
	}
	return out
}

// PhotoSetListQuery is bound from the query string of listing routes.
type PhotoSetListQuery struct {
	Page     int    `query:"page" validate:"max=1000000"`
	Limit    int    `query:"limit"`
	Category string `query:"category" validate:"max=100"`
	Tag      string `query:"tag" validate:"max=50"`
	Search   string `query:"search" validate:"max=200"`
	Sort     string `query:"sort"`
	Status   string `query:"status" validate:"omitempty,oneof=draft published archived"`
}

func (q PhotoSetListQuery) Model() models.PhotoSetQuery {
	return models.PhotoSetQuery{
		Page:         q.Page,
		Limit:        q.Limit,
		CategorySlug: q.Category,
		Tag:          q.Tag,
		Search:       q.Search,
		Sort:         models.ParseSort(q.Sort),
		Status:       models.PhotoSetStatus(q.Status),
	}
}

type CreatePhotoSetRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"max=1000"`
	CategoryName string   `json:"category_name" validate:"required,max=100"`
	Tags         []string `json:"tags" validate:"max=10,dive,max=50"`
	Images       []string `json:"images" validate:"required,min=1,max=50,dive,required,max=2048"`
	IsFeatured   bool     `json:"is_featured"`
	Status       string   `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (r CreatePhotoSetRequest) Model() models.PhotoSetCreate {
	return models.PhotoSetCreate{
		Title:        r.Title,
		Description:  r.Description,
		CategoryName: r.CategoryName,
		Tags:         r.Tags,
		Images:       r.Images,
		IsFeatured:   r.IsFeatured,
		Status:       models.PhotoSetStatus(r.Status),
	}
}

// UpdatePhotoSetRequest carries only the fields to change.
type UpdatePhotoSetRequest struct {
	Title        *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string   `json:"description" validate:"omitempty,max=1000"`
	CategoryName *string   `json:"category_name" validate:"omitempty,min=1,max=100"`
	Tags         *[]string `json:"tags" validate:"omitempty,max=10,dive,max=50"`
	Images       *[]string `json:"images" validate:"omitempty,min=1,max=50,dive,required,max=2048"`
	IsFeatured   *bool     `json:"is_featured"`
	Status       *string   `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (r UpdatePhotoSetRequest) Model() models.PhotoSetUpdate {
	upd := models.PhotoSetUpdate{
		Title:        r.Title,
		Description:  r.Description,
		CategoryName: r.CategoryName,
		Tags:         r.Tags,
		Images:       r.Images,
		IsFeatured:   r.IsFeatured,
	}
	if r.Status != nil {
		status := models.PhotoSetStatus(*r.Status)
		upd.Status = &status
	}
	return upd
}
