package models

import (
	"time"
)

type PhotoSetStatus string

const (
	StatusDraft     PhotoSetStatus = "draft"
	StatusPublished PhotoSetStatus = "published"
	StatusArchived  PhotoSetStatus = "archived"
)

func (s PhotoSetStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// PhotoSetSort is the closed set of orderings a listing may request.
type PhotoSetSort string

const (
	SortPublishedDesc PhotoSetSort = "published_at_desc"
	SortPublishedAsc  PhotoSetSort = "published_at_asc"
	SortViewsDesc     PhotoSetSort = "view_count_desc"
	SortViewsAsc      PhotoSetSort = "view_count_asc"
)

// ParseSort maps user input to a known ordering, falling back to newest first.
func ParseSort(s string) PhotoSetSort {
	switch PhotoSetSort(s) {
	case SortPublishedAsc, SortViewsDesc, SortViewsAsc:
		return PhotoSetSort(s)
	}
	return SortPublishedDesc
}

// PhotoSet представляет фотосет вместе с данными его категории
type PhotoSet struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	CategoryID   int64          `json:"category_id"`
	CategoryName string         `json:"category_name"`
	CategorySlug string         `json:"category_slug"`
	Tags         []string       `json:"tags"`
	Images       []string       `json:"images"`
	ViewCount    int64          `json:"view_count"`
	Status       PhotoSetStatus `json:"status"`
	IsFeatured   bool           `json:"is_featured"`
	Slug         string         `json:"slug"`
	PublishedAt  time.Time      `json:"published_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CoverImage is the first image of the set, or "" for an empty set.
func (p PhotoSet) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// PhotoSetQuery describes one page of a photo set listing. An empty Status
// matches every status.
type PhotoSetQuery struct {
	Page         int
	Limit        int
	CategorySlug string
	Tag          string
	Search       string
	Sort         PhotoSetSort
	Status       PhotoSetStatus
}

type PhotoSetCreate struct {
	Title        string
	Description  string
	CategoryName string
	Tags         []string
	Images       []string
	IsFeatured   bool
	Status       PhotoSetStatus
}

// PhotoSetUpdate carries a partial update; nil fields are left untouched.
type PhotoSetUpdate struct {
	Title        *string
	Description  *string
	CategoryName *string
	Tags         *[]string
	Images       *[]string
	IsFeatured   *bool
	Status       *PhotoSetStatus
}

func (u PhotoSetUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.CategoryName == nil &&
		u.Tags == nil && u.Images == nil && u.IsFeatured == nil && u.Status == nil
}
