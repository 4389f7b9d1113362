package models

import "time"

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryWithCount annotates a category with the number of its published photo sets.
type CategoryWithCount struct {
	Category
	Count int `json:"count"`
}

// CategoryViews is a category ranked by the views of its published photo sets.
type CategoryViews struct {
	Category
	Views int64 `json:"views"`
	Count int   `json:"count"`
}
