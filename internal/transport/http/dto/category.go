package dto

import "kansetsu/internal/domain/models"

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CategoryPageResponse is one page of a category's published photo sets.
type CategoryPageResponse struct {
	Category  models.Category    `json:"category"`
	PhotoSets []PhotoSetResponse `json:"photosets"`
}
