package models

type DashboardStats struct {
	TotalPhotoSets  int             `json:"total_photosets"`
	TotalCategories int             `json:"total_categories"`
	TotalViews      int64           `json:"total_views"`
	TopPhotoSets    []PhotoSet      `json:"top_photosets"`
	TopCategories   []CategoryViews `json:"top_categories"`
}
