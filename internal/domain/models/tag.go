package models

// Tag is derived from photo set tag lists and has no row of its own.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
