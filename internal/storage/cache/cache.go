// Package cache keeps short-lived copies of read-heavy listings
// (categories with counts, tag tallies, the most viewed photo sets).
package cache

import (
	"context"
	"time"
)

const (
	KeyCategoriesWithCount = "categories:with_count"
	KeyTags                = "tags:all"
	KeyHotPhotoSets        = "photosets:hot"
)

// Cache stores JSON-encodable values. Get reports false on a miss.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Delete(context.Context, ...string) error               { return nil }
