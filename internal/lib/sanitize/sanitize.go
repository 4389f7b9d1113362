// Package sanitize cleans user supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips every HTML element from s and returns the remaining plain
// text, trimmed. Entities are decoded so "&amp;" is stored as "&".
func Text(s string) string {
	if s == "" {
		return ""
	}

	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(s)))
}
