// Package codec converts the list-valued photo set columns to and from the
// text form they are stored in.
package codec

import (
	"encoding/json"
	"errors"
	"strings"
)

const tagSeparator = ","

var ErrCorruptImages = errors.New("image list is not a valid JSON string array")

// EncodeTags joins tags with commas. A comma inside a tag cannot survive a
// round trip.
func EncodeTags(tags []string) string {
	return strings.Join(tags, tagSeparator)
}

// DecodeTags splits on commas, trims every segment and drops empty ones.
func DecodeTags(s string) []string {
	tags := make([]string, 0)

	for _, part := range strings.Split(s, tagSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}

	return tags
}

func EncodeImages(images []string) string {
	if images == nil {
		images = []string{}
	}

	b, err := json.Marshal(images)
	if err != nil {
		// a []string always marshals
		return "[]"
	}

	return string(b)
}

// ParseImages decodes a stored image list. Malformed input returns an empty
// list together with ErrCorruptImages.
func ParseImages(s string) ([]string, error) {
	images := make([]string, 0)

	if strings.TrimSpace(s) == "" {
		return images, nil
	}

	if err := json.Unmarshal([]byte(s), &images); err != nil {
		return make([]string, 0), errors.Join(ErrCorruptImages, err)
	}

	if images == nil {
		images = make([]string, 0)
	}

	return images, nil
}

// DecodeImages is ParseImages without the error.
func DecodeImages(s string) []string {
	images, _ := ParseImages(s)
	return images
}
