package util

import (
	"regexp"
	"strings"
)

const maxSlugLength = 60

var (
	hangulPattern    = regexp.MustCompile(`[가-힣]`)
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace   = regexp.MustCompile(`\s+`)
	slugRepeatedDash = regexp.MustCompile(`-+`)
)

// GenerateSlug creates a URL-friendly ASCII slug from title.
// Hangul and other non-ASCII characters are dropped. When nothing usable is
// left, fallback is returned.
func GenerateSlug(title, fallback string) string {
	slug := strings.ToLower(title)
	slug = hangulPattern.ReplaceAllString(slug, "")
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugWhitespace.ReplaceAllString(slug, "-")
	slug = slugRepeatedDash.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}

	if slug == "" {
		return fallback
	}
	return slug
}

// ShortID returns the first n characters of id.
func ShortID(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

// ParseTags parses tag strings into arrays
func ParseTags(tagStr string) []string {
	if tagStr == "" {
		return []string{}
	}

	// Remove brackets if present
	tagStr = strings.Trim(tagStr, "[]")

	// Split by comma and clean up
	tags := strings.Split(tagStr, ",")
	var cleanTags []string

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		tag = strings.Trim(tag, "\"'") // Remove quotes
		if tag != "" {
			cleanTags = append(cleanTags, tag)
		}
	}

	return cleanTags
}
