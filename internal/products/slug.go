package product

import (
	"regexp"
	"strings"
)

var (
	slugInvalidRe  = regexp.MustCompile(`[^a-z0-9]+`)
	slugCollapseRe = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a product name into its URL identifier.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalidRe.ReplaceAllString(slug, "-")
	slug = slugCollapseRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
