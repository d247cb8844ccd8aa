package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize strips all markup, scripts included, and returns plain text.
// Entities are decoded again so "a & b" is stored as typed.
func Sanitize(input string) string {
	return html.UnescapeString(strictPolicy.Sanitize(input))
}
