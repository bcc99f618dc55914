package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Posts and comments are plain text: every tag is stripped.
var textPolicy = bluemonday.StrictPolicy()

// Sanitize strips markup from user supplied text and trims surrounding
// whitespace. An input made only of markup sanitizes to "".
func Sanitize(input string) string {
	// StrictPolicy escapes entities; store the plain characters instead
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(input)))
}
