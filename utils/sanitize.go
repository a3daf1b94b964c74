package utils

import "github.com/microcosm-cc/bluemonday"

var (
	ugcPolicy   = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans user-generated HTML (note and highlight content) to prevent XSS.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}

// SanitizePlain strips all markup. Used for titles, author names, and other
// fields that should never contain HTML.
func SanitizePlain(input string) string {
	return plainPolicy.Sanitize(input)
}
