// Package sanitize strips markup from text that arrives from third-party
// sources before it reaches a terminal or a log line.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes all HTML tags and attributes.
var StrictPolicy = bluemonday.StrictPolicy()

// Plain strips all HTML tags, decodes entities and collapses runs of
// whitespace. Use for anything printed to a terminal.
func Plain(input string) string {
	return strings.Join(strings.Fields(html.UnescapeString(StrictPolicy.Sanitize(input))), " ")
}
