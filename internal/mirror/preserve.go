package mirror

import (
	"regexp"
	"strings"
	"time"

	"github.com/starford/faf/internal/transform"
)

var (
	tableRowRe = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)
	fenceRe    = regexp.MustCompile("(?m)^\\s*(```|~~~)")
)

// customHeaders are section headings the generator never writes.
var customHeaders = []string{
	"## Custom",
	"## Notes",
	"## Project Notes",
	"## Commands",
	"## Architecture",
	"## Conventions",
}

// hasCustomContent reports whether the readable file carries user-authored
// material: a table row, a fenced block or a custom heading.
func hasCustomContent(md string) bool {
	if tableRowRe.MatchString(md) || fenceRe.MatchString(md) {
		return true
	}
	for _, h := range customHeaders {
		if strings.Contains(md, h) {
			return true
		}
	}
	return false
}

// refreshFooter keeps the body of md verbatim and swaps only the sync footer.
func refreshFooter(md string, now time.Time) string {
	return transform.StripFooter(md) + "\n\n" + transform.Footer(now)
}
