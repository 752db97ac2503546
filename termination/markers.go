package termination

import "strings"

// DefaultMarkers are the phrases a persona uses to say it is done.
var DefaultMarkers = []string{
	"nothing further to add",
	"nothing more to add",
	"nothing to add",
	"no further input",
}

// FindMarker returns the first marker contained in content. Both sides are
// normalized so punctuation and case do not matter.
func FindMarker(content string, markers []string) (string, bool) {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	text := " " + Normalize(content) + " "
	for _, m := range markers {
		nm := Normalize(m)
		if nm == "" {
			continue
		}
		if strings.Contains(text, " "+nm+" ") {
			return m, true
		}
	}
	return "", false
}
