package anchor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

// Style selects how anchor ids are derived from heading labels
type Style string

const (
	StylePattern Style = "pattern" // Runs of characters outside [0-9a-zA-Z.] collapse to '-'
	StyleSlug    Style = "slug"    // Lowercase transliterated slug
)

// Fallback is used when a label yields no identifier characters at all
const Fallback = "heading"

var disallowedChars = regexp.MustCompile(`[^0-9a-zA-Z.]+`)

// IsValid returns true if the style is a known value
func (s Style) IsValid() bool {
	switch s {
	case StylePattern, StyleSlug:
		return true
	}
	return false
}

// Synthesize derives an anchor id from a heading label
func Synthesize(label string, style Style) string {
	var id string
	switch style {
	case StyleSlug:
		id = slug.Make(label)
	default:
		id = disallowedChars.ReplaceAllString(label, "-")
	}
	if strings.Trim(id, "-") == "" {
		return Fallback
	}
	return id
}

// Registry tracks anchor ids used within one generation run.
// Not safe for concurrent use.
type Registry struct {
	used map[string]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{used: make(map[string]struct{})}
}

// Reserve records an id that must be kept verbatim (author or marker ids)
func (r *Registry) Reserve(id string) {
	r.used[id] = struct{}{}
}

// Claim returns id if unused, otherwise the first free "id-N" with N >= 2.
// The returned id is recorded as used.
func (r *Registry) Claim(id string) string {
	candidate := id
	for n := 2; ; n++ {
		if _, taken := r.used[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
	r.used[candidate] = struct{}{}
	return candidate
}

// Has reports whether id was reserved or claimed
func (r *Registry) Has(id string) bool {
	_, ok := r.used[id]
	return ok
}

// Len returns the number of recorded ids
func (r *Registry) Len() int {
	return len(r.used)
}
