package catalog

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"packrat/internal/textutil"
)

const (
	packPrefix = "/pack/"
	itemPrefix = "/item/"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// CollectionRef identifies one pack in the catalog.
type CollectionRef struct {
	Path string `json:"path"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Dir returns the output directory name for the collection.
func (c CollectionRef) Dir() string {
	return textutil.SanitizeToken(c.Slug)
}

// ItemRef identifies one asset page inside a pack.
type ItemRef struct {
	Path       string        `json:"path"`
	Slug       string        `json:"slug"`
	Collection CollectionRef `json:"collection"`
}

// NewCollection builds a CollectionRef for a pack slug.
func NewCollection(slug, name string) CollectionRef {
	slug = strings.TrimSpace(slug)
	if strings.TrimSpace(name) == "" {
		name = textutil.DisplayName(slug)
	}
	return CollectionRef{Path: packPrefix + slug, Slug: slug, Name: strings.TrimSpace(name)}
}

// NewItem builds an ItemRef for an item slug inside collection.
func NewItem(slug string, collection CollectionRef) ItemRef {
	slug = strings.TrimSpace(slug)
	return ItemRef{Path: itemPrefix + slug, Slug: slug, Collection: collection}
}

// ValidSlug reports whether value is shaped like a catalog slug.
func ValidSlug(value string) bool {
	return len(value) >= 2 && slugPattern.MatchString(value)
}

// NormalizePath resolves href against the page URL and returns the cleaned
// site-relative path. Off-site links, fragments and non-http schemes are
// rejected.
func NormalizePath(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
		if ref.Host != "" && base.Host != "" && !strings.EqualFold(ref.Host, base.Host) {
			return "", false
		}
	}
	if ref.Scheme != "" && ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	p := ref.EscapedPath()
	if p == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	p = path.Clean("/" + p)
	return strings.ToLower(p), true
}

// PackSlug extracts the slug from a normalized /pack/<slug> path.
func PackSlug(p string) (string, bool) {
	return slugAfter(p, packPrefix)
}

// ItemSlug extracts the slug from a normalized /item/<slug> path.
func ItemSlug(p string) (string, bool) {
	return slugAfter(p, itemPrefix)
}

func slugAfter(p, prefix string) (string, bool) {
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	slug := strings.TrimPrefix(p, prefix)
	if !ValidSlug(slug) {
		return "", false
	}
	return slug, true
}
