package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"packrat/internal/catalog"
)

// Heuristic finds candidate item paths in a parsed page.
type Heuristic struct {
	Name string
	Find func(doc *goquery.Document, base *url.URL) []string
}

// Heuristics returns the collection-level heuristics in the order their
// results are merged.
func Heuristics() []Heuristic {
	return []Heuristic{
		{Name: "anchor", Find: anchorPaths},
		{Name: "component", Find: componentPaths},
		{Name: "card", Find: cardPaths},
		{Name: "library", Find: libraryPaths},
	}
}

// Items runs every heuristic against doc and returns their union as item
// refs, deduplicated by normalized path in first-seen order.
func Items(doc *goquery.Document, base *url.URL, collection catalog.CollectionRef) []catalog.ItemRef {
	var items []catalog.ItemRef
	seen := make(map[string]struct{})
	for _, h := range Heuristics() {
		for _, p := range h.Find(doc, base) {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			slug, _ := catalog.ItemSlug(p)
			items = append(items, catalog.NewItem(slug, collection))
		}
	}
	return items
}

func anchorPaths(doc *goquery.Document, base *url.URL) []string {
	var out pathSet
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		out.addHref(base, a.AttrOr("href", ""))
	})
	return out.paths
}

const componentSelector = `[class*="item-list"], [class*="item-grid"], [class*="ItemList"], [class*="ItemGrid"], [data-component*="item"]`

func componentPaths(doc *goquery.Document, base *url.URL) []string {
	var out pathSet
	doc.Find(componentSelector).Each(func(_ int, scope *goquery.Selection) {
		scope.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			out.addHref(base, a.AttrOr("href", ""))
		})
	})
	doc.Find("[data-item-slug]").Each(func(_ int, el *goquery.Selection) {
		out.addSlug(el.AttrOr("data-item-slug", ""))
	})
	doc.Find("[data-href]").Each(func(_ int, el *goquery.Selection) {
		out.addHref(base, el.AttrOr("data-href", ""))
	})
	return out.paths
}

func cardPaths(doc *goquery.Document, base *url.URL) []string {
	var out pathSet
	doc.Find(`[class*="card"], [class*="thumb"]`).Each(func(_ int, el *goquery.Selection) {
		if href, ok := el.Attr("href"); ok {
			out.addHref(base, href)
		}
		if href, ok := el.Attr("data-href"); ok {
			out.addHref(base, href)
		}
		el.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			out.addHref(base, a.AttrOr("href", ""))
		})
	})
	return out.paths
}

func libraryPaths(doc *goquery.Document, base *url.URL) []string {
	var out pathSet
	doc.Find(`library-item, [data-library-item]`).Each(func(_ int, el *goquery.Selection) {
		for _, attr := range []string{"href", "data-href", "path"} {
			if href, ok := el.Attr(attr); ok {
				out.addHref(base, href)
			}
		}
		for _, attr := range []string{"slug", "data-library-item"} {
			if slug, ok := el.Attr(attr); ok {
				out.addSlug(slug)
			}
		}
		el.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			out.addHref(base, a.AttrOr("href", ""))
		})
	})
	doc.Find(`[class*="library"] a[href]`).Each(func(_ int, a *goquery.Selection) {
		out.addHref(base, a.AttrOr("href", ""))
	})
	return out.paths
}

// pathSet accumulates unique item paths in insertion order.
type pathSet struct {
	paths []string
	seen  map[string]struct{}
}

func (s *pathSet) addHref(base *url.URL, href string) {
	p, ok := catalog.NormalizePath(base, href)
	if !ok {
		return
	}
	if _, ok := catalog.ItemSlug(p); !ok {
		return
	}
	s.add(p)
}

func (s *pathSet) addSlug(slug string) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !catalog.ValidSlug(slug) {
		return
	}
	s.add(catalog.NewItem(slug, catalog.CollectionRef{}).Path)
}

func (s *pathSet) add(p string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[p]; ok {
		return
	}
	s.seen[p] = struct{}{}
	s.paths = append(s.paths, p)
}
