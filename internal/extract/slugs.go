package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"packrat/internal/catalog"
	"packrat/internal/logging"
)

// stateAssignments are the global names a page may assign its state blob to.
var stateAssignments = []string{
	"window.__INITIAL_STATE__",
	"window.__APOLLO_STATE__",
	"__INITIAL_STATE__",
	"__APOLLO_STATE__",
}

// Slugs returns item slugs using the first source in the fallback chain that
// yields any: the embedded state blob, anchors carrying a slug= query
// parameter, then image src/alt tokens.
func Slugs(doc *goquery.Document, base *url.URL, logger *slog.Logger) ([]string, string) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if slugs := stateSlugs(doc, logger); len(slugs) > 0 {
		return slugs, "state"
	}
	if slugs := querySlugs(doc, base); len(slugs) > 0 {
		return slugs, "query"
	}
	if slugs := imageSlugs(doc); len(slugs) > 0 {
		return slugs, "image"
	}
	return nil, ""
}

// ItemsFromSlugs wraps slugs as item refs of collection.
func ItemsFromSlugs(slugs []string, collection catalog.CollectionRef) []catalog.ItemRef {
	items := make([]catalog.ItemRef, 0, len(slugs))
	for _, slug := range slugs {
		items = append(items, catalog.NewItem(slug, collection))
	}
	return items
}

func stateSlugs(doc *goquery.Document, logger *slog.Logger) []string {
	var blobs [][]byte
	doc.Find(`script#__NEXT_DATA__`).Each(func(_ int, s *goquery.Selection) {
		blobs = append(blobs, []byte(strings.TrimSpace(s.Text())))
	})
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if blob, ok := assignedBlob(s.Text()); ok {
			blobs = append(blobs, blob)
		}
	})

	var out slugList
	for _, blob := range blobs {
		slugs, err := SlugsFromJSON(blob)
		if err != nil {
			logger.Warn("embedded state rejected",
				logging.Error(err),
				logging.String(logging.FieldEventType, "state_blob_malformed"),
				logging.Int("bytes", len(blob)),
			)
			continue
		}
		for _, slug := range slugs {
			out.add(slug)
		}
	}
	return out.items
}

// assignedBlob returns the JSON value assigned to a known state global in a
// script body, up to the end of that value.
func assignedBlob(script string) ([]byte, bool) {
	for _, name := range stateAssignments {
		idx := strings.Index(script, name)
		if idx < 0 {
			continue
		}
		rest := strings.TrimLeft(script[idx+len(name):], " \t\r\n")
		if !strings.HasPrefix(rest, "=") {
			continue
		}
		rest = strings.TrimLeft(rest[1:], " \t\r\n")
		dec := json.NewDecoder(strings.NewReader(rest))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			// hand the truncated remainder to the strict parser so the rejection is logged
			return []byte(rest), true
		}
		return raw, true
	}
	return nil, false
}

// SlugsFromJSON walks a JSON document in order and collects every string
// value stored under a "slug" key that looks like a catalog slug.
func SlugsFromJSON(data []byte) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty state blob")
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("state blob is not valid json")
	}

	type frame struct {
		object    bool
		expectKey bool
	}
	var (
		stack []frame
		key   string
		out   slugList
	)
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk state blob: %w", err)
		}

		var top *frame
		if n := len(stack); n > 0 {
			top = &stack[n-1]
		}

		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				if top != nil && top.object {
					top.expectKey = true
				}
				stack = append(stack, frame{object: delim == '{', expectKey: delim == '{'})
			case '}', ']':
				stack = stack[:len(stack)-1]
			}
			continue
		}

		if top != nil && top.object {
			if top.expectKey {
				key, _ = tok.(string)
				top.expectKey = false
				continue
			}
			if s, ok := tok.(string); ok && key == "slug" {
				if slug := strings.ToLower(strings.TrimSpace(s)); catalog.ValidSlug(slug) {
					out.add(slug)
				}
			}
			top.expectKey = true
		}
	}
	return out.items, nil
}

func querySlugs(doc *goquery.Document, base *url.URL) []string {
	var out slugList
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		ref, err := url.Parse(strings.TrimSpace(a.AttrOr("href", "")))
		if err != nil {
			return
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		if slug := strings.ToLower(ref.Query().Get("slug")); catalog.ValidSlug(slug) {
			out.add(slug)
		}
	})
	return out.items
}

func imageSlugs(doc *goquery.Document) []string {
	var out slugList
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			if u, err := url.Parse(src); err == nil {
				name := strings.ToLower(path.Base(u.Path))
				name = strings.TrimSuffix(name, path.Ext(name))
				if catalog.ValidSlug(name) {
					out.add(name)
					return
				}
			}
		}
		alt := strings.ToLower(strings.TrimSpace(img.AttrOr("alt", "")))
		if catalog.ValidSlug(alt) {
			out.add(alt)
		}
	})
	return out.items
}

type slugList struct {
	items []string
	seen  map[string]struct{}
}

func (l *slugList) add(slug string) {
	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}
	if _, ok := l.seen[slug]; ok {
		return
	}
	l.seen[slug] = struct{}{}
	l.items = append(l.items, slug)
}
