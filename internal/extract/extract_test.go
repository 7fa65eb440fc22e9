package extract_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packrat/internal/catalog"
	"packrat/internal/extract"
	"packrat/internal/logging"
)

const packPage = `<html><body>
<header><a href="/item/banner-fox">Featured</a></header>
<section class="item-grid">
  <a href="/item/fox">Fox</a>
  <a href="/item/owl/">Owl</a>
</section>
<div data-item-slug="badger"></div>
<div class="asset-card" data-href="/item/hare?from=card"></div>
<div class="thumb-wrap"><a href="https://catalog.test/item/fox#preview">Fox again</a></div>
<library-item slug="lynx"></library-item>
<div class="library-shelf"><a href="/item/stoat">Stoat</a></div>
<a href="/pack/other">Other pack</a>
<a href="https://elsewhere.test/item/mole">Off-site</a>
</body></html>`

func parse(t *testing.T, html string) (*goquery.Document, *url.URL) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	base, err := url.Parse("https://catalog.test/pack/animals")
	require.NoError(t, err)
	return doc, base
}

func TestItemsIsUnionOfHeuristics(t *testing.T) {
	doc, base := parse(t, packPage)
	collection := catalog.NewCollection("animals", "")

	var union []string
	seen := map[string]bool{}
	for _, h := range extract.Heuristics() {
		for _, p := range h.Find(doc, base) {
			if !seen[p] {
				seen[p] = true
				union = append(union, p)
			}
		}
	}

	items := extract.Items(doc, base, collection)
	var got []string
	for _, item := range items {
		got = append(got, item.Path)
		assert.Equal(t, collection, item.Collection)
	}
	assert.Equal(t, union, got)
	assert.ElementsMatch(t, []string{
		"/item/banner-fox", "/item/fox", "/item/owl", "/item/badger",
		"/item/hare", "/item/lynx", "/item/stoat",
	}, got)
}

func TestHeuristicsContributeDistinctItems(t *testing.T) {
	doc, base := parse(t, packPage)
	byName := map[string][]string{}
	for _, h := range extract.Heuristics() {
		byName[h.Name] = h.Find(doc, base)
	}
	assert.NotContains(t, byName["anchor"], "/item/badger")
	assert.Contains(t, byName["component"], "/item/badger")
	assert.Contains(t, byName["card"], "/item/hare")
	assert.Contains(t, byName["library"], "/item/lynx")
}

func TestItemsEmptyPage(t *testing.T) {
	doc, base := parse(t, `<html><body><p>nothing here</p></body></html>`)
	assert.Empty(t, extract.Items(doc, base, catalog.NewCollection("animals", "")))
}

func TestSlugsPrefersNextData(t *testing.T) {
	doc, base := parse(t, `<html><body>
<script id="__NEXT_DATA__" type="application/json">{"props":{"items":[{"slug":"fox","name":"Fox"},{"slug":"owl"},{"slug":"Not A Slug"}],"pack":{"title":"x"}},"slug":"fox"}</script>
<a href="/design/create?slug=badger">Badger</a>
</body></html>`)

	slugs, source := extract.Slugs(doc, base, logging.NewNop())
	assert.Equal(t, "state", source)
	assert.Equal(t, []string{"fox", "owl"}, slugs)
}

func TestSlugsReadsAssignedState(t *testing.T) {
	doc, base := parse(t, `<html><body>
<script>window.__INITIAL_STATE__ = {"pack":{"entries":[{"slug":"lynx"},{"slug":"stoat"}]}};
window.other = 1;</script>
</body></html>`)

	slugs, source := extract.Slugs(doc, base, nil)
	assert.Equal(t, "state", source)
	assert.Equal(t, []string{"lynx", "stoat"}, slugs)
}

func TestSlugsRejectsMalformedStateAndFallsThrough(t *testing.T) {
	doc, base := parse(t, `<html><body>
<script>window.__APOLLO_STATE__ = {slug: alert(1)};</script>
<a href="/design/create?slug=badger">Badger</a>
<a href="/design/create?slug=badger&x=1">Badger again</a>
<img src="/thumbs/hare.png" alt="Hare">
</body></html>`)

	slugs, source := extract.Slugs(doc, base, logging.NewNop())
	assert.Equal(t, "query", source)
	assert.Equal(t, []string{"badger"}, slugs)
}

func TestSlugsFallsBackToImages(t *testing.T) {
	doc, base := parse(t, `<html><body>
<img src="https://cdn.test/previews/red-fox.webp">
<img src="/x/IMG 001.png" alt="snow-owl">
</body></html>`)

	slugs, source := extract.Slugs(doc, base, logging.NewNop())
	assert.Equal(t, "image", source)
	assert.Equal(t, []string{"red-fox", "snow-owl"}, slugs)
}

func TestSlugsFromJSONRejectsInvalid(t *testing.T) {
	_, err := extract.SlugsFromJSON([]byte(`{"slug": "fox",}`))
	require.Error(t, err)
	_, err = extract.SlugsFromJSON(nil)
	require.Error(t, err)
}

func TestSlugsFromJSONLowercasesMixedCase(t *testing.T) {
	slugs, err := extract.SlugsFromJSON([]byte(`{"items":[{"slug":"Red-Fox"},{"slug":" owl "},{"slug":"OWL"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"red-fox", "owl"}, slugs)
}

func TestItemsFromSlugs(t *testing.T) {
	items := extract.ItemsFromSlugs([]string{"fox"}, catalog.NewCollection("animals", ""))
	require.Len(t, items, 1)
	assert.Equal(t, "/item/fox", items[0].Path)
	assert.Equal(t, "animals", items[0].Collection.Slug)
}
