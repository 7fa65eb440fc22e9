package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packrat/internal/browser"
	"packrat/internal/faults"
	"packrat/internal/logging"
	"packrat/internal/resolver"
	"packrat/internal/testsupport"
)

const base = testsupport.TestBaseURL

func newResolver(t *testing.T) *resolver.Resolver {
	t.Helper()
	return resolver.New(testsupport.NewConfig(t), logging.NewNop())
}

func loadProject(id, body string) browser.Response {
	return browser.Response{
		URL:         base + "/api/v1/assetmanager/presigned/loadProject/" + id + "?lang=en",
		Status:      200,
		ContentType: "application/json",
		Body:        []byte(body),
	}
}

func TestResolveCapturesListenerEvent(t *testing.T) {
	r := newResolver(t)
	page := testsupport.NewFakePage()
	page.AddDocument(r.TriggerURL("foo"), &testsupport.FakeDocument{
		RedirectTo: base + "/design/abc123",
		Responses: []browser.Response{
			{URL: base + "/api/v1/other", Status: 200, Body: []byte(`{"presignedUrl":"https://cdn.example/wrong"}`)},
			loadProject("abc123", `{"presignedUrl":"https://cdn.example/x","contentType":"model/gltf-binary"}`),
			loadProject("def456", `{"presignedUrl":"https://cdn.example/second"}`),
		},
	})

	res, err := r.Resolve(context.Background(), page, "foo")
	require.NoError(t, err)
	assert.Equal(t, resolver.Result{
		Identifier:  "abc123",
		SignedURL:   "https://cdn.example/x",
		ContentType: "model/gltf-binary",
		Source:      resolver.SourceListener,
	}, res)
	assert.Empty(t, page.CallsWithPrefix("fetch "))
}

func TestResolveRegistersListenerBeforeNavigation(t *testing.T) {
	r := newResolver(t)
	page := testsupport.NewFakePage()
	page.AddDocument(r.TriggerURL("foo"), &testsupport.FakeDocument{
		Responses: []browser.Response{loadProject("abc123", `{"presignedUrl":"https://cdn.example/x"}`)},
	})

	_, err := r.Resolve(context.Background(), page, "foo")
	require.NoError(t, err)

	calls := page.Calls()
	require.GreaterOrEqual(t, len(calls), 3)
	assert.Equal(t, "listen", calls[0])
	assert.Equal(t, "navigate "+r.TriggerURL("foo"), calls[1])
	assert.Equal(t, "unlisten", calls[len(calls)-1])
	assert.Zero(t, page.ActiveListeners())
}

func TestResolveFallsBackToRedirectFetch(t *testing.T) {
	r := newResolver(t)
	page := testsupport.NewFakePage()
	page.AddDocument(r.TriggerURL("foo"), &testsupport.FakeDocument{RedirectTo: base + "/design/abc123"})
	page.Fetches[r.LoadProjectURL("abc123")] = loadProject("abc123", `{"data":{"presignedUrl":"https://cdn.example/x","contentType":"model/gltf-binary"}}`)

	res, err := r.Resolve(context.Background(), page, "foo")
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.Identifier)
	assert.Equal(t, "https://cdn.example/x", res.SignedURL)
	assert.Equal(t, resolver.SourceRedirect, res.Source)
	assert.Equal(t, []string{"fetch " + r.LoadProjectURL("abc123")}, page.CallsWithPrefix("fetch "))
}

func TestResolveRetriesListenerSeenIdentifierAsListenerSource(t *testing.T) {
	r := newResolver(t)
	page := testsupport.NewFakePage()
	page.AddDocument(r.TriggerURL("foo"), &testsupport.FakeDocument{
		Responses: []browser.Response{loadProject("abc123", `{"presignedUrl":null}`)},
	})
	page.Fetches[r.LoadProjectURL("abc123")] = loadProject("abc123", `{"presignedUrl":"https://cdn.example/retry"}`)

	res, err := r.Resolve(context.Background(), page, "foo")
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.Identifier)
	assert.Equal(t, "https://cdn.example/retry", res.SignedURL)
	assert.Equal(t, resolver.SourceListener, res.Source)
	assert.Equal(t, []string{"fetch " + r.LoadProjectURL("abc123")}, page.CallsWithPrefix("fetch "))
}

func TestResolveTriesRedirectBeforeListenerSeenIdentifiers(t *testing.T) {
	r := newResolver(t)
	page := testsupport.NewFakePage()
	page.AddDocument(r.TriggerURL("foo"), &testsupport.FakeDocument{
		RedirectTo: base + "/design/abc123",
		Responses:  []browser.Response{loadProject("def456", `{"presignedUrl":null}`)},
	})
	page.Fetches[r.LoadProjectURL("def456")] = loadProject("def456", `{"presignedUrl":"https://cdn.example/seen"}`)

	res, err := r.Resolve(context.Background(), page, "foo")
	require.NoError(t, err)
	assert.Equal(t, "def456", res.Identifier)
	assert.Equal(t, resolver.SourceListener, res.Source)
	assert.Equal(t, []string{
		"fetch " + r.LoadProjectURL("abc123"),
		"fetch " + r.LoadProjectURL("def456"),
	}, page.CallsWithPrefix("fetch "))
}

func TestResolveScansDocumentWhenNothingElseArrives(t *testing.T) {
	r := newResolver(t)
	page := testsupport.NewFakePage()
	page.AddDocument(r.TriggerURL("foo"), &testsupport.FakeDocument{
		HTML: `<html><head><meta property="og:url" content="/design/create?slug=foo"></head>
<body><script>window.boot({"projectId": "zz9999", "designId": "xyz789"})</script></body></html>`,
	})
	page.Fetches[r.LoadProjectURL("xyz789")] = loadProject("xyz789", `{"presignedUrl":"https://cdn.example/doc"}`)

	res, err := r.Resolve(context.Background(), page, "foo")
	require.NoError(t, err)
	assert.Equal(t, "xyz789", res.Identifier)
	assert.Equal(t, resolver.SourceDocument, res.Source)
	assert.Equal(t, []string{
		"fetch " + r.LoadProjectURL("zz9999"),
		"fetch " + r.LoadProjectURL("xyz789"),
	}, page.CallsWithPrefix("fetch "))
}

func TestResolveWithoutSignedURLIsNoMatch(t *testing.T) {
	r := newResolver(t)
	page := testsupport.NewFakePage()
	page.AddDocument(r.TriggerURL("foo"), &testsupport.FakeDocument{
		Responses: []browser.Response{loadProject("abc123", `{"presignedUrl":null,"contentType":"model/gltf-binary"}`)},
	})

	_, err := r.Resolve(context.Background(), page, "foo")
	require.Error(t, err)
	failure, ok := resolver.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, resolver.StateNoMatch, failure.State)
	assert.True(t, errors.Is(err, faults.ErrNoMatch))
	assert.Equal(t, []string{"fetch " + r.LoadProjectURL("abc123")}, page.CallsWithPrefix("fetch "))
	assert.Zero(t, page.ActiveListeners())
}

func TestResolveNavigationTimeoutIsTimedOut(t *testing.T) {
	r := newResolver(t)
	page := testsupport.NewFakePage()
	page.AddDocument(r.TriggerURL("foo"), &testsupport.FakeDocument{Hang: true})

	_, err := r.Resolve(context.Background(), page, "foo")
	require.Error(t, err)
	failure, ok := resolver.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, resolver.StateTimedOut, failure.State)
	assert.True(t, errors.Is(err, faults.ErrTimeout))
	assert.Zero(t, page.ActiveListeners())
}

func TestResolveNavigationErrorIsNotAFailure(t *testing.T) {
	r := newResolver(t)
	page := testsupport.NewFakePage()
	page.AddDocument(r.TriggerURL("foo"), &testsupport.FakeDocument{Err: errors.New("net::ERR_ABORTED")})

	_, err := r.Resolve(context.Background(), page, "foo")
	require.Error(t, err)
	_, ok := resolver.AsFailure(err)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, faults.ErrNavigation))
}
