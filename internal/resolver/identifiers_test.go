package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectID(t *testing.T) {
	assert.Equal(t, "abc123", ProjectID("https://catalog.test/api/v1/assetmanager/presigned/loadProject/abc123?lang=en"))
	assert.Equal(t, "abc123", ProjectID("https://catalog.test/api/v1/assetmanager/presigned/loadProject/abc123/"))
	assert.Empty(t, ProjectID("https://catalog.test/api/v1/other/abc123"))
	assert.Empty(t, ProjectID("https://catalog.test/api/v1/assetmanager/presigned/loadProject/"))
}

func TestDesignID(t *testing.T) {
	assert.Equal(t, "abc123", DesignID("https://catalog.test/design/abc123?tab=edit"))
	assert.Empty(t, DesignID("https://catalog.test/design/create?slug=foo"))
	assert.Empty(t, DesignID("https://catalog.test/pack/animals"))
}

func TestParseSignedURL(t *testing.T) {
	signed, contentType, ok := ParseSignedURL([]byte(`{"presignedUrl":"https://cdn.example/x","contentType":"model/gltf-binary"}`))
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example/x", signed)
	assert.Equal(t, "model/gltf-binary", contentType)

	for _, body := range []string{`{"presignedUrl":null}`, `{"presignedUrl":"  "}`, `{}`, `not json`} {
		_, _, ok := ParseSignedURL([]byte(body))
		assert.False(t, ok, body)
	}
}

func TestDocumentIDsOrderAndDedup(t *testing.T) {
	html := `<html><head>
<meta name="x" content="https://catalog.test/design/aaaa1111">
<link rel="canonical" href="/design/bbbb2222">
</head><body>
<script>fetch("/api/v1/assetmanager/presigned/loadProject/cccc3333"); var s = {"designId":"aaaa1111"};</script>
</body></html>`
	assert.Equal(t, []string{"aaaa1111", "bbbb2222", "cccc3333"}, DocumentIDs(html))
}
