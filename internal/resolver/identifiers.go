package resolver

import (
	"encoding/json"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	designPattern      = regexp.MustCompile(`/design/([A-Za-z0-9_-]{4,})`)
	loadProjectPattern = regexp.MustCompile(`loadProject/([A-Za-z0-9_-]{4,})`)
	idFieldPattern     = regexp.MustCompile(`"(?:designId|projectId)"\s*:\s*"([A-Za-z0-9_-]{4,})"`)
)

// IsLoadProject reports whether rawURL is a resolution API response.
func IsLoadProject(rawURL string) bool {
	return strings.Contains(rawURL, loadProjectPath)
}

// ProjectID returns the trailing path segment of a loadProject URL with the
// query stripped.
func ProjectID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if !strings.Contains(u.Path, loadProjectPath) {
		return ""
	}
	id := path.Base(strings.TrimRight(u.Path, "/"))
	if id == "." || id == "/" || id == "loadProject" {
		return ""
	}
	return id
}

// DesignID returns the identifier in a /design/<id> URL, ignoring the
// creation trigger itself.
func DesignID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	m := designPattern.FindStringSubmatch(u.Path)
	if m == nil || m[1] == "create" {
		return ""
	}
	return m[1]
}

type signedPayload struct {
	PresignedURL *string `json:"presignedUrl"`
	ContentType  string  `json:"contentType"`
}

// ParseSignedURL extracts presignedUrl and contentType from a loadProject
// response body. A missing, null or empty presignedUrl is not a match. The
// payload may be wrapped in a top-level "data" object.
func ParseSignedURL(body []byte) (string, string, bool) {
	var envelope struct {
		signedPayload
		Data *signedPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", "", false
	}
	for _, p := range []*signedPayload{&envelope.signedPayload, envelope.Data} {
		if p == nil || p.PresignedURL == nil {
			continue
		}
		signed := strings.TrimSpace(*p.PresignedURL)
		if signed == "" {
			continue
		}
		return signed, p.ContentType, true
	}
	return "", "", false
}

// DocumentIDs scans meta tag content and inline scripts for design
// identifiers, in document order.
func DocumentIDs(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var texts []string
	doc.Find("meta[content]").Each(func(_ int, m *goquery.Selection) {
		texts = append(texts, m.AttrOr("content", ""))
	})
	doc.Find("link[href]").Each(func(_ int, l *goquery.Selection) {
		if strings.EqualFold(l.AttrOr("rel", ""), "canonical") {
			texts = append(texts, l.AttrOr("href", ""))
		}
	})
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})

	var ids []string
	for _, text := range texts {
		for _, re := range []*regexp.Regexp{designPattern, loadProjectPattern, idFieldPattern} {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				if m[1] == "create" {
					continue
				}
				ids = appendUnique(ids, m[1])
			}
		}
	}
	return ids
}
