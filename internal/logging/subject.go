package logging

import "strings"

// FormatSubject builds the collection/slug subject string used in console output.
func FormatSubject(collection, slug string) string {
	collection = strings.TrimSpace(collection)
	slug = strings.TrimSpace(slug)
	switch {
	case collection != "" && slug != "":
		return collection + "/" + slug
	case collection != "":
		return collection
	default:
		return slug
	}
}
