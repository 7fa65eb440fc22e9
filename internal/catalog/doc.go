// Package catalog models the catalog hierarchy (packs containing items) and
// walks the paginated pack listing.
//
// Refs carry site-relative paths normalized by NormalizePath so that the same
// pack or item reached through different href spellings deduplicates to one
// entry. Crawl drives a browser.Page through the listing and keeps whatever it
// gathered when pagination stops early.
package catalog
