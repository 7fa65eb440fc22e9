// Package assetstore owns the output tree: it decides whether an item was
// already downloaded, streams signed URLs to disk, and records the slug in
// the mapping index.
//
// Files are named <slug>__<identifier>.<ext> inside the collection directory.
// The presence of any such file for a slug is the only signal that the item
// is done.
package assetstore
