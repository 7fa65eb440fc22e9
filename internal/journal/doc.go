// Package journal records pipeline runs and per-item outcomes in SQLite.
//
// The journal is informational: history and status commands read it, but
// nothing consults it to decide whether an item needs downloading. That
// decision belongs to the files in the output tree.
package journal
