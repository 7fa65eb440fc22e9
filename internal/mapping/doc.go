// Package mapping persists the slug to design identifier index written next to
// the downloaded assets.
//
// The file is a flat JSON object. Entries are only added or overwritten;
// nothing removes them. An unreadable or corrupt file is treated as empty so
// a damaged index never blocks downloads.
package mapping
