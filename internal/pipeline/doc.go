// Package pipeline runs the discovery, resolution and download loop.
//
// A run crawls the catalog (or takes an explicit pack list), extracts the
// items of each pack, skips items already on disk, resolves the rest and
// stores them. Each pack and each item is isolated: errors and panics are
// logged, journaled and counted, and the loop moves on. Only a missing
// browsing session or a cancelled context stops a run early.
package pipeline
