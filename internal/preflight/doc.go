// Package preflight provides readiness checks for the filesystem paths,
// browser, credentials and site that packrat depends on.
//
// The CLI "packrat status" command renders every result as a table; "packrat
// run" refuses to start when a required check fails.
package preflight
