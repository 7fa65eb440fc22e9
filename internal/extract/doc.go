// Package extract pulls item references out of rendered pack pages.
//
// Collection-level extraction runs every heuristic and unions the results;
// item-level extraction walks an ordered fallback chain that prefers the
// page's embedded state blob. Embedded state is parsed as JSON and never
// evaluated.
package extract
