// Package resolver turns an item slug into a signed download URL.
//
// Each resolution registers a response listener, navigates to the design
// creation page for the slug, and waits for the site's own loadProject call
// to reveal the presigned URL. When only the redirect reveals the design
// identifier, or when neither does, the resolver falls back to an in-page
// fetch of the same endpoint for each identifier it can find.
package resolver
