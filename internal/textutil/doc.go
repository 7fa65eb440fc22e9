// Package textutil provides text helpers for turning catalog slugs into safe
// path segments and readable display names.
package textutil
