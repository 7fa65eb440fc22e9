// Package logs reads back the packrat log file for the logs command.
//
// Reader returns the last lines of the file and can then follow it,
// optionally keeping only lines that contain a filter string such as a slug
// or run id.
package logs
