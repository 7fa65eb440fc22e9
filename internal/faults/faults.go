// Package faults defines the error markers shared by the pipeline stages.
//
// Stage code wraps its failures with Wrap so callers can classify them with
// errors.Is while the message still carries the stage and operation that
// produced them.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNavigation    = errors.New("navigation error")
	ErrExtraction    = errors.New("extraction failure")
	ErrTimeout       = errors.New("resolution timeout")
	ErrNoMatch       = errors.New("no match")
	ErrDownload      = errors.New("download failure")
	ErrPersistence   = errors.New("persistence error")
	ErrSession       = errors.New("session error")
	ErrConfiguration = errors.New("configuration error")
)

// Outcome labels recorded in the run journal.
const (
	OutcomeDownloaded = "downloaded"
	OutcomeSkipped    = "skipped"
	OutcomeTimedOut   = "timed_out"
	OutcomeNoMatch    = "no_match"
	OutcomeDownload   = "download_failed"
	OutcomeNavigation = "navigation_failed"
	OutcomeFailed     = "failed"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. A nil marker defaults to
// ErrNavigation since every stage starts by driving the browser.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrNavigation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Outcome maps a stage error to the journal outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeDownloaded
	case errors.Is(err, ErrTimeout):
		return OutcomeTimedOut
	case errors.Is(err, ErrNoMatch):
		return OutcomeNoMatch
	case errors.Is(err, ErrDownload), errors.Is(err, ErrPersistence):
		return OutcomeDownload
	case errors.Is(err, ErrNavigation):
		return OutcomeNavigation
	default:
		return OutcomeFailed
	}
}

// Fatal reports whether err should stop the whole run rather than a single item.
func Fatal(err error) bool {
	return errors.Is(err, ErrSession) || errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
