package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/text"
)

func failedCount(w io.Writer, n int) string {
	if n == 0 {
		return "0"
	}
	return colorize(w, fmt.Sprint(n), text.FgRed)
}

func passLabel(w io.Writer, passed, optional bool) string {
	switch {
	case passed:
		return colorize(w, "ok", text.FgGreen)
	case optional:
		return colorize(w, "warn", text.FgYellow)
	default:
		return colorize(w, "FAIL", text.FgRed, text.Bold)
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
