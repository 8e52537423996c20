package app

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const tracedQueryMaxLen = 512

// Bulk upserts of account bids and owned players bind long placeholder runs.
var placeholderRun = regexp.MustCompile(`\$\d+(?:, ?\$\d+){3,}`)

// traceQuery flattens a statement onto one line for the db.statement span attribute.
func traceQuery(query string) string {
	flat := strings.Join(strings.Fields(query), " ")
	flat = placeholderRun.ReplaceAllStringFunc(flat, func(run string) string {
		first, _, _ := strings.Cut(run, ",")
		return first + ", ..."
	})
	if len(flat) <= tracedQueryMaxLen {
		return flat
	}

	cut := tracedQueryMaxLen
	for cut > 0 && !utf8.RuneStart(flat[cut]) {
		cut--
	}
	return flat[:cut] + "..."
}
