// Package query implements the query parser: three regex-driven
// token extractions applied to a free-form search string, plus the filter
// synthesis that turns the parsed fields into engine filter clauses.
package query

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Parsed is the output of Parse.
type Parsed struct {
	Keywords []string
	Filters  []string
	Sort     string
	DateFrom *time.Time
	DateTo   *time.Time
	Source   string
}

var (
	dateRangeRe = regexp.MustCompile(`date:(\d{4}-\d{2}-\d{2})\.\.(\d{4}-\d{2}-\d{2})`)
	fromRe      = regexp.MustCompile(`from:(\w+)`)
	sortRe      = regexp.MustCompile(`sort:(date|relevance)`)
)

// Parse extracts date:, from:, and sort: tokens from q in that order,
// stripping each matched token from the working string; whatever
// whitespace-split tokens remain become Keywords. A malformed date range is
// left in place (not stripped) with both dates left nil.
func Parse(q string) Parsed {
	var p Parsed
	working := q

	if loc := dateRangeRe.FindStringSubmatchIndex(working); loc != nil {
		match := dateRangeRe.FindStringSubmatch(working)
		from, errFrom := time.Parse("2006-01-02", match[1])
		to, errTo := time.Parse("2006-01-02", match[2])
		if errFrom == nil && errTo == nil {
			if from.After(to) {
				from, to = to, from
			}
			p.DateFrom = &from
			p.DateTo = &to
			working = working[:loc[0]] + working[loc[1]:]
		}
		// on parse failure, leave the token in place and both dates nil
	}

	if loc := fromRe.FindStringSubmatchIndex(working); loc != nil {
		match := fromRe.FindStringSubmatch(working)
		p.Source = match[1]
		working = working[:loc[0]] + working[loc[1]:]
	}

	if loc := sortRe.FindStringSubmatchIndex(working); loc != nil {
		match := sortRe.FindStringSubmatch(working)
		p.Sort = match[1]
		working = working[:loc[0]] + working[loc[1]:]
	}

	for _, tok := range strings.Fields(working) {
		p.Keywords = append(p.Keywords, tok)
	}

	p.Filters = buildFilters(p)
	return p
}

// buildFilters synthesizes engine filter clauses from the parsed fields,
// order-preserving: date range first, then source.
func buildFilters(p Parsed) []string {
	var filters []string
	if p.DateFrom != nil && p.DateTo != nil {
		filters = append(filters, fmt.Sprintf("date >= %d AND date <= %d", p.DateFrom.Unix(), p.DateTo.Unix()))
	}
	if p.Source != "" {
		filters = append(filters, fmt.Sprintf(`chat_username = "%s"`, p.Source))
	}
	return filters
}
