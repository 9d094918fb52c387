// Package core provides the domain types, free-text expense parsing and
// aggregation used by the conversation router.
//
// Parsing is forgiving: a line is an amount followed by an optional
// category and notes. Only a non-numeric leading token makes a line
// fail, and that failure is a classification, not an error that aborts
// a batch.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned when a line carries an amount and nothing else.
const DefaultCategory = "uncategorized"

// Candidate is a parsed expense line awaiting append to a ledger.
type Candidate struct {
	Amount   decimal.Decimal
	Category string
	Notes    string
}

// Filler words dropped from the front of the category tokens, so that
// "12 for coffee" and "12 coffee" land in the same category.
var stopwords = map[string]struct{}{
	"for": {}, "on": {}, "to": {}, "the": {}, "a": {}, "an": {}, "my": {},
}

// ParseLine parses one line of free text into an expense candidate.
//
// The first whitespace-delimited token must be numeric after stripping a
// leading "$" and thousands-separator commas. Leading stopwords are then
// dropped from the remaining tokens; the first survivor becomes the
// category (casing preserved verbatim, so "Rent" and "rent" stay distinct
// categories) and the rest, space-joined, become the notes.
func ParseLine(text string) (Candidate, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Candidate{}, ErrEmptyLine
	}

	raw := strings.TrimPrefix(fields[0], "$")
	raw = strings.ReplaceAll(raw, ",", "")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return Candidate{}, ErrNotNumeric
	}

	rest := fields[1:]
	for len(rest) > 0 {
		if _, ok := stopwords[strings.ToLower(rest[0])]; !ok {
			break
		}
		rest = rest[1:]
	}

	c := Candidate{Amount: amount, Category: DefaultCategory}
	if len(rest) > 0 {
		c.Category = rest[0]
		c.Notes = strings.Join(rest[1:], " ")
	}
	return c, nil
}

// ParseBlock splits text on line breaks and runs every non-blank line
// through ParseLine. Successes and the raw text of failing lines are both
// returned in input order, so the caller can report exactly which lines
// were skipped.
func ParseBlock(text string) (candidates []Candidate, failures []string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		c, err := ParseLine(line)
		if err != nil {
			failures = append(failures, line)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, failures
}
