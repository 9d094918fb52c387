package core

import (
	"errors"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Mode is the per-user conversational state. In ModeAdd bare text is
// interpreted as expense input; in ModeIdle it is not.
type Mode int

const (
	ModeIdle Mode = iota
	ModeAdd
)

type (
	// UserID is the opaque stable identifier supplied by the transport.
	UserID int64

	// Entry is an immutable expense record inside a period ledger.
	Entry struct {
		Amount     decimal.Decimal
		Category   string
		Notes      string
		CapturedAt time.Time
	}

	// ActivityRecord describes a paywall event (an unlock or an export)
	// destined for the archive spreadsheet.
	ActivityRecord struct {
		Kind   string // "unlock" or "export"
		UserID UserID
		Period string
		Rows   int
		Sample bool
		Total  string
		At     time.Time
	}
)

const (
	RecordKindUnlock = "unlock"
	RecordKindExport = "export"
)

var (
	ErrEmptyLine  = errors.New("empty line")
	ErrNotNumeric = errors.New("leading token is not numeric")
	ErrBadPeriod  = errors.New("malformed period")
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// PeriodOf derives the calendar-month period key ("YYYY-MM") for t.
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// ValidPeriod reports whether s is a well-formed "YYYY-MM" period key.
func ValidPeriod(s string) bool {
	return periodPattern.MatchString(s)
}
