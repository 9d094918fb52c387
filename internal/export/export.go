// Package export decides which ledger rows a user gets to download and
// serializes them into the attachment artifact. The gate itself is a pure
// function of (entries, unlocked) and knows nothing about file formats.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"budgetwizard/internal/core"
)

// SampleBanner is the first row of a locked export, announcing that the
// file is a truncated sample.
const SampleBanner = "SAMPLE EXPORT - pay $1 via 'unlock' to download your full ledger"

// Gate applies the paywall to a period's entries. Unlocked users get every
// entry in insertion order; locked users get the first half (minimum one
// entry when any exist) and isSample is set.
func Gate(entries []core.Entry, unlocked bool) (rows []core.Entry, isSample bool) {
	if unlocked || len(entries) == 0 {
		return entries, false
	}
	n := len(entries) / 2
	if n < 1 {
		n = 1
	}
	return entries[:n], true
}

// Filename names the export artifact, distinguishing full downloads from
// samples.
func Filename(period string, sample bool) string {
	if sample {
		return fmt.Sprintf("budget_wizard_sample_%s.csv", period)
	}
	return fmt.Sprintf("budget_wizard_expenses_%s.csv", period)
}

// BuildCSV serializes gated rows into the spreadsheet artifact. Sample
// exports carry the banner row above the header.
func BuildCSV(period string, rows []core.Entry, sample bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if sample {
		if err := w.Write([]string{SampleBanner}); err != nil {
			return nil, fmt.Errorf("write banner: %w", err)
		}
	}
	if err := w.Write([]string{"Period", "Timestamp (UTC)", "Amount", "Category", "Notes"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, e := range rows {
		record := []string{
			period,
			e.CapturedAt.UTC().Format("2006-01-02 15:04:05"),
			e.Amount.StringFixed(2),
			e.Category,
			e.Notes,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
