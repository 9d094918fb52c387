package sheets

import (
	"context"

	"budgetwizard/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordArchiver appends paywall activity records (unlocks, exports)
	// to a spreadsheet for the finance audit trail.
	RecordArchiver interface {
		Archive(ctx context.Context, rec core.ActivityRecord) error
	}
)
