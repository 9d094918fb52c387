package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"budgetwizard/internal/core"
	"budgetwizard/internal/export"
)

const maxSkippedShown = 5

func (r *Router) handleReset(ctx context.Context, user core.UserID, _, _ string) Reply {
	r.store.ResetToNewPeriod(user)
	slog.InfoContext(ctx, "Ledger reset", "user_id", int64(user), "period", r.store.ActivePeriod(user))
	return Reply{Text: resetText}
}

func (r *Router) handleGreeting(_ context.Context, user core.UserID, _, _ string) Reply {
	r.store.SetMode(user, core.ModeAdd)
	r.store.ActivePeriod(user) // make sure the period exists before any append
	return Reply{Text: greetingText}
}

func (r *Router) handleExit(_ context.Context, user core.UserID, _, _ string) Reply {
	r.store.SetMode(user, core.ModeIdle)
	return Reply{Text: exitText}
}

func (r *Router) handleView(_ context.Context, user core.UserID, _, _ string) Reply {
	entries := r.store.Entries(user)
	if len(entries) == 0 {
		return Reply{Text: noExpensesText}
	}
	sum := core.Aggregate(entries)
	lines := []string{fmt.Sprintf("📊 Total: $%s", sum.Total.StringFixed(2))}
	for _, c := range sum.ByCategory {
		lines = append(lines, fmt.Sprintf(" - %s: $%s", c.Category, c.Total.StringFixed(2)))
	}
	return Reply{Text: strings.Join(lines, "\n")}
}

func (r *Router) handleBudget(_ context.Context, user core.UserID, _, _ string) Reply {
	entries := r.store.Entries(user)
	if len(entries) == 0 {
		return Reply{Text: noDataText}
	}
	sum := core.Aggregate(entries)

	days := int(r.now().Sub(sum.EarliestAt).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	avg := sum.Total.Div(decimal.NewFromInt(int64(days)))
	// Suggested cap: 70% of the average daily spend.
	capPerDay := avg.Mul(decimal.New(7, -1))

	text := fmt.Sprintf("🧮 Budget snapshot:\n"+
		"- Total spent: $%s\n"+
		"- Avg daily spend: $%s\n"+
		"- Suggested cap: $%s/day\n"+
		"Use export to download your data.",
		sum.Total.StringFixed(2), avg.StringFixed(2), capPerDay.StringFixed(2))
	return Reply{Text: text}
}

func (r *Router) handleExport(ctx context.Context, user core.UserID, _, _ string) Reply {
	entries := r.store.Entries(user)
	if len(entries) == 0 {
		return Reply{Text: noExportText}
	}
	period := r.store.ActivePeriod(user)
	unlocked := r.store.IsUnlocked(user, period)

	rows, sample := export.Gate(entries, unlocked)
	content, err := export.BuildCSV(period, rows, sample)
	if err != nil {
		slog.ErrorContext(ctx, "Export build failed", "error", err, "user_id", int64(user), "period", period)
		return Reply{Text: exportFailedText}
	}

	// The archived total is the full period total; Rows and Sample
	// already describe any truncation of the artifact itself.
	r.publishRecord(ctx, core.ActivityRecord{
		Kind:   core.RecordKindExport,
		UserID: user,
		Period: period,
		Rows:   len(rows),
		Sample: sample,
		Total:  core.Aggregate(entries).Total.StringFixed(2),
		At:     r.now(),
	})

	text := "✅ Export ready."
	caption := "Here is your full export."
	if sample {
		text = "🔒 This is a sample (first half only). Type unlock to get the full ledger."
		caption = "Sample export - unlock for the full ledger."
	}
	return Reply{
		Text: text,
		File: &File{
			Name:    export.Filename(period, sample),
			Caption: caption,
			Content: content,
		},
	}
}

func (r *Router) handleUnlock(ctx context.Context, user core.UserID, _, _ string) Reply {
	if r.checkout == nil {
		return Reply{Text: paymentsDisabledText}
	}
	period := r.store.ActivePeriod(user)
	url, err := r.checkout.CreateSession(ctx, user, period)
	if err != nil {
		slog.ErrorContext(ctx, "Checkout session failed", "error", err, "user_id", int64(user), "period", period)
		return Reply{Text: fmt.Sprintf("⚠️ Could not start checkout: %v", err)}
	}
	return Reply{Text: fmt.Sprintf("Unlock the full report for $1:\n%s\nYour report unlocks here automatically once payment completes.", url)}
}

func (r *Router) handleAddPrefix(ctx context.Context, user core.UserID, _, raw string) Reply {
	remainder := raw[len("add "):]
	candidates, failures := core.ParseBlock(remainder)
	if len(candidates) == 0 {
		return Reply{Text: addUsageText}
	}
	r.appendAll(user, candidates)
	slog.InfoContext(ctx, "Expenses added", "user_id", int64(user), "count", len(candidates), "skipped", len(failures))

	if len(candidates) == 1 && len(failures) == 0 {
		c := candidates[0]
		return Reply{Text: fmt.Sprintf("✅ Added $%s to '%s'. Next expense?", c.Amount.StringFixed(2), c.Category)}
	}
	text := fmt.Sprintf("✅ Added %d expenses.", len(candidates))
	return Reply{Text: text + skippedReport(failures)}
}

func (r *Router) handleBareBlock(ctx context.Context, user core.UserID, raw string) Reply {
	candidates, failures := core.ParseBlock(raw)
	if len(candidates) == 0 {
		return Reply{Text: formatHintText}
	}
	r.appendAll(user, candidates)
	slog.InfoContext(ctx, "Expenses added", "user_id", int64(user), "count", len(candidates), "skipped", len(failures))

	text := "✅ Added. Next expense or type done."
	if len(candidates) > 1 {
		text = fmt.Sprintf("✅ Added %d expenses. Next expense or type done.", len(candidates))
	}
	return Reply{Text: text + skippedReport(failures)}
}

func (r *Router) appendAll(user core.UserID, candidates []core.Candidate) {
	for _, c := range candidates {
		r.store.Append(user, c.Amount, c.Category, c.Notes)
	}
}

// skippedReport lists the first few raw lines a batch could not parse and
// counts the rest.
func skippedReport(failures []string) string {
	if len(failures) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\nSkipped %d line(s) (first token not numeric):", len(failures))
	shown := failures
	if len(shown) > maxSkippedShown {
		shown = shown[:maxSkippedShown]
	}
	for _, line := range shown {
		fmt.Fprintf(&b, "\n - %s", strings.TrimSpace(line))
	}
	if extra := len(failures) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "\n …and %d more", extra)
	}
	return b.String()
}

func (r *Router) publishRecord(ctx context.Context, rec core.ActivityRecord) {
	if r.events == nil {
		return
	}
	if err := r.events.PublishRecord(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "Failed to publish activity record",
			"error", err, "kind", rec.Kind, "user_id", int64(rec.UserID))
	}
}
