package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"budgetwizard/internal/core"
	"budgetwizard/internal/store"
)

// RecordPublisher forwards unlock records to the archive pipeline.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, rec core.ActivityRecord) error
}

// Event type and payment status a confirmation must carry to count.
const (
	eventTypeCompleted = "checkout.session.completed"
	statusPaid         = "paid"
)

// ConfirmationEvent is the signed payload delivered by the provider.
type ConfirmationEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			PaymentStatus string            `json:"payment_status"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// Reconciler correlates confirmation events back to (user, period) pairs
// and writes the unlock registry. It is the only writer of that registry.
type Reconciler struct {
	store       *store.Store
	secret      string
	resetPeriod bool
	events      RecordPublisher
	now         func() time.Time
}

// NewReconciler builds a reconciler. resetPeriod controls whether a
// confirmed payment also points the user's active period back at the
// paid-for period.
func NewReconciler(st *store.Store, secret string, resetPeriod bool, events RecordPublisher) *Reconciler {
	return &Reconciler{
		store:       st,
		secret:      secret,
		resetPeriod: resetPeriod,
		events:      events,
		now:         time.Now,
	}
}

// WithClock overrides the clock used for signature tolerance checks.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// HandleEvent processes one raw webhook delivery. A signature failure is
// returned as an error (the transport answers 400 and nothing is
// mutated); every other problem is a silent drop, since the event has no
// conversational context to report into.
func (r *Reconciler) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	// An empty secret would verify signatures anyone can compute.
	if r.secret == "" {
		return ErrNoSecret
	}
	if err := VerifySignature(payload, sigHeader, r.secret, r.now()); err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}

	var ev ConfirmationEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		slog.WarnContext(ctx, "Dropping undecodable confirmation event", "error", err)
		return nil
	}
	if ev.Type != eventTypeCompleted || ev.Data.Object.PaymentStatus != statusPaid {
		slog.DebugContext(ctx, "Ignoring confirmation event",
			"event_id", ev.ID,
			"type", ev.Type,
			"payment_status", ev.Data.Object.PaymentStatus)
		return nil
	}

	meta := ev.Data.Object.Metadata
	userRaw, period := meta["user_id"], meta["period"]
	uid, err := strconv.ParseInt(userRaw, 10, 64)
	if err != nil || !core.ValidPeriod(period) {
		slog.WarnContext(ctx, "Dropping confirmation with malformed metadata",
			"event_id", ev.ID,
			"user_id", userRaw,
			"period", period)
		return nil
	}
	user := core.UserID(uid)

	r.store.Unlock(user, period)
	if r.resetPeriod {
		r.store.SetActivePeriod(user, period)
	}
	slog.InfoContext(ctx, "Period unlocked",
		"event_id", ev.ID,
		"user_id", uid,
		"period", period,
		"period_reset", r.resetPeriod)

	if r.events != nil {
		rec := core.ActivityRecord{
			Kind:   core.RecordKindUnlock,
			UserID: user,
			Period: period,
			At:     r.now(),
		}
		if err := r.events.PublishRecord(ctx, rec); err != nil {
			// Archive is best effort; the unlock itself already landed.
			slog.ErrorContext(ctx, "Failed to publish unlock record",
				"error", err, "user_id", uid, "period", period)
		}
	}
	return nil
}
