package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"budgetwizard/internal/store"
)

var webhookNow = time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC)

func confirmationPayload(userID, period, eventType, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": %q,
		"data": {"object": {"payment_status": %q, "metadata": {"user_id": %q, "period": %q}}}
	}`, eventType, status, userID, period))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"hello":"world"}`)
	secret := "whsec_test"

	header := Sign(payload, secret, webhookNow)
	if err := VerifySignature(payload, header, secret, webhookNow); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	if err := VerifySignature(payload, header, "other_secret", webhookNow); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("wrong secret: %v", err)
	}
	if err := VerifySignature([]byte("tampered"), header, secret, webhookNow); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("tampered payload: %v", err)
	}
	if err := VerifySignature(payload, "garbage", secret, webhookNow); err == nil {
		t.Fatal("garbage header accepted")
	}
	if err := VerifySignature(payload, header, secret, webhookNow.Add(10*time.Minute)); !errors.Is(err, ErrStaleSignature) {
		t.Fatalf("stale signature: %v", err)
	}
}

func newTestReconciler(resetPeriod bool) (*Reconciler, *store.Store) {
	st := store.NewWithClock(func() time.Time { return webhookNow })
	r := NewReconciler(st, "whsec_test", resetPeriod, nil).
		WithClock(func() time.Time { return webhookNow })
	return r, st
}

func TestHandleEventUnlocksAndResetsPeriod(t *testing.T) {
	r, st := newTestReconciler(true)

	// User 42 has moved on to April; the paid-for period is March.
	st.SetActivePeriod(42, "2024-04")

	payload := confirmationPayload("42", "2024-03", "checkout.session.completed", "paid")
	sig := Sign(payload, "whsec_test", webhookNow)
	if err := r.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if !st.IsUnlocked(42, "2024-03") {
		t.Fatal("period not unlocked")
	}
	if got := st.ActivePeriod(42); got != "2024-03" {
		t.Fatalf("active period = %s, want 2024-03", got)
	}
}

func TestHandleEventWithoutPeriodReset(t *testing.T) {
	r, st := newTestReconciler(false)
	st.SetActivePeriod(42, "2024-04")

	payload := confirmationPayload("42", "2024-03", "checkout.session.completed", "paid")
	sig := Sign(payload, "whsec_test", webhookNow)
	if err := r.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if !st.IsUnlocked(42, "2024-03") {
		t.Fatal("period not unlocked")
	}
	if got := st.ActivePeriod(42); got != "2024-04" {
		t.Fatalf("active period = %s, want untouched 2024-04", got)
	}
}

func TestHandleEventRejectsWhenSecretUnset(t *testing.T) {
	st := store.NewWithClock(func() time.Time { return webhookNow })
	r := NewReconciler(st, "", true, nil).
		WithClock(func() time.Time { return webhookNow })

	// With no secret configured, a signature over the empty key is one
	// anyone can compute; the event must be rejected outright.
	payload := confirmationPayload("42", "2024-03", "checkout.session.completed", "paid")
	sig := Sign(payload, "", webhookNow)
	if err := r.HandleEvent(context.Background(), payload, sig); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("HandleEvent with empty secret: %v", err)
	}
	if st.IsUnlocked(42, "2024-03") {
		t.Fatal("forged event unlocked a period")
	}
}

func TestHandleEventRejectsBadSignature(t *testing.T) {
	r, st := newTestReconciler(true)

	payload := confirmationPayload("42", "2024-03", "checkout.session.completed", "paid")
	sig := Sign(payload, "wrong_secret", webhookNow)
	if err := r.HandleEvent(context.Background(), payload, sig); err == nil {
		t.Fatal("bad signature accepted")
	}
	if st.IsUnlocked(42, "2024-03") {
		t.Fatal("unlock registry mutated by unverified event")
	}
}

func TestHandleEventIgnoresOtherEvents(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"wrong type", confirmationPayload("42", "2024-03", "checkout.session.expired", "paid")},
		{"unpaid", confirmationPayload("42", "2024-03", "checkout.session.completed", "unpaid")},
		{"bad user id", confirmationPayload("abc", "2024-03", "checkout.session.completed", "paid")},
		{"bad period", confirmationPayload("42", "03-2024", "checkout.session.completed", "paid")},
		{"missing metadata", []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"payment_status":"paid","metadata":{}}}}`)},
		{"not json", []byte(`not json at all`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, st := newTestReconciler(true)
			sig := Sign(tc.payload, "whsec_test", webhookNow)
			// Dropped events are not transport errors.
			if err := r.HandleEvent(context.Background(), tc.payload, sig); err != nil {
				t.Fatalf("HandleEvent: %v", err)
			}
			if st.IsUnlocked(42, "2024-03") {
				t.Fatal("unlock registry mutated")
			}
		})
	}
}
