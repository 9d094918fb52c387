package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"budgetwizard/internal/bot"
	"budgetwizard/internal/payments"
	"budgetwizard/internal/store"
)

const testSecret = "whsec_test"

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	st := store.NewWithClock(func() time.Time { return now })
	router := bot.New(st, nil, nil)
	reconciler := payments.NewReconciler(st, testSecret, true, nil).
		WithClock(func() time.Time { return now })

	srv := NewServer(":0", router, reconciler)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return ts, st
}

func postMessage(t *testing.T, ts *httptest.Server, userID int64, text string) outboundReply {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"user_id": userID, "text": text, "timestamp": time.Now()})
	resp, err := http.Post(ts.URL+"/v1/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out outboundReply
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return out
}

func TestMessageRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)

	postMessage(t, ts, 1, "1200 rent")
	postMessage(t, ts, 1, "500 food")
	reply := postMessage(t, ts, 1, "view")

	if !strings.Contains(reply.Text, "1700.00") {
		t.Fatalf("view reply = %q", reply.Text)
	}
}

func TestMessageExportAttachment(t *testing.T) {
	ts, st := newTestServer(t)
	st.Unlock(1, "2024-03")

	postMessage(t, ts, 1, "12.50 groceries")
	reply := postMessage(t, ts, 1, "export")

	if reply.File == nil {
		t.Fatal("export reply has no file")
	}
	content, err := base64.StdEncoding.DecodeString(reply.File.Content)
	if err != nil {
		t.Fatalf("decode attachment: %v", err)
	}
	if !strings.Contains(string(content), "groceries") {
		t.Fatalf("attachment content:\n%s", content)
	}
}

func TestMessageBadPayload(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/v1/messages", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebhookUnlocks(t *testing.T) {
	ts, st := newTestServer(t)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed",` +
		`"data":{"object":{"payment_status":"paid","metadata":{"user_id":"7","period":"2024-02"}}}}`)
	sig := payments.Sign(payload, testSecret, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/payments/webhook", bytes.NewReader(payload))
	req.Header.Set(payments.SignatureHeader, sig)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if !st.IsUnlocked(7, "2024-02") {
		t.Fatal("webhook did not unlock period")
	}
}

func TestWebhookBadSignature(t *testing.T) {
	ts, st := newTestServer(t)

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed",` +
		`"data":{"object":{"payment_status":"paid","metadata":{"user_id":"7","period":"2024-02"}}}}`)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/payments/webhook", bytes.NewReader(payload))
	req.Header.Set(payments.SignatureHeader, "t=1,v1=deadbeef")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if st.IsUnlocked(7, "2024-02") {
		t.Fatal("unverified webhook mutated state")
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, path := range []string{"/v1/messages", "/v1/payments/webhook"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("%s status = %d, want 405", path, resp.StatusCode)
		}
	}
}

func TestRateLimitAppliesToMessages(t *testing.T) {
	ts, _ := newTestServer(t)

	limited := false
	for i := 0; i < 70; i++ {
		body, _ := json.Marshal(map[string]any{"user_id": 1, "text": fmt.Sprintf("%d spam", i)})
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/messages", bytes.NewReader(body))
		req.Header.Set("X-Forwarded-For", "203.0.113.5")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("rate limiter never triggered")
	}
}
