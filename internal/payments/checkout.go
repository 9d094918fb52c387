// Package payments holds both sides of the paywall: the outbound checkout
// session client and the inbound confirmation webhook reconciler. The
// provider contract is one form-encoded POST out and one signed JSON
// event in.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetwizard/internal/cache"
	"budgetwizard/internal/core"
)

// CheckoutConfig configures the checkout session client.
type CheckoutConfig struct {
	BaseURL         string
	APIKey          string
	UnitAmountCents int64
	Currency        string
	ProductLabel    string
}

// CheckoutClient creates hosted payment sessions that carry (user, period)
// as correlation metadata. The provider echoes that metadata verbatim in
// its confirmation event, so no local session table is needed.
type CheckoutClient struct {
	cfg        CheckoutConfig
	httpClient *http.Client
	urls       *cache.LRUCache[string]
}

// NewCheckoutClient builds a client with its own request timeout and a
// short-lived URL cache, so repeated "unlock" taps reuse the open session
// instead of creating a new one per tap.
func NewCheckoutClient(cfg CheckoutConfig, urls *cache.LRUCache[string]) *CheckoutClient {
	return &CheckoutClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		urls:       urls,
	}
}

type sessionResponse struct {
	URL   string `json:"url"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateSession requests a payment-session URL for unlocking the given
// period. No local state is mutated; on provider error the error is
// returned for the router to surface as a short message.
func (c *CheckoutClient) CreateSession(ctx context.Context, user core.UserID, period string) (string, error) {
	key := strconv.FormatInt(int64(user), 10) + "|" + period
	if c.urls != nil {
		if cached, ok := c.urls.Get(key); ok {
			return cached, nil
		}
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", uuid.NewString())
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", c.cfg.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(c.cfg.UnitAmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", c.cfg.ProductLabel)
	form.Set("metadata[user_id]", strconv.FormatInt(int64(user), 10))
	form.Set("metadata[period]", period)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/checkout/sessions",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("checkout request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read checkout response: %w", err)
	}

	var sr sessionResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("decode checkout response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if sr.Error.Message != "" {
			return "", fmt.Errorf("checkout provider: %s", sr.Error.Message)
		}
		return "", fmt.Errorf("checkout provider: status %d", resp.StatusCode)
	}
	if sr.URL == "" {
		return "", fmt.Errorf("checkout provider: empty session url")
	}

	if c.urls != nil {
		c.urls.Set(key, sr.URL)
	}
	return sr.URL, nil
}
