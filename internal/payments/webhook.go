package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the confirmation event signature:
// "t=<unix>,v1=<hex hmac-sha256 of '<t>.<body>'>".
const SignatureHeader = "Wizard-Signature"

// Events older or newer than this are rejected to limit replay.
const signatureTolerance = 5 * time.Minute

var (
	ErrBadSignature   = errors.New("signature mismatch")
	ErrStaleSignature = errors.New("signature timestamp outside tolerance")
	ErrNoSecret       = errors.New("webhook secret not configured")
)

// VerifySignature checks the webhook signature header against the raw
// payload. It must pass before any payload byte is trusted.
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	var ts int64
	var sig []byte
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("parse signature timestamp: %w", err)
			}
			ts = n
		case "v1":
			b, err := hex.DecodeString(v)
			if err != nil {
				return fmt.Errorf("decode signature: %w", err)
			}
			sig = b
		}
	}
	if ts == 0 || len(sig) == 0 {
		return ErrBadSignature
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrStaleSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return ErrBadSignature
	}
	return nil
}

// Sign produces a signature header for the given payload. The bot only
// verifies; this is here for tests and local tooling.
func Sign(payload []byte, secret string, now time.Time) string {
	ts := now.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
