package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultReplayWindow = 5 * time.Minute

// SignatureParams are the authentication fields the provider posts alongside
// every webhook delivery.
type SignatureParams struct {
	Timestamp string
	Token     string
	Signature string
}

type Verifier interface {
	Verify(ctx context.Context, params SignatureParams) error
}

// SignatureVerifier authenticates provider calls by recomputing
// HMAC-SHA256(secret, timestamp+token) and comparing in constant time.
// Deliveries whose timestamp falls outside the replay window are rejected
// even when the digest matches.
type SignatureVerifier struct {
	Secret       string
	ReplayWindow time.Duration
	Now          func() time.Time
}

func NewSignatureVerifier(secret string) SignatureVerifier {
	return SignatureVerifier{
		Secret:       strings.TrimSpace(secret),
		ReplayWindow: defaultReplayWindow,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (v SignatureVerifier) Verify(_ context.Context, params SignatureParams) error {
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhook: signature secret is required")
	}
	timestamp := strings.TrimSpace(params.Timestamp)
	token := strings.TrimSpace(params.Token)
	signature := strings.TrimSpace(params.Signature)
	if timestamp == "" || token == "" || signature == "" {
		return fmt.Errorf("webhook: timestamp, token, and signature are required")
	}

	epoch, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("webhook: parse signature timestamp: %w", err)
	}

	now := time.Now().UTC()
	if v.Now != nil {
		now = v.Now().UTC()
	}
	window := v.ReplayWindow
	if window <= 0 {
		window = defaultReplayWindow
	}
	delta := now.Sub(time.Unix(epoch, 0).UTC())
	if delta < 0 {
		delta = -delta
	}
	if delta > window {
		return fmt.Errorf("webhook: signature timestamp outside replay window")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp + token))
	expected := mac.Sum(nil)

	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("webhook: decode hex signature: %w", err)
	}
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return fmt.Errorf("webhook: signature verification failed")
	}
	return nil
}

// Sign computes the hex signature for a timestamp/token pair. Exposed for
// transport fakes and tests.
func Sign(secret string, timestamp string, token string) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	_, _ = mac.Write([]byte(strings.TrimSpace(timestamp) + strings.TrimSpace(token)))
	return hex.EncodeToString(mac.Sum(nil))
}
