// Package captcha verifies challenge tokens against a reCAPTCHA-compatible
// siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/order"
)

// Config holds the verifier endpoint and credentials. Separate secrets per
// source let web and mobile clients use different site keys.
type Config struct {
	URL     string            `default:"https://www.google.com/recaptcha/api/siteverify"`
	Secrets map[string]string `usage:"siteverify secret per captcha source"`
	Timeout time.Duration     `default:"5s"`
}

// Verifier calls the siteverify endpoint over HTTP.
type Verifier struct {
	cfg    Config
	client *http.Client
}

var _ order.CaptchaVerifier = (*Verifier)(nil)

// NewVerifier creates a Verifier with its own HTTP client.
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks a captcha token for the given source. A missing token, an
// unknown source or a failed verification all report order.ErrInvalidCaptcha;
// transport failures surface as-is so callers can distinguish an outage from
// a bad token.
func (v *Verifier) Verify(ctx context.Context, token, source, remoteIP string) error {
	if token == "" {
		return order.ErrInvalidCaptcha
	}
	secret, ok := v.cfg.Secrets[source]
	if !ok {
		return order.ErrInvalidCaptcha
	}

	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build siteverify request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "call siteverify")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("siteverify: unexpected status %d", resp.StatusCode)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.Wrap(err, "decode siteverify response")
	}
	if !result.Success {
		return order.ErrInvalidCaptcha
	}
	return nil
}
