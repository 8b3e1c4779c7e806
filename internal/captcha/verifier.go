package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	wax_errors "wax-intake/pkg/errors"
)

const defaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Verifier calls the external siteverify service and applies the
// configured minimum score. A transport or decode failure is treated
// as rejection material (fail closed), never as a pass.
type Verifier struct {
	secret    string
	minScore  float64
	verifyURL string
	client    *http.Client
}

// Result carries the verdict plus the raw score for logging.
type Result struct {
	OK      bool
	Skipped bool
	Score   float64
}

func NewVerifier(secret string, minScore float64) *Verifier {
	return &Verifier{
		secret:    secret,
		minScore:  minScore,
		verifyURL: defaultVerifyURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewVerifierWithURL points the verifier at a non-default endpoint.
// Used by tests against httptest servers.
func NewVerifierWithURL(secret string, minScore float64, verifyURL string) *Verifier {
	v := NewVerifier(secret, minScore)
	v.verifyURL = verifyURL
	return v
}

// Enabled reports whether a secret is configured at all.
func (v *Verifier) Enabled() bool {
	return v.secret != ""
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify makes a single attempt against the verification service.
// There is no retry; the caller's client bears resubmission.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (Result, error) {
	if !v.Enabled() {
		return Result{OK: true, Skipped: true}, nil
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", wax_errors.ErrCaptchaUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", wax_errors.ErrCaptchaUpstream, err)
	}
	defer resp.Body.Close()

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("%w: %v", wax_errors.ErrCaptchaUpstream, err)
	}

	if !body.Success || body.Score < v.minScore {
		return Result{OK: false, Score: body.Score}, nil
	}
	return Result{OK: true, Score: body.Score}, nil
}
