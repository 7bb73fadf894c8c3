package fyers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spikewatch/internal/domain"
)

const (
	defaultAuthHost = "https://api-t2.fyers.in/vagator/v2"
	defaultAPIHost  = "https://api-t1.fyers.in/api/v3"
)

// AuthConfig holds the broker credentials for the TOTP login flow.
type AuthConfig struct {
	ClientID    string // e.g. "EH8TE9J6PZ-100"
	SecretKey   string
	RedirectURI string
	TOTPSecret  string
	PIN         string

	// AuthHost / APIHost override the production endpoints in tests.
	AuthHost string
	APIHost  string
}

// Authenticator drives the Fyers TOTP login flow and validates existing
// access tokens. It performs plain one-shot HTTP calls; retry policy
// belongs to the supervisor.
type Authenticator struct {
	cfg      AuthConfig
	authHost string
	apiHost  string
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthenticator creates an Authenticator with a 15-second HTTP timeout.
func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	authHost := cfg.AuthHost
	if authHost == "" {
		authHost = defaultAuthHost
	}
	apiHost := cfg.APIHost
	if apiHost == "" {
		apiHost = defaultAPIHost
	}
	return &Authenticator{
		cfg:      cfg,
		authHost: authHost,
		apiHost:  apiHost,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger.With(slog.String("component", "fyers_auth")),
		now:      time.Now,
	}
}

// fyID is the user identity portion of the client ID (before the app
// suffix).
func (a *Authenticator) fyID() string {
	if i := strings.IndexByte(a.cfg.ClientID, '-'); i > 0 {
		return a.cfg.ClientID[:i]
	}
	return a.cfg.ClientID
}

// Authenticate runs the full login flow: request a login OTP, answer it
// with the current TOTP, confirm the PIN, and exchange the session for an
// access token.
func (a *Authenticator) Authenticate(ctx context.Context) (domain.AccessToken, error) {
	otp, err := totpNow(a.cfg.TOTPSecret, a.now())
	if err != nil {
		return domain.AccessToken{}, err
	}

	var sendResp authResponse
	if err := a.post(ctx, a.authHost+"/send_login_otp", sendOTPRequest{
		FyID:  a.fyID(),
		AppID: "2",
	}, &sendResp); err != nil {
		return domain.AccessToken{}, fmt.Errorf("fyers: send login otp: %w", err)
	}

	var otpResp authResponse
	if err := a.post(ctx, a.authHost+"/verify_otp", verifyOTPRequest{
		RequestKey: sendResp.RequestKey,
		OTP:        otp,
	}, &otpResp); err != nil {
		return domain.AccessToken{}, fmt.Errorf("fyers: verify otp: %w", err)
	}

	var pinResp authResponse
	if err := a.post(ctx, a.authHost+"/verify_pin", verifyPINRequest{
		RequestKey: otpResp.RequestKey,
		Identity:   "pin",
		Identifier: a.cfg.PIN,
	}, &pinResp); err != nil {
		return domain.AccessToken{}, fmt.Errorf("fyers: verify pin: %w", err)
	}

	var tokResp authResponse
	if err := a.post(ctx, a.apiHost+"/token", tokenRequest{
		FyID:         a.fyID(),
		AppID:        a.cfg.ClientID,
		RedirectURI:  a.cfg.RedirectURI,
		ResponseType: "code",
		Scope:        "openid",
		State:        "spikewatch",
	}, &tokResp); err != nil {
		return domain.AccessToken{}, fmt.Errorf("fyers: exchange token: %w", err)
	}
	if tokResp.AccessToken == "" {
		return domain.AccessToken{}, fmt.Errorf("fyers: exchange token: empty access token in response")
	}

	issued := a.now()
	a.logger.Info("authenticated with broker",
		slog.String("client_id", a.cfg.ClientID),
		slog.Time("issued_at", issued),
	)
	return domain.AccessToken{Token: tokResp.AccessToken, IssuedAt: issued}, nil
}

// Validate checks that an access token is still accepted by the broker by
// fetching the account profile. Returns domain.ErrUnauthorized for a
// rejected token.
func (a *Authenticator) Validate(ctx context.Context, tok domain.AccessToken) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiHost+"/profile", nil)
	if err != nil {
		return fmt.Errorf("fyers: validate: create request: %w", err)
	}
	req.Header.Set("Authorization", a.StreamToken(tok))

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("fyers: validate: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("fyers: validate: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// StreamToken formats the token the way the data socket expects it.
func (a *Authenticator) StreamToken(tok domain.AccessToken) string {
	return a.cfg.ClientID + ":" + tok.Token
}

func (a *Authenticator) post(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if r, ok := out.(*authResponse); ok && r.Status != "" && r.Status != "ok" {
		return fmt.Errorf("broker rejected request: %s", r.Message)
	}
	return nil
}
