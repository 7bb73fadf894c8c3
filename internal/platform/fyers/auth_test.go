package fyers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spikewatch/internal/domain"
)

// rfcSecret is the RFC 6238 SHA-1 test secret "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTPReferenceVectors(t *testing.T) {
	cases := map[int64]string{
		59:          "287082",
		1111111109:  "081804",
		1111111111:  "050471",
		1234567890:  "005924",
		2000000000:  "279037",
		20000000000: "353130",
	}
	for unix, want := range cases {
		got, err := totpNow(rfcSecret, time.Unix(unix, 0))
		require.NoError(t, err)
		assert.Equal(t, want, got, "at unix %d", unix)
	}
}

func TestTOTPBadSecret(t *testing.T) {
	_, err := totpNow("not base32!!", time.Now())
	require.Error(t, err)
}

func TestIsControlFrame(t *testing.T) {
	assert.True(t, IsControlFrame("cn"))
	assert.True(t, IsControlFrame("sub"))
	assert.True(t, IsControlFrame("ful"))
	assert.False(t, IsControlFrame(""))
	assert.False(t, IsControlFrame("sf"))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthenticateFlow(t *testing.T) {
	var steps []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		steps = append(steps, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))

		switch r.URL.Path {
		case "/send_login_otp":
			assert.Equal(t, "EH8TE9J6PZ", payload["fy_id"])
			json.NewEncoder(w).Encode(authResponse{Status: "ok", RequestKey: "rk-1"})
		case "/verify_otp":
			assert.Equal(t, "rk-1", payload["request_key"])
			assert.Len(t, payload["otp"], 6)
			json.NewEncoder(w).Encode(authResponse{Status: "ok", RequestKey: "rk-2"})
		case "/verify_pin":
			assert.Equal(t, "rk-2", payload["request_key"])
			assert.Equal(t, "1234", payload["identifier"])
			json.NewEncoder(w).Encode(authResponse{Status: "ok", RequestKey: "rk-3"})
		case "/token":
			assert.Equal(t, "EH8TE9J6PZ-100", payload["app_id"])
			json.NewEncoder(w).Encode(authResponse{Status: "ok", AccessToken: "access-123"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	a := NewAuthenticator(AuthConfig{
		ClientID:   "EH8TE9J6PZ-100",
		TOTPSecret: rfcSecret,
		PIN:        "1234",
		AuthHost:   srv.URL,
		APIHost:    srv.URL,
	}, discardLogger())

	tok, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.Token)
	assert.False(t, tok.IssuedAt.IsZero())
	assert.Equal(t, []string{"/send_login_otp", "/verify_otp", "/verify_pin", "/token"}, steps)

	assert.Equal(t, "EH8TE9J6PZ-100:access-123", a.StreamToken(tok))
}

func TestAuthenticateBrokerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(authResponse{Status: "error", Message: "invalid otp"})
	}))
	defer srv.Close()

	a := NewAuthenticator(AuthConfig{
		ClientID:   "EH8TE9J6PZ-100",
		TOTPSecret: rfcSecret,
		PIN:        "1234",
		AuthHost:   srv.URL,
		APIHost:    srv.URL,
	}, discardLogger())

	_, err := a.Authenticate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid otp")
}

func TestValidate(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profile", r.URL.Path)
		assert.Equal(t, "EH8TE9J6PZ-100:tok", r.Header.Get("Authorization"))
		w.WriteHeader(status)
	}))
	defer srv.Close()

	a := NewAuthenticator(AuthConfig{
		ClientID: "EH8TE9J6PZ-100",
		APIHost:  srv.URL,
	}, discardLogger())
	tok := domain.AccessToken{Token: "tok"}

	require.NoError(t, a.Validate(context.Background(), tok))

	status = http.StatusUnauthorized
	err := a.Validate(context.Background(), tok)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
