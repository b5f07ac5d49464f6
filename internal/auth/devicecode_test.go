package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOAuth(t *testing.T, handler http.Handler) *OAuthClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOAuthClient("tenant-1", "client-1", "https://search.example.com", WithAuthorityBaseURL(srv.URL))
}

func writeOAuthJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestStartDeviceFlow(t *testing.T) {
	var gotPath string
	oauth := newTestOAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "https://search.example.com", r.PostForm.Get("resource"))
		assert.Equal(t, "user_impersonation", r.PostForm.Get("scope"))

		writeOAuthJSON(t, w, http.StatusOK, map[string]any{
			"device_code":      "dc-1",
			"user_code":        "ABCD1234",
			"verification_uri": "https://microsoft.com/devicelogin",
			"interval":         7,
			"expires_in":       600,
		})
	}))

	dc, err := oauth.StartDeviceFlow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/tenant-1/oauth2/v2.0/devicecode", gotPath)
	assert.Equal(t, "dc-1", dc.DeviceCode)
	assert.Equal(t, "ABCD1234", dc.UserCode)
	assert.Equal(t, 7, dc.Interval)
	assert.Equal(t, 600, dc.ExpiresIn)
}

func TestStartDeviceFlowDefaults(t *testing.T) {
	oauth := newTestOAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeOAuthJSON(t, w, http.StatusOK, map[string]any{"device_code": "dc-1"})
	}))

	dc, err := oauth.StartDeviceFlow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, dc.Interval)
	assert.Equal(t, 900, dc.ExpiresIn)
}

func TestStartDeviceFlowRejected(t *testing.T) {
	oauth := newTestOAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeOAuthJSON(t, w, http.StatusBadRequest, map[string]string{
			"error":             "unauthorized_client",
			"error_description": "client not allowed",
		})
	}))

	_, err := oauth.StartDeviceFlow(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "unauthorized_client", authErr.Code)
}

func TestPollDeviceTokenPendingThenSuccess(t *testing.T) {
	var polls atomic.Int32
	oauth := newTestOAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "dc-1", r.PostForm.Get("device_code"))

		switch polls.Add(1) {
		case 1:
			writeOAuthJSON(t, w, http.StatusBadRequest, map[string]string{"error": "authorization_pending"})
		case 2:
			writeOAuthJSON(t, w, http.StatusBadRequest, map[string]string{"error": "slow_down"})
		default:
			writeOAuthJSON(t, w, http.StatusOK, map[string]any{
				"access_token":  "at-1",
				"refresh_token": "rt-1",
				"expires_in":    3600,
			})
		}
	}))

	// Interval 0 keeps the poll loop fast under test.
	tr, err := oauth.PollDeviceToken(context.Background(), &DeviceCode{DeviceCode: "dc-1", ExpiresIn: 30})
	require.NoError(t, err)
	assert.Equal(t, "at-1", tr.AccessToken)
	assert.Equal(t, "rt-1", tr.RefreshToken)
	assert.Equal(t, int32(3), polls.Load())
}

func TestPollDeviceTokenDenied(t *testing.T) {
	oauth := newTestOAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeOAuthJSON(t, w, http.StatusBadRequest, map[string]string{
			"error":             "access_denied",
			"error_description": "user declined",
		})
	}))

	_, err := oauth.PollDeviceToken(context.Background(), &DeviceCode{DeviceCode: "dc-1", ExpiresIn: 30})
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "access_denied", authErr.Code)
}

func TestPollDeviceTokenExpires(t *testing.T) {
	oauth := newTestOAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeOAuthJSON(t, w, http.StatusBadRequest, map[string]string{"error": "authorization_pending"})
	}))

	// Deadline already in the past: the first pending poll ends the flow.
	_, err := oauth.PollDeviceToken(context.Background(), &DeviceCode{DeviceCode: "dc-1", ExpiresIn: -1})
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "expired_token", authErr.Code)
}

func TestPollDeviceTokenCanceled(t *testing.T) {
	oauth := newTestOAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeOAuthJSON(t, w, http.StatusBadRequest, map[string]string{"error": "authorization_pending"})
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := oauth.PollDeviceToken(ctx, &DeviceCode{DeviceCode: "dc-1", ExpiresIn: 30})
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, authErr.Err, context.Canceled)
}

func TestRefresh(t *testing.T) {
	oauth := newTestOAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenant-1/oauth2/v2.0/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "https://search.example.com", r.PostForm.Get("resource"))
		assert.Equal(t, "user_impersonation", r.PostForm.Get("scope"))

		writeOAuthJSON(t, w, http.StatusOK, map[string]any{
			"access_token":  "at-2",
			"refresh_token": "rt-2",
			"expires_in":    3600,
		})
	}))

	tr, err := oauth.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", tr.AccessToken)
	assert.Equal(t, "rt-2", tr.RefreshToken)
}

func TestRefreshRejected(t *testing.T) {
	oauth := newTestOAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeOAuthJSON(t, w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "refresh token revoked",
		})
	}))

	_, err := oauth.Refresh(context.Background(), "rt-1")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid_grant", authErr.Code)
}
