package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// AuthError is a hard authentication failure: the device flow was
// exhausted or the token endpoint rejected the credentials. Fatal to a
// run, since nothing can succeed without a token.
type AuthError struct {
	Code string // OAuth error code when the server supplied one
	Err  error
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authentication failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// DeviceCode is the authorization grant handed back by the devicecode
// endpoint, shown to the user while the process polls for completion.
type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	Message         string `json:"message"`
	Interval        int    `json:"interval"`
	ExpiresIn       int    `json:"expires_in"`
}

// TokenResponse is the token endpoint's success payload, shared by the
// device-code and refresh-token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

type oauthErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// OAuthClient speaks the OAuth device-code and refresh-token grants
// against the tenant's authorization endpoints.
type OAuthClient struct {
	tenantID string
	clientID string
	resource string
	baseURL  string
	http     *http.Client
}

// OAuthOption configures the OAuth client.
type OAuthOption func(*OAuthClient)

// WithAuthorityBaseURL overrides the login authority (for testing).
func WithAuthorityBaseURL(u string) OAuthOption {
	return func(c *OAuthClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) OAuthOption {
	return func(c *OAuthClient) {
		c.http = hc
	}
}

// NewOAuthClient creates an OAuth client for the given tenant.
func NewOAuthClient(tenantID, clientID, resource string, opts ...OAuthOption) *OAuthClient {
	c := &OAuthClient{
		tenantID: tenantID,
		clientID: clientID,
		resource: resource,
		baseURL:  "https://login.microsoftonline.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OAuthClient) deviceCodeURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/devicecode", c.baseURL, c.tenantID)
}

func (c *OAuthClient) tokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.baseURL, c.tenantID)
}

func (c *OAuthClient) postForm(ctx context.Context, endpoint string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, eris.Wrap(err, "auth: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, eris.Wrap(err, "auth: post form")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, eris.Wrap(err, "auth: read response")
	}
	return resp.StatusCode, body, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"refresh_token": {refreshToken},
		"resource":      {c.resource},
		"scope":         {"user_impersonation"},
	}

	status, body, err := c.postForm(ctx, c.tokenURL(), form)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		var oe oauthErrorResponse
		_ = json.Unmarshal(body, &oe)
		return nil, &AuthError{Code: oe.Error, Err: eris.Errorf("auth: refresh grant rejected (HTTP %d): %s", status, oe.Description)}
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, eris.Wrap(err, "auth: parse token response")
	}
	return &tr, nil
}

// StartDeviceFlow requests a device code for interactive sign-in.
func (c *OAuthClient) StartDeviceFlow(ctx context.Context) (*DeviceCode, error) {
	form := url.Values{
		"client_id": {c.clientID},
		"resource":  {c.resource},
		"scope":     {"user_impersonation"},
	}

	status, body, err := c.postForm(ctx, c.deviceCodeURL(), form)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		var oe oauthErrorResponse
		_ = json.Unmarshal(body, &oe)
		return nil, &AuthError{Code: oe.Error, Err: eris.Errorf("auth: device code request rejected (HTTP %d): %s", status, oe.Description)}
	}

	var dc DeviceCode
	if err := json.Unmarshal(body, &dc); err != nil {
		return nil, eris.Wrap(err, "auth: parse device code response")
	}
	if dc.Interval <= 0 {
		dc.Interval = 5
	}
	if dc.ExpiresIn <= 0 {
		dc.ExpiresIn = 900
	}
	return &dc, nil
}

// PollDeviceToken polls the token endpoint until the user completes
// sign-in, the flow expires, or the context is canceled.
// authorization_pending continues at the server interval; slow_down
// doubles it; any other error ends the flow.
func (c *OAuthClient) PollDeviceToken(ctx context.Context, dc *DeviceCode) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"client_id":   {c.clientID},
		"device_code": {dc.DeviceCode},
	}

	interval := time.Duration(dc.Interval) * time.Second
	deadline := time.Now().Add(time.Duration(dc.ExpiresIn) * time.Second)

	for {
		status, body, err := c.postForm(ctx, c.tokenURL(), form)
		if err != nil {
			// A single failed poll is not fatal; the grant is still live.
			if ctx.Err() != nil {
				return nil, &AuthError{Err: ctx.Err()}
			}
			zap.L().Warn("auth: device token poll failed, retrying", zap.Error(err))
		} else if status == http.StatusOK {
			var tr TokenResponse
			if err := json.Unmarshal(body, &tr); err != nil {
				return nil, eris.Wrap(err, "auth: parse token response")
			}
			return &tr, nil
		} else {
			var oe oauthErrorResponse
			_ = json.Unmarshal(body, &oe)
			switch oe.Error {
			case "authorization_pending":
				// User has not finished signing in yet.
			case "slow_down":
				interval *= 2
			default:
				return nil, &AuthError{Code: oe.Error, Err: eris.Errorf("auth: device flow rejected: %s", oe.Description)}
			}
		}

		if time.Now().After(deadline) {
			return nil, &AuthError{Code: "expired_token", Err: eris.New("auth: device flow expired before sign-in completed")}
		}

		select {
		case <-ctx.Done():
			return nil, &AuthError{Err: ctx.Err()}
		case <-time.After(interval):
		}
	}
}
