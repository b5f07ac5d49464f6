package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// expiryBuffer is subtracted from a token's exp claim so workers never
// carry a token into a request that will outlive it.
const expiryBuffer = 5 * time.Minute

// Prompter displays the device-code sign-in instructions to the user.
type Prompter func(dc *DeviceCode)

// StdoutPrompter prints the verification URI and user code.
func StdoutPrompter(dc *DeviceCode) {
	fmt.Printf("To sign in, open %s and enter the code %s\n", dc.VerificationURI, dc.UserCode)
}

// Manager owns the process-wide token lifecycle: it hands out valid
// bearer tokens, renews silently with the stored refresh token, and
// falls back to the interactive device-code flow. Concurrent callers
// share one in-flight authentication.
type Manager struct {
	store  *CredentialStore
	oauth  *OAuthClient
	prompt Prompter
	group  singleflight.Group
}

// NewManager creates a Manager backed by the given store and OAuth
// client. prompt may be nil when interactive sign-in is unavailable
// (e.g. tests); the device flow then still runs but prints nothing.
func NewManager(store *CredentialStore, oauth *OAuthClient, prompt Prompter) *Manager {
	return &Manager{
		store:  store,
		oauth:  oauth,
		prompt: prompt,
	}
}

// Acquire returns a valid access token, authenticating if necessary.
// A fresh cached token is returned without any network call. When a
// refresh or device flow is already running, the caller blocks on its
// result instead of starting a duplicate.
func (m *Manager) Acquire(ctx context.Context) (string, error) {
	if st, ok := m.store.Get(); ok && m.usable(st.AccessToken) {
		return st.AccessToken, nil
	}

	v, err, _ := m.group.Do("token", func() (any, error) {
		// Another caller may have finished authenticating while this
		// one was queued behind the flight.
		if st, ok := m.store.Get(); ok && m.usable(st.AccessToken) {
			return st.AccessToken, nil
		}
		return m.authenticate(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate reacts to an authorization failure from the dispatcher:
// the rejected token is dropped so the next Acquire re-authenticates.
// A token that has already been replaced is left alone.
func (m *Manager) Invalidate(rejected string) {
	st, ok := m.store.Get()
	if !ok || st.AccessToken != rejected {
		return
	}
	zap.L().Warn("auth: invalidating rejected token")
	m.store.Clear()
}

func (m *Manager) usable(token string) bool {
	if token == "" {
		return false
	}
	exp, err := tokenExpiry(token)
	if err != nil {
		zap.L().Debug("auth: cannot read token expiry, treating as invalid", zap.Error(err))
		return false
	}
	return time.Now().Before(exp.Add(-expiryBuffer))
}

// authenticate renews silently when a refresh token is stored, then
// falls back to the interactive device-code flow.
func (m *Manager) authenticate(ctx context.Context) (string, error) {
	if st, _ := m.store.Get(); st.RefreshToken != "" {
		tr, err := m.oauth.Refresh(ctx, st.RefreshToken)
		if err == nil {
			return m.persist(tr)
		}
		zap.L().Warn("auth: silent refresh failed, falling back to device flow", zap.Error(err))
	}

	dc, err := m.oauth.StartDeviceFlow(ctx)
	if err != nil {
		return "", err
	}
	if m.prompt != nil {
		m.prompt(dc)
	}

	tr, err := m.oauth.PollDeviceToken(ctx, dc)
	if err != nil {
		return "", err
	}
	return m.persist(tr)
}

func (m *Manager) persist(tr *TokenResponse) (string, error) {
	st := TokenState{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ObtainedAt:   time.Now(),
	}
	if st.RefreshToken == "" {
		// The endpoint may omit the refresh token on renewal; keep the
		// one already stored.
		if prev, _ := m.store.Get(); prev.RefreshToken != "" {
			st.RefreshToken = prev.RefreshToken
		}
	}
	if err := m.store.Set(st); err != nil {
		return "", eris.Wrap(err, "auth: persist token")
	}
	zap.L().Info("auth: token acquired")
	return st.AccessToken, nil
}
