package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// tokenExpiry extracts the exp claim from a JWT without verifying the
// signature. Expiry is the only claim the lifecycle manager needs.
func tokenExpiry(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, eris.Errorf("auth: malformed jwt: %d segments", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, eris.Wrap(err, "auth: decode jwt payload")
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, eris.Wrap(err, "auth: parse jwt claims")
	}
	if claims.Exp == 0 {
		return time.Time{}, eris.New("auth: jwt has no exp claim")
	}

	return time.Unix(claims.Exp, 0), nil
}
