package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeJWT builds an unsigned token whose payload carries only the exp
// claim. The lifecycle code never verifies signatures.
func makeJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	payload, err := json.Marshal(map[string]int64{"exp": exp.Unix()})
	require.NoError(t, err)
	return fmt.Sprintf("h.%s.s", base64.RawURLEncoding.EncodeToString(payload))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, err := tokenExpiry(makeJWT(t, exp))
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))
}

func TestTokenExpiryMalformed(t *testing.T) {
	cases := map[string]string{
		"two segments": "a.b",
		"bad base64":   "a.!!!.c",
		"not json":     "a." + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".c",
		"no exp claim": "a." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`)) + ".c",
		"empty token":  "",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tokenExpiry(token)
			assert.Error(t, err)
		})
	}
}
