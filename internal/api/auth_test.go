package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Minute)
	token, err := ti.Issue("m1")
	require.NoError(t, err)

	assert.NoError(t, ti.Verify(token, "m1"))
	assert.ErrorIs(t, ti.Verify(token, "m2"), ErrInvalidToken)
	assert.ErrorIs(t, ti.Verify("", "m1"), ErrInvalidToken)
	assert.ErrorIs(t, ti.Verify("garbage", "m1"), ErrInvalidToken)

	other := NewTokenIssuer("another-secret", time.Minute)
	assert.ErrorIs(t, other.Verify(token, "m1"), ErrInvalidToken)
}

func TestTokenExpires(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Minute)
	ti.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	token, err := ti.Issue("m1")
	require.NoError(t, err)
	assert.ErrorIs(t, ti.Verify(token, "m1"), ErrInvalidToken)
}

func TestTokenRejectsOtherRolesAndAlgorithms(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Minute)

	viewer := jwt.NewWithClaims(jwt.SigningMethodHS256, ControllerClaims{
		MatchID: "m1",
		Role:    "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err := viewer.SignedString([]byte("secret"))
	require.NoError(t, err)
	assert.ErrorIs(t, ti.Verify(signed, "m1"), ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, ControllerClaims{MatchID: "m1", Role: RoleController})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.ErrorIs(t, ti.Verify(unsigned, "m1"), ErrInvalidToken)
}

func TestRandomSecretWhenEmpty(t *testing.T) {
	a, b := NewTokenIssuer("", 0), NewTokenIssuer("", 0)
	token, err := a.Issue("m1")
	require.NoError(t, err)

	assert.NoError(t, a.Verify(token, "m1"))
	assert.ErrorIs(t, b.Verify(token, "m1"), ErrInvalidToken)
	assert.Equal(t, time.Hour, a.ttl)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		if got := bearerToken(r); got != tt.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
