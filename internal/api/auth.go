package api

import (
	"crypto/rand"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// ErrInvalidToken is returned for missing, expired or foreign controller tokens
var ErrInvalidToken = eris.New("invalid controller token")

// RoleController may start a match by countdown or force start
const RoleController = "controller"

// ControllerClaims binds a token to one match
type ControllerClaims struct {
	MatchID string `json:"matchId"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and checks controller tokens (HS256)
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer uses secret, or a random per-process key when it is empty
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			log.Warn().Err(err).Msg("⚠️ failed to generate token secret, using fallback")
			key = []byte("sumo-arena-default-secret-key-32")
		}
		log.Info().Msg("🔐 controller tokens signed with a per-process key")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{secret: key, ttl: ttl, now: time.Now}
}

// Issue creates a controller token for matchID
func (ti *TokenIssuer) Issue(matchID string) (string, error) {
	now := ti.now()
	claims := ControllerClaims{
		MatchID: matchID,
		Role:    RoleController,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   matchID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	return signed, eris.Wrap(err, "sign controller token")
}

// Verify checks the signature, expiry, role and match binding
func (ti *TokenIssuer) Verify(raw, matchID string) error {
	if raw == "" {
		return ErrInvalidToken
	}
	parser := jwt.Parser{
		ValidMethods: []string{jwt.SigningMethodHS256.Alg()},
	}
	claims := &ControllerClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return ti.secret, nil
	})
	if err != nil {
		return eris.Wrapf(ErrInvalidToken, "parse: %v", err)
	}
	if claims.Role != RoleController || claims.MatchID != matchID {
		return eris.Wrapf(ErrInvalidToken, "token not valid for match %q", matchID)
	}
	return nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
