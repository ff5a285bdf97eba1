package api

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenHeader carries a session token on HTTP requests. Browsers cannot
	// set headers on a WebSocket upgrade, so /ws also accepts ?token=.
	TokenHeader = "X-Session-Token"

	// TokenDuration bounds how long a session token stays valid.
	TokenDuration = 12 * time.Hour

	tokenIssuer = "gunplay"
)

var ErrInvalidToken = errors.New("invalid session token")

// TokenIssuer signs and verifies the tokens that prove ownership of a game
// session. Only the client that created a session may drive or end it.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. An empty secret generates a random one,
// so tokens do not survive a restart.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		rand.Read(secret)
	}
	if ttl <= 0 {
		ttl = TokenDuration
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for sessionID and its expiry.
func (ti *TokenIssuer) Issue(sessionID string) (string, time.Time, error) {
	now := ti.now()
	expires := now.Add(ti.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks the signature and expiry and returns the session ID.
func (ti *TokenIssuer) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// tokenFromRequest reads the token from the header, a bearer authorization
// or the token query parameter, in that order.
func tokenFromRequest(r *http.Request) string {
	if t := r.Header.Get(TokenHeader); t != "" {
		return t
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// RequireSession rejects requests whose token does not match the {id} route
// parameter.
func (ti *TokenIssuer) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := ti.Verify(tokenFromRequest(r))
		if err != nil || id != chi.URLParam(r, "id") {
			RecordConnectionRejected("token")
			writeError(w, "session token required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
