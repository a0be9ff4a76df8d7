package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// relayCtxKey is the context key type for the authenticated relay name.
type relayCtxKey struct{}

// SignRelayToken creates an HS256 JWT naming a relay process. ttl <= 0 means
// the token never expires.
func SignRelayToken(secret, name string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("relay secret is empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  name,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseRelayToken validates tok and returns the relay name.
func parseRelayToken(secret, tok string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// requireRelay enforces a valid relay JWT and injects the relay name into
// the request context.
func requireRelay(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerOrQuery(r)
			if tok == "" || secret == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			name, err := parseRelayToken(secret, tok)
			if err != nil {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), relayCtxKey{}, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// relayName returns the authenticated relay, or "".
func relayName(r *http.Request) string {
	name, _ := r.Context().Value(relayCtxKey{}).(string)
	return name
}

// bearerOrQuery extracts a token from the Authorization header or the
// "token" query parameter.
func bearerOrQuery(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}
