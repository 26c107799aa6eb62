// Package auth guards admin routes with HMAC-signed bearer tokens carrying a perms claim.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PermOrdersRead  = "orders.read"
	PermOrdersWrite = "orders.write"
	PermMenuWrite   = "menu.write"
)

type Claims struct {
	Perms []string `json:"perms"`
	jwt.RegisteredClaims
}

type Authz struct {
	secret   []byte
	issuer   string
	audience string
}

func NewAuthz(secret, issuer, audience string) *Authz {
	return &Authz{secret: []byte(secret), issuer: issuer, audience: audience}
}

type ctxKey struct{}

// Subject returns the token subject stored by Require, if any.
func Subject(ctx context.Context) string {
	c, _ := ctx.Value(ctxKey{}).(*Claims)
	if c == nil {
		return ""
	}
	return c.Subject
}

// Require checks the bearer token and ensures all required permissions are present.
func (a *Authz) Require(requiredPerms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				unauth(w, "invalid_request", "missing bearer token")
				return
			}
			claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				unauth(w, "invalid_token", "invalid jwt")
				return
			}
			if !hasAll(claims.Perms, requiredPerms) {
				forbidden(w, "insufficient_scope", "missing required permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
		})
	}
}

func (a *Authz) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	},
		jwt.WithLeeway(30*time.Second), // small clock skew
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Issue signs a token for subject; used by ops tooling and tests.
func (a *Authz) Issue(subject string, perms []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Perms: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Audience:  jwt.ClaimStrings{a.audience},
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func hasAll(have []string, req []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, p := range have {
		set[p] = struct{}{}
	}
	for _, r := range req {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}

func unauth(w http.ResponseWriter, code, desc string) {
	deny(w, http.StatusUnauthorized, code, desc)
}

func forbidden(w http.ResponseWriter, code, desc string) {
	deny(w, http.StatusForbidden, code, desc)
}

func deny(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "error_description": desc})
}
