// Package auth supplies the bearer token attached to admin API requests.
//
// Tokens are issued elsewhere and kept in client-side storage: an inline
// value, an environment variable or a token file. A missing token is not an
// error; requests then go out unauthenticated and the server decides.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource returns the current bearer token, or "" when none is stored.
type TokenSource interface {
	Token() (string, error)
}

// Static is a fixed token.
type Static string

func (s Static) Token() (string, error) { return strings.TrimSpace(string(s)), nil }

// Env reads the token from an environment variable on every call.
type Env string

func (e Env) Token() (string, error) { return strings.TrimSpace(os.Getenv(string(e))), nil }

// File reads the token from a file on every call, so a token rewritten by
// another process is picked up without restarting.
type File string

func (f File) Token() (string, error) {
	if f == "" {
		return "", nil
	}
	data, err := os.ReadFile(ExpandHome(string(f)))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Chain returns the first non-empty token of its sources.
type Chain []TokenSource

func (c Chain) Token() (string, error) {
	var errs []error
	for _, src := range c {
		tok, err := src.Token()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if tok != "" {
			return tok, nil
		}
	}
	return "", errors.Join(errs...)
}

// Expiry returns the exp claim of a JWT without verifying its signature.
// ok is false when the token is not a JWT or has no expiry.
func Expiry(token string) (exp time.Time, ok bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether token carries an exp claim in the past.
func Expired(token string, now time.Time) bool {
	exp, ok := Expiry(token)
	return ok && !now.Before(exp)
}

// Issue signs an HS256 token for subject, valid for ttl. It backs the
// development server; production tokens come from the admin API's login.
func Issue(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("signing secret is empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify checks an HS256 token against secret and returns its subject.
func Verify(secret []byte, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
