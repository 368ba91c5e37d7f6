package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry        = 12 * time.Hour
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRateLimited        = errors.New("too many login attempts, try again later")
	ErrInvalidToken       = errors.New("invalid token")
)

// AdminAuth guards the admin endpoints with a bcrypt password check and HS256 tokens
type AdminAuth struct {
	user      string
	passHash  []byte
	jwtSecret []byte

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAdminAuth creates the admin authenticator. passHash is a bcrypt hash.
func NewAdminAuth(user, passHash, secret string) (*AdminAuth, error) {
	if user == "" || passHash == "" {
		return nil, errors.New("admin auth: user and password hash required")
	}
	if _, err := bcrypt.Cost([]byte(passHash)); err != nil {
		return nil, fmt.Errorf("admin auth: bad password hash: %w", err)
	}
	if secret == "" {
		return nil, errors.New("admin auth: empty JWT secret")
	}
	return &AdminAuth{
		user:      user,
		passHash:  []byte(passHash),
		jwtSecret: []byte(secret),
		rateMap:   make(map[string]*rateEntry),
	}, nil
}

// Login checks the credentials and returns a signed token
func (a *AdminAuth) Login(username, password, ip string) (string, error) {
	if !a.checkRate(ip) {
		return "", ErrRateLimited
	}
	if username != a.user {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.generateToken(username)
}

// ValidateToken validates a JWT and returns the admin username
func (a *AdminAuth) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	username, ok := claims["usr"].(string)
	if !ok || username != a.user {
		return "", ErrInvalidToken
	}
	return username, nil
}

// Middleware rejects requests without a valid bearer token
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := a.ValidateToken(tokenStr); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *AdminAuth) generateToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"usr": username,
		"exp": time.Now().Add(jwtExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *AdminAuth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}
