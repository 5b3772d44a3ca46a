package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
)

const tokenIssuer = "esccup-draft"

// PasswordAuth grants admin tokens to callers who know the shared admin password
type PasswordAuth struct {
	password []byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

type adminClaims struct {
	Groups []string `json:"groups"`
	jwt.RegisteredClaims
}

// NewPasswordAuth signs HS256 tokens with secret that expire after ttl
func NewPasswordAuth(password, secret string, ttl time.Duration) *PasswordAuth {
	return &PasswordAuth{
		password: []byte(password),
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// IssueToken returns a signed admin token and its expiry
func (p *PasswordAuth) IssueToken() (string, time.Time, error) {
	now := p.now()
	exp := now.Add(p.ttl)
	claims := adminClaims{
		Groups: []string{AdminGroup},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, exp, nil
}

func (p *PasswordAuth) Authenticate(r *http.Request) (*User, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, ErrUnauthorized
	}

	var claims adminClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, errors.WithSecondaryError(errors.Wrap(ErrUnauthorized, "parse token"), err)
	}

	return &User{ID: claims.Subject, Name: "Admin", Username: claims.Subject, Groups: claims.Groups}, nil
}

func (p *PasswordAuth) Routes(r chi.Router) {
	r.Post("/api/auth/login", p.login)
}

func (p *PasswordAuth) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), p.password) != 1 {
		logger.Warn("Rejected admin login", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, errors.New("invalid password"))
		return
	}

	token, exp, err := p.IssueToken()
	if err != nil {
		logger.Error("Failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to issue token"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "expiresAt": exp.UTC().Format(time.RFC3339)})
}
