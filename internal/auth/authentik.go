package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
)

const (
	stateCookie   = "oauth_state"
	sessionCookie = "session_id"
)

// AuthentikConfig holds the OAuth2 client settings for an Authentik application
type AuthentikConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AppSlug      string
	Scopes       []string
}

type session struct {
	user      *User
	expiresAt time.Time
}

// AuthentikAuth runs the OAuth2 code flow against Authentik and keeps
// server-side cookie sessions
type AuthentikAuth struct {
	config   AuthentikConfig
	oauthCfg *oauth2.Config
	client   *http.Client
	mu       sync.RWMutex
	sessions map[string]session
	now      func() time.Time
}

func NewAuthentikAuth(cfg AuthentikConfig) *AuthentikAuth {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "profile", "email", "groups"}
	}
	if cfg.AppSlug == "" {
		cfg.AppSlug = "esccup-draft"
	}

	return &AuthentikAuth{
		config:   cfg,
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.BaseURL + "/application/o/authorize/",
				TokenURL: cfg.BaseURL + "/application/o/token/",
			},
		},
		client:   &http.Client{Timeout: 10 * time.Second},
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

func (a *AuthentikAuth) Routes(r chi.Router) {
	r.Get("/auth/login", a.login)
	r.Get("/auth/callback", a.callback)
	r.Get("/auth/logout", a.logout)
}

func (a *AuthentikAuth) Authenticate(r *http.Request) (*User, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, ErrUnauthorized
	}

	a.mu.RLock()
	s, ok := a.sessions[c.Value]
	a.mu.RUnlock()

	if !ok {
		return nil, ErrUnauthorized
	}
	if a.now().After(s.expiresAt) {
		a.mu.Lock()
		delete(a.sessions, c.Value)
		a.mu.Unlock()
		return nil, ErrUnauthorized
	}
	return s.user, nil
}

func (a *AuthentikAuth) login(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})
	http.Redirect(w, r, a.oauthCfg.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (a *AuthentikAuth) callback(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || r.URL.Query().Get("state") != c.Value {
		writeError(w, http.StatusBadRequest, errors.New("invalid oauth state"))
		return
	}

	ctx := context.WithValue(r.Context(), oauth2.HTTPClient, a.client)
	token, err := a.oauthCfg.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		logger.Error("OAuth code exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, errors.New("token exchange failed"))
		return
	}

	user, err := a.userInfo(ctx, token)
	if err != nil {
		logger.Error("Failed to fetch user info", "error", err)
		writeError(w, http.StatusBadGateway, errors.New("user info unavailable"))
		return
	}

	id, err := randomToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	expires := token.Expiry
	if expires.IsZero() {
		expires = a.now().Add(12 * time.Hour)
	}

	a.mu.Lock()
	a.purgeLocked()
	a.sessions[id] = session{user: user, expiresAt: expires}
	a.mu.Unlock()

	logger.Info("User signed in", "user", user.Username, "admin", user.IsAdmin())

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *AuthentikAuth) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		a.mu.Lock()
		delete(a.sessions, c.Value)
		a.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Path: "/", MaxAge: -1})
	http.Redirect(w, r, fmt.Sprintf("%s/application/o/%s/end-session/", a.config.BaseURL, a.config.AppSlug), http.StatusSeeOther)
}

func (a *AuthentikAuth) userInfo(ctx context.Context, token *oauth2.Token) (*User, error) {
	client := a.oauthCfg.Client(ctx, token)
	resp, err := client.Get(a.config.BaseURL + "/application/o/userinfo/")
	if err != nil {
		return nil, errors.Wrap(err, "request user info")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Newf("user info returned %s: %s", resp.Status, body)
	}

	var info struct {
		Sub               string   `json:"sub"`
		Email             string   `json:"email"`
		Name              string   `json:"name"`
		PreferredUsername string   `json:"preferred_username"`
		Groups            []string `json:"groups"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.Wrap(err, "decode user info")
	}

	return &User{
		ID:       info.Sub,
		Email:    info.Email,
		Name:     info.Name,
		Username: info.PreferredUsername,
		Groups:   info.Groups,
	}, nil
}

func (a *AuthentikAuth) purgeLocked() {
	now := a.now()
	for id, s := range a.sessions {
		if now.After(s.expiresAt) {
			delete(a.sessions, id)
		}
	}
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate random token")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
