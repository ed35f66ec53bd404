package cookie

import (
	"net/http"
	"strings"
	"time"

	"go-user-auth/internal/config"
	"go-user-auth/internal/model"
)

const (
	AccessTokenName  = "accessToken"
	RefreshTokenName = "refreshToken"
)

// Manager writes the session cookies. Every cookie it sets is HttpOnly.
type Manager struct {
	cfg        config.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg config.CookieConfig, accessTTL time.Duration, refreshTTL time.Duration) *Manager {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &Manager{cfg: cfg, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// SetTokens attaches both tokens of pair to the response.
func (m *Manager) SetTokens(w http.ResponseWriter, pair model.TokenPair) {
	http.SetCookie(w, m.build(AccessTokenName, pair.AccessToken, int(m.accessTTL.Seconds())))
	http.SetCookie(w, m.build(RefreshTokenName, pair.RefreshToken, int(m.refreshTTL.Seconds())))
}

// ClearTokens expires both session cookies on the client.
func (m *Manager) ClearTokens(w http.ResponseWriter) {
	http.SetCookie(w, m.build(AccessTokenName, "", -1))
	http.SetCookie(w, m.build(RefreshTokenName, "", -1))
}

func (m *Manager) RefreshToken(r *http.Request) string {
	return read(r, RefreshTokenName)
}

func (m *Manager) AccessToken(r *http.Request) string {
	return read(r, AccessTokenName)
}

func read(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func (m *Manager) build(name string, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.cfg.Path,
		Domain:   m.cfg.Domain,
		MaxAge:   maxAge,
		Secure:   m.cfg.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(m.cfg.SameSite),
	}
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
