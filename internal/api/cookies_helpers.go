package api

import (
	"net/http"
	"time"

	"cliptide/internal/auth"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// setAuthCookies attaches both token cookies. They are httpOnly and secure:
// scripts never read them and they only travel over TLS.
func setAuthCookies(w http.ResponseWriter, pair auth.TokenPair, accessTTL, refreshTTL time.Duration) {
	setTokenCookie(w, accessTokenCookie, pair.AccessToken, accessTTL)
	setTokenCookie(w, refreshTokenCookie, pair.RefreshToken, refreshTTL)
}

func setTokenCookie(w http.ResponseWriter, name, token string, ttl time.Duration) {
	if token == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl).UTC(),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies expires both token cookies.
func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0).UTC(),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
