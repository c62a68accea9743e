// ABOUTME: Bearer token authentication middleware for the API and the HTML index.
// ABOUTME: Accepts an Authorization header or the funcdeck_token cookie set by /login.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// TokenCookie is the cookie that carries the token for browser sessions.
const TokenCookie = "funcdeck_token"

// AuthMiddleware rejects requests under /api without a valid token. The
// health check and the login endpoint are always open. Browsers navigating
// to the index without a token are sent to /login.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	expected := "Bearer " + token
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" || path == "/login" {
				next.ServeHTTP(w, r)
				return
			}

			if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte(expected)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			if cookie, err := r.Cookie(TokenCookie); err == nil &&
				subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(token)) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			if strings.HasPrefix(path, "/api") || !strings.Contains(r.Header.Get("Accept"), "text/html") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		})
	}
}

const loginPage = `<!DOCTYPE html><html><head><title>funcdeck login</title></head>` +
	`<body style="font-family:sans-serif;margin:4em"><h1>funcdeck</h1><p>%s</p></body></html>`

// LoginHandler checks ?token= against the expected token and sets the
// session cookie on success.
func LoginHandler(expectedToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			msg := "Append <code>?token=YOUR_TOKEN</code> to this URL."
			if token != "" {
				msg = "Invalid token."
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(strings.Replace(loginPage, "%s", msg, 1)))
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     TokenCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteStrictMode,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
