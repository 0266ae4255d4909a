package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const BrowserCookie = "sf_browser"

const browserCookieMaxAge = 365 * 24 * time.Hour

// Browser tags each request with a stable browser id carried in a cookie,
// issuing a fresh one when the cookie is missing or malformed.
func Browser(secure bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(BrowserCookie); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     BrowserCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(browserCookieMaxAge / time.Second),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), browserIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func BrowserID(ctx context.Context) string {
	id, _ := ctx.Value(browserIDKey).(string)
	return id
}

// WithBrowserID is used by tests and internal callers that bypass the
// cookie.
func WithBrowserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, browserIDKey, id)
}
