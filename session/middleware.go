package session

import (
	"net/http"

	"github.com/giygas/hospital-portal/interfaces"
	"github.com/giygas/hospital-portal/logging"
)

// Middleware resolves the cookie to a stored session and injects it into
// the request context. Requests without a valid session pass through
// untouched; a stale cookie is deleted.
func Middleware(store interfaces.SessionStore, codec *CookieCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := codec.Decode(r)
			if !ok {
				if _, err := r.Cookie(CookieName); err == nil {
					http.SetCookie(w, codec.Expired())
				}
				next.ServeHTTP(w, r)
				return
			}

			s, ok := store.Load(r.Context(), id)
			if !ok {
				http.SetCookie(w, codec.Expired())
				next.ServeHTTP(w, r)
				return
			}

			logging.Annotate(r.Context(), "role", s.Role.String(), "user_id", s.UserID)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
