package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UserHeader carries the signed-in user id. Requests without it are guests.
//
// The header is trusted as-is: the server must sit behind an authenticating
// proxy that sets it and strips any client-supplied value. Exposed directly,
// any client can act as any user.
const UserHeader = "X-User-ID"

// LocalUser is the identity every request gets when authentication is off.
const LocalUser = "local"

type ctxKey int

const userKey ctxKey = iota

// Authentication resolves the request user. With enabled false every request
// is treated as LocalUser, which suits a single-user deployment.
func Authentication(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := LocalUser
			if enabled {
				user = strings.TrimSpace(r.Header.Get(UserHeader))
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user id set by Authentication, "" for guests.
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}
