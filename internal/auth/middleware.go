package auth

import (
	"context"
	"net/http"
	"time"

	"dineflow/internal/utils"
)

type contextKey string

const sessionKey contextKey = "session"

// WithSession attaches decoded claims to ctx.
func WithSession(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, sessionKey, claims)
}

// SessionFrom returns the request's session, or nil.
func SessionFrom(ctx context.Context) *Claims {
	if c, ok := ctx.Value(sessionKey).(*Claims); ok {
		return c
	}
	return nil
}

// TenantID is the session tenant, empty for platform admins and anonymous calls.
func TenantID(ctx context.Context) string {
	if c := SessionFrom(ctx); c != nil {
		return c.TenantID
	}
	return ""
}

// LoadSession decodes the cookie for kind when present. Any decode error,
// kind mismatch or expiry leaves the request anonymous. An already
// attached session is kept.
func LoadSession(codec *Codec, kind Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFrom(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}
			cookie, err := r.Cookie(kind.CookieName())
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := codec.Decode(cookie.Value)
			if err != nil || claims.Kind != kind || claims.IsExpired(codec.Now()) {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
		})
	}
}

// RequireSession rejects requests without a valid session of kind.
func RequireSession(codec *Codec, kind Kind) func(http.Handler) http.Handler {
	load := LoadSession(codec, kind)
	return func(next http.Handler) http.Handler {
		guard := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := SessionFrom(r.Context())
			if claims == nil || claims.Kind != kind {
				utils.SendErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
		return load(guard)
	}
}

// RequirePermission allows staff sessions holding any of perms.
func RequirePermission(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := SessionFrom(r.Context())
			if claims == nil || claims.Kind != KindStaff {
				utils.SendErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !CanAccessAny(claims.Role, perms...) {
				utils.SendErrorMessage(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePlatformRole allows platform sessions whose role is listed.
func RequirePlatformRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := SessionFrom(r.Context())
			if claims == nil || claims.Kind != KindPlatform {
				utils.SendErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.SendErrorMessage(w, http.StatusForbidden, "Forbidden")
		})
	}
}

// SetSessionCookie writes an httpOnly cookie for kind.
func SetSessionCookie(w http.ResponseWriter, kind Kind, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     kind.CookieName(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, kind Kind, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     kind.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
