package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/vodforge/internal/apperrors"
)

// RequireAdmin gates a raw chi handler behind the single shared admin
// credential. The credential is presented as a bearer token
// ("Authorization: Bearer <password>"), matching the convention
// established for short-lived playback tokens elsewhere in this service
// even though the admin credential itself never expires. Comparison is
// constant-time so timing does not leak how many leading bytes of a
// guess were correct.
func RequireAdmin(adminPassword string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validAdminCredential(bearerToken(r.Header.Get("Authorization")), adminPassword) {
				writeAuthError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminQueryOrHeader is RequireAdmin for endpoints an EventSource
// must be able to reach, where the browser cannot set a custom request
// header: it accepts the admin credential either as a bearer token or as
// a "token" query parameter.
func RequireAdminQueryOrHeader(adminPassword string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := bearerToken(r.Header.Get("Authorization"))
			if presented == "" {
				presented = r.URL.Query().Get("token")
			}
			if !validAdminCredential(presented, adminPassword) {
				writeAuthError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminHuma is RequireAdmin for huma-registered operations, applied
// per-operation via huma.Operation.Middlewares since huma has no route
// grouping of its own to scope a net/http middleware to admin-only paths.
func RequireAdminHuma(api huma.API, adminPassword string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if !validAdminCredential(bearerToken(ctx.Header("Authorization")), adminPassword) {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, apperrors.Auth("missing or invalid admin credential").Message)
			return
		}
		next(ctx)
	}
}

func validAdminCredential(presented, adminPassword string) bool {
	return presented != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(adminPassword)) == 1
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

func writeAuthError(w http.ResponseWriter) {
	appErr := apperrors.Auth("missing or invalid admin credential")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus())
	_, _ = w.Write([]byte(`{"error":"` + appErr.Message + `"}`))
}
