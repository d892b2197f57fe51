package tenantauth

import (
	"net/http"

	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/httputil"
)

// Middleware resolves the request's credentials through a Gatekeeper and
// places the resulting Principal (and derived tenant ID) on the request
// context. It replaces the gateway-header tenant extraction this service's
// predecessor relied on: there is no gateway hop here, so credential
// resolution happens in-process on every request.
func Middleware(gk *Gatekeeper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := r.Header.Get("X-Device-Id")
			authHeader := r.Header.Get("Authorization")

			token, err := CredentialsFromAuthHeader(authHeader, deviceID)
			if err != nil {
				httputil.Error(w, err)
				return
			}

			creds := Credentials{DeviceID: deviceID}
			if deviceID != "" {
				creds.EmployeeToken = token
			} else {
				creds.AdminToken = token
			}

			principal, err := gk.Authorize(r.Context(), creds)
			if err != nil {
				httputil.Error(w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects any request whose principal is not an admin. Mount
// behind Middleware on routes restricted to administrative callers.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := FromContext(r.Context())
		if err != nil {
			httputil.Error(w, err)
			return
		}
		if !principal.IsAdmin() {
			httputil.Error(w, errors.Forbidden("admin credentials required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
