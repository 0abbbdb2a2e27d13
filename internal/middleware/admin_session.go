package middleware

import (
	"net/http"

	"github.com/streamgate/gate-server-go/internal/service"
)

// AdminSessionMiddleware guards the admin API. Admin sessions live in their
// own table and cookie; an admin identity never doubles as a user identity.
type AdminSessionMiddleware struct {
	adminService *service.AdminService
	configured   bool
}

func NewAdminSessionMiddleware(adminService *service.AdminService, configured bool) *AdminSessionMiddleware {
	return &AdminSessionMiddleware{
		adminService: adminService,
		configured:   configured,
	}
}

func (m *AdminSessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.configured {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "Admin not configured",
			})
			return
		}

		cookie, err := r.Cookie(AdminSessionCookie)
		if err != nil || cookie.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Unauthorized",
			})
			return
		}

		if !m.adminService.ValidateSession(r.Context(), cookie.Value) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Unauthorized",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
