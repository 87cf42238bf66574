package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carelink/carelink/internal/session"
)

const signInPath = "/sign-in"

// RoleGuard gates the role-scoped dashboard subtrees. The URL role segment
// is matched against the session's role claim: no session redirects to
// sign-in, a mismatch redirects to the caller's own dashboard. Authorization
// problems resolve to redirects, never to raw errors.
func RoleGuard(sessions *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Current()
			if err != nil {
				http.Redirect(w, r, signInPath, http.StatusFound)
				return
			}

			want := session.Role(chi.URLParam(r, "role"))
			if !want.Valid() {
				http.NotFound(w, r)
				return
			}
			if sess.Role != want {
				http.Redirect(w, r, dashboardPath(sess.Role), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func dashboardPath(role session.Role) string {
	return "/" + string(role) + "/dashboard"
}
