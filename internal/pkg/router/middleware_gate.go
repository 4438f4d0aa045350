package router

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
)

const (
	// SessionCookie is the browser cookie carrying the session token.
	SessionCookie = "school_management_token"
	// LegacySessionCookie is cleared on logout for sessions issued by older builds.
	LegacySessionCookie = "school_management_session"
)

// GateRules classifies routes for the authentication gate.
type GateRules struct {
	// PublicPages lists page route patterns anyone can view.
	PublicPages map[string]struct{}
	// PublicAPI maps methods to API route patterns that skip authentication.
	PublicAPI map[string]map[string]struct{}
	// MixedAPI lists API route patterns whose reads are public while
	// mutations require a session.
	MixedAPI map[string]struct{}
	// LoginPath is where unauthenticated page requests are redirected.
	LoginPath string
}

func (g GateRules) isPublic(method, route, rawPath string) bool {
	if method == http.MethodOptions {
		return true
	}

	isAPI := strings.HasPrefix(rawPath, "/api/")

	if !isAPI {
		if _, ok := g.PublicPages[route]; ok {
			return true
		}
	}

	if s, ok := g.PublicAPI[method]; ok {
		if _, ok := s[route]; ok {
			return true
		}
	}

	if _, ok := g.MixedAPI[route]; ok {
		if method == http.MethodGet || method == http.MethodHead {
			return true
		}
	}

	return false
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	p := strings.Fields(r.Header.Get("Authorization"))
	if len(p) == 2 && strings.EqualFold(p[0], "Bearer") {
		return p[1]
	}

	return ""
}

// middlewareGate authenticates requests using the session cookie or a Bearer
// header.
//
// Public routes pass through; on those, a valid token still attaches claims
// to the context so handlers can report session state. Protected API routes
// answer 401 JSON; protected page routes redirect to the login page with the
// original path in the "from" query parameter.
func middlewareGate(verifier jwt.JWT, rules GateRules) Middleware {
	loginPath := rules.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			token := sessionToken(r)

			if rules.isPublic(r.Method, route, r.URL.Path) {
				if token != "" {
					if claims, err := verifier.Verify(token); err == nil {
						r = r.WithContext(jwt.SetAuth(r.Context(), claims))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			deny := func(msg string) {
				if strings.HasPrefix(r.URL.Path, "/api/") {
					writeJSON(w, map[string]string{"message": msg}, http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, loginPath+"?from="+url.QueryEscape(r.URL.Path), http.StatusFound)
			}

			if token == "" {
				deny("Authentication required")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				deny("Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
