package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
)

type gateClock struct{}

func (gateClock) Now() time.Time { return time.Now() }

type gateUUID struct{}

func (gateUUID) Generate() string { return "gate-test-jti" }

func newGateJWT(t *testing.T) jwt.JWT {
	t.Helper()

	s, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(strings.Repeat("g", 64)),
		Issuer:    "schoolhub",
		Audiences: []string{"schoolhub-web"},
		TTL:       time.Hour,
		Clock:     gateClock{},
		UUID:      gateUUID{},
	})
	if err != nil {
		t.Fatalf("NewHS512: %v", err)
	}

	return s
}

func testGateRules() GateRules {
	return GateRules{
		PublicPages: map[string]struct{}{
			"/":        {},
			"/login":   {},
			"/schools": {},
		},
		PublicAPI: map[string]map[string]struct{}{
			http.MethodGet:  {"/api/auth/check": {}},
			http.MethodPost: {"/api/auth/send-otp": {}},
		},
		MixedAPI: map[string]struct{}{
			"/api/schools": {},
		},
		LoginPath: "/login",
	}
}

func gateHandler(t *testing.T, verifier jwt.JWT) (http.Handler, *bool, **jwt.Claims) {
	t.Helper()

	var (
		called bool
		claims *jwt.Claims
	)

	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		called = true
		claims = jwt.GetAuth(r.Context())
	})

	return middlewareGate(verifier, testGateRules())(next), &called, &claims
}

func TestMiddlewareGate(t *testing.T) {
	verifier := newGateJWT(t)

	token, err := verifier.Generate(42, "alice@example.com", "user")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	t.Run("PublicPagePasses", func(t *testing.T) {
		// Arrange
		h, called, _ := gateHandler(t, verifier)
		req := httptest.NewRequest(http.MethodGet, "/schools", nil)
		rec := httptest.NewRecorder()

		// Act
		h.ServeHTTP(rec, req)

		// Assert
		if !*called {
			t.Fatalf("public page should reach the handler")
		}
	})

	t.Run("ProtectedPageRedirectsToLogin", func(t *testing.T) {
		// Arrange
		h, called, _ := gateHandler(t, verifier)
		req := httptest.NewRequest(http.MethodGet, "/addSchool", nil)
		rec := httptest.NewRecorder()

		// Act
		h.ServeHTTP(rec, req)

		// Assert
		if *called {
			t.Fatalf("protected page should not reach the handler")
		}
		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login?from=%2FaddSchool" {
			t.Fatalf("unexpected redirect location %q", loc)
		}
	})

	t.Run("ProtectedAPIGets401JSON", func(t *testing.T) {
		// Arrange
		h, called, _ := gateHandler(t, verifier)
		req := httptest.NewRequest(http.MethodPost, "/api/schools", nil)
		rec := httptest.NewRecorder()

		// Act
		h.ServeHTTP(rec, req)

		// Assert
		if *called {
			t.Fatalf("protected API should not reach the handler")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Fatalf("expected JSON denial, got %q", ct)
		}
	})

	t.Run("MixedAPIReadIsPublic", func(t *testing.T) {
		// Arrange
		h, called, _ := gateHandler(t, verifier)
		req := httptest.NewRequest(http.MethodGet, "/api/schools", nil)
		rec := httptest.NewRecorder()

		// Act
		h.ServeHTTP(rec, req)

		// Assert
		if !*called {
			t.Fatalf("mixed API read should reach the handler")
		}
	})

	t.Run("OptionsAlwaysPasses", func(t *testing.T) {
		// Arrange
		h, called, _ := gateHandler(t, verifier)
		req := httptest.NewRequest(http.MethodOptions, "/api/schools", nil)
		rec := httptest.NewRecorder()

		// Act
		h.ServeHTTP(rec, req)

		// Assert
		if !*called {
			t.Fatalf("OPTIONS should always pass")
		}
	})

	t.Run("CookieSessionPassesProtectedAPI", func(t *testing.T) {
		// Arrange
		h, called, claims := gateHandler(t, verifier)
		req := httptest.NewRequest(http.MethodPost, "/api/schools", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		rec := httptest.NewRecorder()

		// Act
		h.ServeHTTP(rec, req)

		// Assert
		if !*called {
			t.Fatalf("valid session should reach the handler")
		}
		if *claims == nil || (*claims).UserID != 42 {
			t.Fatalf("expected claims in context, got %+v", *claims)
		}
	})

	t.Run("BearerSessionPassesProtectedAPI", func(t *testing.T) {
		// Arrange
		h, called, _ := gateHandler(t, verifier)
		req := httptest.NewRequest(http.MethodPost, "/api/schools", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		// Act
		h.ServeHTTP(rec, req)

		// Assert
		if !*called {
			t.Fatalf("valid bearer token should reach the handler")
		}
	})

	t.Run("InvalidTokenDenied", func(t *testing.T) {
		// Arrange
		h, called, _ := gateHandler(t, verifier)
		req := httptest.NewRequest(http.MethodPost, "/api/schools", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token + "x"})
		rec := httptest.NewRecorder()

		// Act
		h.ServeHTTP(rec, req)

		// Assert
		if *called {
			t.Fatalf("invalid token should be denied")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("ValidTokenOnPublicRouteAttachesClaims", func(t *testing.T) {
		// Arrange
		h, called, claims := gateHandler(t, verifier)
		req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		rec := httptest.NewRecorder()

		// Act
		h.ServeHTTP(rec, req)

		// Assert
		if !*called {
			t.Fatalf("public API should reach the handler")
		}
		if *claims == nil || (*claims).UserEmail != "alice@example.com" {
			t.Fatalf("expected claims on public route with valid token")
		}
	})
}
