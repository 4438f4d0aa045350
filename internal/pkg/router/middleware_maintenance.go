package router

import (
	"net/http"
	"strings"

	"github.com/schoolhub/schoolhub/internal/pkg/config"
)

// middlewareMaintenance answers 503 on routes listed under
// app.maintenance.endpoints, letting operators park an endpoint without a
// redeploy. The set is read once at startup.
func middlewareMaintenance(cfg config.Config) Middleware {
	blocked := make(map[string]struct{})
	if cfg != nil {
		for _, route := range cfg.GetArray("app.maintenance.endpoints") {
			if route = strings.TrimSpace(route); route != "" {
				blocked[route] = struct{}{}
			}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, down := blocked[matchedRoutePath(r)]; down {
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
