package router

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/schoolhub/schoolhub/internal/pkg/stacktrace"
)

// middlewareRecoverer turns handler panics into 500 responses and logs the
// in-repo stack frames. http.ErrAbortHandler is re-raised untouched.
//
//nolint:errcheck,gosec,contextcheck // ignore error
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}

			//nolint:err113,errorlint // sentinel comparison per net/http contract
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(r.Context(), "panic while serving request", "because", rvr, "stack", paths)
			} else {
				slog.ErrorContext(r.Context(), "panic while serving request", "because", rvr, "stack", string(stack))
			}

			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			if r.Header.Get("Connection") != "Upgrade" {
				w.WriteHeader(http.StatusInternalServerError)
			}

			json.NewEncoder(w).Encode(map[string]string{"message": "Internal server error"})
		}()

		next.ServeHTTP(w, r)
	})
}
