package router

import (
	"net/http"
	"strings"

	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/uid"
)

const (
	// HeaderCorrelationID tracks a request end-to-end across services.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is the alternative name some proxies send.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// middlewareCorrelationID adopts the caller's correlation ID or mints one,
// echoes it on the response and stores it in the request context for logging.
func middlewareCorrelationID(uid uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := normalizeCID(r.Header.Get(HeaderCorrelationID))
			if cid == "" {
				cid = normalizeCID(r.Header.Get(HeaderRequestID))
			}
			if cid == "" && uid != nil {
				cid = uid.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// normalizeCID rejects header-injection attempts and truncates oversized
// values.
func normalizeCID(v string) string {
	if strings.ContainsAny(v, "\r\n") {
		return ""
	}

	v = strings.TrimSpace(v)
	if len(v) > maxCorrelationIDLen {
		v = v[:maxCorrelationIDLen]
	}

	return v
}
