package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// quietPaths are polled by infrastructure and would drown out real traffic.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Logger returns request logging middleware. Server errors log at error
// level and client errors at warn, so a log filter on level alone surfaces
// trouble; health and metrics probes are not logged at all.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				var evt *zerolog.Event
				switch {
				case ww.Status() >= http.StatusInternalServerError:
					evt = logger.Error()
				case ww.Status() >= http.StatusBadRequest:
					evt = logger.Warn()
				default:
					evt = logger.Info()
				}
				evt.
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr).
					Msg("request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
