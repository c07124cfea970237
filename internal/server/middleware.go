package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/maruel/dsinspect/internal/server/dto"
	"github.com/maruel/dsinspect/internal/server/handlers"
	"github.com/maruel/dsinspect/internal/server/reqctx"
	"golang.org/x/crypto/bcrypt"
)

// RequireWritePassword protects a handler with HTTP Basic authentication
// checked against a bcrypt hash. The user name is ignored. An empty hash
// disables the check.
func RequireWritePassword(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, password, ok := r.BasicAuth()
			if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
				slog.WarnContext(r.Context(), "Rejected flag change", "ip", reqctx.GetClientIP(r), "path", r.URL.Path)
				w.Header().Set("WWW-Authenticate", `Basic realm="dsinspect", charset="UTF-8"`)
				handlers.WriteErrorResponse(w, dto.Unauthorized())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder remembers the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.size += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// LogRequests assigns a request ID to every request and logs one line per
// response.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := reqctx.NewRequestID()
		w.Header().Set(reqctx.RequestIDHeader, id)
		ctx := reqctx.WithRequestID(r.Context(), id)
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "HTTP",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"size", rec.size,
			"dur", time.Since(start).Round(time.Microsecond),
			"ip", reqctx.GetClientIP(r),
		)
	})
}
