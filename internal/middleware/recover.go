package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/HammerMeetNail/circleboard/internal/handlers"
	"github.com/HammerMeetNail/circleboard/internal/logging"
)

type Recoverer struct {
	logger *logging.Logger
}

func NewRecoverer(logger *logging.Logger) *Recoverer {
	if logger == nil {
		logger = logging.Default
	}
	return &Recoverer{logger: logger}
}

// Apply turns a handler panic into an internal-error envelope.
func (rc *Recoverer) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			rc.logger.Error("Handler panic", map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
				"panic":  rec,
				"stack":  string(debug.Stack()),
			})
			handlers.WriteFailure(w, http.StatusInternalServerError, handlers.CodeInternal, "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}
