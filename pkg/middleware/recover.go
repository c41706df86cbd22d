package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/menugr/menugr/pkg/logger"
	"github.com/menugr/menugr/pkg/response"
)

// Recovery turns a handler panic into a logged 500.
//
//	r.Use(metrics.Middleware())
//	r.Use(middleware.Recovery)
//	r.Use(reqid.Middleware())
//	r.Use(middleware.Logger)
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.WithCtx(r.Context()).Error("panic recovered",
				"error", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
				"method", r.Method,
				"path", r.URL.Path,
			)
			response.ServerError(w)
		}()
		next.ServeHTTP(w, r)
	})
}
