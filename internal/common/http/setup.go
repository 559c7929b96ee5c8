package http

import (
	"net/http"

	"github.com/AlibekovAA/examination-system/internal/common/constants"
	"github.com/AlibekovAA/examination-system/internal/common/httpmetrics"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
)

// BuildBaseHandler wraps handler with the middleware every service shares.
// Trace ids are assigned before recovery so panics are logged with one.
func BuildBaseHandler(appName string, log *logger.Logger, handler http.Handler) http.Handler {
	collector := httpmetrics.New(appName)
	recovery := RecoveryMiddleware(log)
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)
	csp := ContentSecurityPolicyMiddleware("")

	return SecurityHeadersMiddleware(csp(TraceIDMiddleware(recovery(maxRequestSize(collector.Wrap(handler))))))
}
