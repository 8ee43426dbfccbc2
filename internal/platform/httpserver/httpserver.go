package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server each service fronts its health, metrics and
// ingress routes with. Write timeouts stay generous because the audit
// ingress blocks on a synchronous store write.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
