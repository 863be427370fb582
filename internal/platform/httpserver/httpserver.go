package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for this project.
// WriteTimeout stays above the upstream timeout so a slow vote cast still
// gets its fallback answer written.
func New(addr string, handler http.Handler, upstreamTimeout time.Duration) *http.Server {
	write := 30 * time.Second
	if min := 3 * upstreamTimeout; min > write {
		write = min
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       60 * time.Second,
	}
}
