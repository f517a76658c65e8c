// Package pprofserver exposes the runtime profiling endpoints on a loopback
// listener separate from the public server.
package pprofserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
)

func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

func newServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	Handle(mux)
	return mux
}

func listenAndServe(addr string) error {
	server := &http.Server{ //nolint:exhaustruct // Defaults are fine for a loopback debug server.
		Addr:    addr,
		Handler: newServeMux(),
	}
	return server.ListenAndServe()
}

// Launch starts a pprof server on the ipv6 loopback address ::1 and the given
// port. Profiling is best-effort; a failed listen, such as another process
// already holding the port, only logs an error.
func Launch(port string, logger *slog.Logger) {
	go func() {
		addr := fmt.Sprintf("[::1]%s", port)
		logger.Info("starting pprof server", "addr", addr)
		if err := listenAndServe(addr); err != nil {
			logger.Error(err.Error())
		}
	}()
}
