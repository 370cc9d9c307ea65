package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kurirhub/kurir/infra/logger"
)

// newPromMux serves the default registry on /metrics. A dedicated mux keeps
// the scrape endpoint off the status API server.
func newPromMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// StartPromServer exposes Prometheus metrics on addr until the context is
// cancelled. readTimeout bounds slow scrape requests and grace bounds the
// shutdown drain; both come from the metrics configuration.
func StartPromServer(ctx context.Context, addr string, readTimeout, grace time.Duration) error {
	log := logger.New("prom-server")
	srv := &http.Server{
		Addr:        addr,
		Handler:     newPromMux(),
		ReadTimeout: readTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()
	log.Infof("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
