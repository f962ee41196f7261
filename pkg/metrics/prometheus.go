package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// PrometheusServer exposes a Recorder on its own port for processes without an HTTP API
type PrometheusServer struct {
	server   *http.Server
	recorder *Recorder
	log      *logger.Logger
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(port int, path string, recorder *Recorder) *PrometheusServer {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, recorder.Handler())

	return &PrometheusServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		recorder: recorder,
		log:      logger.GetLogger("metrics.prometheus"),
	}
}

// Start serves metrics until Stop is called
func (p *PrometheusServer) Start() error {
	p.log.Infof("Starting Prometheus metrics server on %s", p.server.Addr)
	if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the Prometheus metrics server
func (p *PrometheusServer) Stop(ctx context.Context) error {
	p.log.Info("Stopping Prometheus metrics server")
	return p.server.Shutdown(ctx)
}

// CollectSystemMetrics samples goroutine count and heap usage every interval until ctx is done
func CollectSystemMetrics(ctx context.Context, r *Recorder, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sample := func() {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		r.RecordMemoryUsage(mem.HeapAlloc)
		r.RecordGoroutineCount(runtime.NumGoroutine())
	}

	sample()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample()
		}
	}
}
