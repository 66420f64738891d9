// Command schedulerd runs the job scheduler as a long-lived daemon: it
// loads any persisted snapshot, registers the demo handlers, and drives
// ProcessPendingJobs on a tick until signaled to stop.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/whotracksme/job-scheduler/internal/app"
	"github.com/whotracksme/job-scheduler/internal/platform/ctxutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxutil.WithTraceData(ctx, &ctxutil.TraceData{RequestID: uuid.NewString()})

	a, err := app.New(ctx)
	if err != nil {
		os.Exit(exitWithError(err))
	}
	defer a.Close(context.Background())

	go serveMetrics(a)

	a.Log.Info("schedulerd started",
		"storage_backend", string(a.Config.StorageBackend),
		"request_id", ctxutil.GetTraceData(ctx).RequestID)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.Log.Info("schedulerd shutting down")
			return
		case <-ticker.C:
			if err := a.Scheduler.ProcessPendingJobs(ctx); err != nil {
				a.Log.Error("dispatch pass failed", "error", err)
			}
		}
	}
}

func serveMetrics(a *app.App) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(a.Config.MetricsAddr, mux); err != nil {
		a.Log.Error("metrics server stopped", "error", err)
	}
}

func exitWithError(err error) int {
	os.Stderr.WriteString(err.Error() + "\n")
	return 1
}
