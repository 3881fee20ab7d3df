// Package monitor exposes scan and process metrics over a Prometheus
// endpoint.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"

	gptag "github.com/S-SB/gp-tag-mobile"
)

var (
	pid      process.Process
	memUsage prometheus.Gauge
	cpuUsage prometheus.Gauge

	// FramesTotal counts frames handed to the pipeline; DecodedTotal counts
	// frames that produced a tag.
	FramesTotal  prometheus.Counter
	DecodedTotal prometheus.Counter

	// RejectedTotal counts rejected frames by the stage that stopped them.
	RejectedTotal *prometheus.CounterVec

	// ScanSeconds observes end-to-end per-frame scan latency.
	ScanSeconds prometheus.Histogram
)

var srv *http.Server

func prom(port int) {
	registry := prometheus.NewRegistry()
	memUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_usage_Megabytes",
		Help: "Memory usage in Megabytes",
	})
	cpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "CPU usage in percent",
	})
	FramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "frames_total",
		Help: "Total number of frames submitted for scanning",
	})
	DecodedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tags_decoded_total",
		Help: "Total number of frames that decoded to a tag",
	})
	RejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "frames_rejected_total",
		Help: "Total number of rejected frames by pipeline stage",
	}, []string{"stage"})
	ScanSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scan_duration_seconds",
		Help:    "Per-frame scan latency",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	registry.MustRegister(memUsage, cpuUsage, FramesTotal, DecodedTotal, RejectedTotal, ScanSeconds)
	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv = &http.Server{Addr: fmt.Sprintf(":%d", port)}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("metrics server exited", zap.Error(err))
		}
	}()
}

// ObserveFrame records a frame entering the pipeline. All Observe helpers
// are no-ops until StartMon has registered the collectors.
func ObserveFrame() {
	if FramesTotal != nil {
		FramesTotal.Inc()
	}
}

// ObserveDecoded records a successfully decoded frame.
func ObserveDecoded() {
	if DecodedTotal != nil {
		DecodedTotal.Inc()
	}
}

// ObserveReject records a rejected frame at the stage the error maps to.
func ObserveReject(err error) {
	if RejectedTotal != nil {
		RejectedTotal.WithLabelValues(gptag.StageFor(err).String()).Inc()
	}
}

// ObserveLatency records one frame's end-to-end scan duration.
func ObserveLatency(d time.Duration) {
	if ScanSeconds != nil {
		ScanSeconds.Observe(d.Seconds())
	}
}

func checkProcessInfo() {
	memInfo, err := pid.MemoryInfo()
	if err == nil {
		memUsage.Set(float64(memInfo.RSS / 1024 / 1024))
	}
	cpuPercent, err := pid.CPUPercent()
	if err == nil {
		cpuUsage.Set(math.Round(cpuPercent*100) / 100)
	}
}

// StartMon serves /metrics on the given port and samples process CPU and
// memory every 500ms until the context is cancelled. Blocks; run it in its
// own goroutine.
func StartMon(port int, ctx context.Context) {
	pid = process.Process{Pid: int32(os.Getpid())}
	go prom(port)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
checkPcs:
	for {
		select {
		case <-ctx.Done():
			break checkPcs
		case <-ticker.C:
			checkProcessInfo()
		}
	}
	if srv != nil {
		if err := srv.Shutdown(context.Background()); err != nil {
			zap.L().Error("metrics server shutdown", zap.Error(err))
		}
	}
}
