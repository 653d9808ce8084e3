// Package monitor tracks process-level statistics: start time, the request
// counter and Go runtime figures. HTTP metrics are also exported to Prometheus.
package monitor

import (
	"net/http"
	"os"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stats is a point-in-time snapshot of the running process.
type Stats struct {
	StartTime      time.Time
	Uptime         time.Duration
	Hostname       string
	PID            int
	OS             string
	Arch           string
	GoVersion      string
	NumCPU         int
	GOMAXPROCS     int
	Goroutines     int
	HeapAllocBytes uint64
	SysBytes       uint64
	NumGC          uint32
	TotalRequests  int64
}

// Monitor is safe for concurrent use.
type Monitor struct {
	start    time.Time
	requests atomic.Int64
	now      func() time.Time

	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a Monitor with its own Prometheus registry. Metric names are
// prefixed with prefix, e.g. "storekeep_http_requests_total".
func New(prefix string) *Monitor {
	reg := prometheus.NewRegistry()
	m := &Monitor{
		start:    time.Now().UTC(),
		now:      func() time.Time { return time.Now().UTC() },
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	reg.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Record counts one served request.
func (m *Monitor) Record(method, path string, status int, d time.Duration) {
	m.requests.Add(1)
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, path, code).Inc()
	m.requestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
}

func (m *Monitor) TotalRequests() int64 { return m.requests.Load() }

func (m *Monitor) StartTime() time.Time { return m.start }

// Registry exposes the Prometheus registry so other components can add collectors.
func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Snapshot reads the current runtime figures.
func (m *Monitor) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	host, _ := os.Hostname()
	return Stats{
		StartTime:      m.start,
		Uptime:         m.now().Sub(m.start),
		Hostname:       host,
		PID:            os.Getpid(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		GOMAXPROCS:     runtime.GOMAXPROCS(0),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		SysBytes:       mem.Sys,
		NumGC:          mem.NumGC,
		TotalRequests:  m.requests.Load(),
	}
}
