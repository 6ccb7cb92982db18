package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	bootstrapReadyTotal  atomic.Uint64
	bootstrapFailedTotal atomic.Uint64
	gatewayFailureTotal  atomic.Uint64
	renderCompletedTotal atomic.Uint64
	renderFailedTotal    atomic.Uint64
	engineLoadsTotal     atomic.Uint64
	hostRequestsTotal    atomic.Uint64
	hostAICallsTotal     atomic.Uint64

	renderDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000})
)

// IncBootstrapReady counts host bindings that became ready.
func IncBootstrapReady() { bootstrapReadyTotal.Add(1) }

// IncBootstrapFailed counts bindings that timed out.
func IncBootstrapFailed() { bootstrapFailedTotal.Add(1) }

// IncGatewayFailure counts gateway calls that returned absent.
func IncGatewayFailure() { gatewayFailureTotal.Add(1) }

// IncRenderCompleted increments the completed conversion counter.
func IncRenderCompleted() { renderCompletedTotal.Add(1) }

// IncRenderFailed increments the failed conversion counter.
func IncRenderFailed() { renderFailedTotal.Add(1) }

// IncEngineLoad counts rendering engine loads.
func IncEngineLoad() { engineLoadsTotal.Add(1) }

// IncHostRequest counts requests served by the host daemon.
func IncHostRequest() { hostRequestsTotal.Add(1) }

// IncHostAICall counts inference calls forwarded to the model provider.
func IncHostAICall() { hostAICallsTotal.Add(1) }

// ObserveRenderDurationMs records a conversion duration in milliseconds.
func ObserveRenderDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	renderDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "bootstrap_ready_total", "Host bindings that became ready", bootstrapReadyTotal.Load())
	writeCounter(&buf, "bootstrap_failed_total", "Host bindings that timed out", bootstrapFailedTotal.Load())
	writeCounter(&buf, "gateway_failure_total", "Gateway calls that returned absent", gatewayFailureTotal.Load())
	writeCounter(&buf, "render_completed_total", "PDF previews rendered", renderCompletedTotal.Load())
	writeCounter(&buf, "render_failed_total", "PDF previews that failed", renderFailedTotal.Load())
	writeCounter(&buf, "render_engine_loads_total", "Rendering engine loads", engineLoadsTotal.Load())
	writeCounter(&buf, "host_requests_total", "Requests served by the host daemon", hostRequestsTotal.Load())
	writeCounter(&buf, "host_ai_calls_total", "Inference calls forwarded to the model", hostAICallsTotal.Load())
	writeHistogram(&buf, "render_duration_ms", "PDF preview duration in milliseconds", renderDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket that holds it; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
