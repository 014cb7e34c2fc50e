// Package metrics keeps process-local ingestion counters and serves them in
// the Prometheus text exposition format on /metrics.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// collector writes one metric family.
type collector interface {
	write(w io.Writer)
}

var (
	documents      = &counter{name: "ingest_documents_total", help: "Documents entering the ingestion pipeline"}
	failures       = newCounterVec("ingest_failures_total", "Ingestion failures by error code", "code")
	repairs        = &counter{name: "ingest_repairs_total", help: "Repair calls issued for malformed model output"}
	repairFailures = &counter{name: "ingest_repair_failures_total", help: "Model output still invalid after repair"}
	workerJobs     = newCounterVec("worker_jobs_total", "Queued ingestion jobs by result", "result")
	rateLimited    = newCounterVec("http_rate_limited_total", "Requests rejected by the rate limiter", "group")
	panics         = &counter{name: "http_panics_total", help: "Recovered handler panics"}
	ingestDuration = newHistogram("ingest_duration_ms", "Ingestion duration in milliseconds",
		100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000)

	registry = []collector{
		documents, failures, repairs, repairFailures,
		workerJobs, rateLimited, panics, ingestDuration,
	}
)

// IncDocuments counts a document entering the ingestion pipeline.
func IncDocuments() { documents.inc() }

// IncRepairs counts one repair call issued by the validation loop.
func IncRepairs() { repairs.inc() }

// IncRepairFailures counts output still invalid after its repair call.
func IncRepairFailures() { repairFailures.inc() }

// IncFailure counts a terminal failure by error code.
func IncFailure(code string) { failures.inc(code) }

// IncWorkerJob counts a queued job by result: received, completed, failed
// or deleted_unrecoverable.
func IncWorkerJob(result string) { workerJobs.inc(result) }

// IncRateLimited counts a rejected request by route group.
func IncRateLimited(group string) { rateLimited.inc(group) }

func IncPanics() { panics.inc() }

// ObserveDurationMs records a pipeline duration. Negative values clamp to 0.
func ObserveDurationMs(ms float64) {
	ingestDuration.observe(max(ms, 0))
}

func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render writes every registered family in registration order.
func Render() string {
	var sb strings.Builder
	for _, c := range registry {
		c.write(&sb)
	}
	return sb.String()
}

func header(w io.Writer, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

type counter struct {
	name, help string
	n          atomic.Uint64
}

func (c *counter) inc() { c.n.Add(1) }

func (c *counter) write(w io.Writer) {
	header(w, c.name, c.help, "counter")
	fmt.Fprintf(w, "%s %d\n", c.name, c.n.Load())
}

// counterVec is a counter family keyed by one label.
type counterVec struct {
	name, help, label string

	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec(name, help, label string) *counterVec {
	return &counterVec{name: name, help: help, label: label, values: map[string]uint64{}}
}

func (v *counterVec) inc(labelValue string) {
	v.mu.Lock()
	v.values[labelValue]++
	v.mu.Unlock()
}

func (v *counterVec) write(w io.Writer) {
	v.mu.Lock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s{%s=%q} %d\n", v.name, v.label, k, v.values[k])
	}
	v.mu.Unlock()

	header(w, v.name, v.help, "counter")
	for _, l := range lines {
		io.WriteString(w, l)
	}
}

// histogram stores cumulative bucket counts, so observe touches every bucket
// whose bound is at least the value.
type histogram struct {
	name, help string
	bounds     []float64

	mu         sync.Mutex
	cumulative []uint64
	sum        float64
	count      uint64
}

func newHistogram(name, help string, bounds ...float64) *histogram {
	return &histogram{name: name, help: help, bounds: bounds, cumulative: make([]uint64, len(bounds))}
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i := len(h.bounds) - 1; i >= 0 && v <= h.bounds[i]; i-- {
		h.cumulative[i]++
	}
}

func (h *histogram) write(w io.Writer) {
	h.mu.Lock()
	cumulative := slices.Clone(h.cumulative)
	sum, count := h.sum, h.count
	h.mu.Unlock()

	header(w, h.name, h.help, "histogram")
	for i, bound := range h.bounds {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", h.name, formatFloat(bound), cumulative[i])
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", h.name, count)
	fmt.Fprintf(w, "%s_sum %s\n", h.name, formatFloat(sum))
	fmt.Fprintf(w, "%s_count %d\n", h.name, count)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
