package httpapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// metricsStore is intentionally tiny: a few counters are enough for basic
// observability without dragging in external dependencies or complex
// labeling.
type metricsStore struct {
	mu sync.Mutex

	httpRequestsTotal uint64
	httpByPattern     map[reqKey]uint64

	appErrors map[errKey]uint64

	feedsServedTotal  uint64
	linksFetchedTotal uint64
	linksFailedTotal  uint64
}

type reqKey struct {
	Pattern string
	Status  int
}

type errKey struct {
	Stage string
	Code  string
}

func newMetricsStore() *metricsStore {
	return &metricsStore{
		httpByPattern: make(map[reqKey]uint64),
		appErrors:     make(map[errKey]uint64),
	}
}

var metrics = newMetricsStore()

func metricsIncRequest(pattern string, status int) {
	if status == 0 {
		status = http.StatusOK
	}
	if pattern == "" {
		pattern = "(unknown)"
	}

	metrics.mu.Lock()
	metrics.httpRequestsTotal++
	metrics.httpByPattern[reqKey{Pattern: pattern, Status: status}]++
	metrics.mu.Unlock()
}

func metricsIncAppError(stage, code string) {
	stage = strings.TrimSpace(stage)
	code = strings.TrimSpace(code)
	if stage == "" {
		stage = "(unknown)"
	}
	if code == "" {
		code = "(unknown)"
	}

	metrics.mu.Lock()
	metrics.appErrors[errKey{Stage: stage, Code: code}]++
	metrics.mu.Unlock()
}

// metricsAddFeed records one served feed and its per-link fan-out outcome.
func metricsAddFeed(fetched, failed int) {
	metrics.mu.Lock()
	metrics.feedsServedTotal++
	metrics.linksFetchedTotal += uint64(fetched)
	metrics.linksFailedTotal += uint64(failed)
	metrics.mu.Unlock()
}

type reqMetric struct {
	reqKey
	N uint64
}

type errMetric struct {
	errKey
	N uint64
}

type snapshot struct {
	httpTotal uint64
	reqs      []reqMetric
	errs      []errMetric

	feeds        uint64
	linksFetched uint64
	linksFailed  uint64
}

func metricsSnapshot() snapshot {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	s := snapshot{
		httpTotal:    metrics.httpRequestsTotal,
		feeds:        metrics.feedsServedTotal,
		linksFetched: metrics.linksFetchedTotal,
		linksFailed:  metrics.linksFailedTotal,
	}

	s.reqs = make([]reqMetric, 0, len(metrics.httpByPattern))
	for k, n := range metrics.httpByPattern {
		s.reqs = append(s.reqs, reqMetric{reqKey: k, N: n})
	}
	s.errs = make([]errMetric, 0, len(metrics.appErrors))
	for k, n := range metrics.appErrors {
		s.errs = append(s.errs, errMetric{errKey: k, N: n})
	}

	sort.Slice(s.reqs, func(i, j int) bool {
		if s.reqs[i].Pattern != s.reqs[j].Pattern {
			return s.reqs[i].Pattern < s.reqs[j].Pattern
		}
		return s.reqs[i].Status < s.reqs[j].Status
	})
	sort.Slice(s.errs, func(i, j int) bool {
		if s.errs[i].Stage != s.errs[j].Stage {
			return s.errs[i].Stage < s.errs[j].Stage
		}
		return s.errs[i].Code < s.errs[j].Code
	})
	return s
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	// Plain text (Prometheus-ish). Keep it dependency-free.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	s := metricsSnapshot()

	var b strings.Builder

	writeCounter(&b, "submerge_http_requests_total", "Total HTTP requests.", s.httpTotal)

	b.WriteString("# HELP submerge_http_requests_by_pattern_total HTTP requests by ServeMux pattern and status.\n")
	b.WriteString("# TYPE submerge_http_requests_by_pattern_total counter\n")
	for _, m := range s.reqs {
		b.WriteString("submerge_http_requests_by_pattern_total{pattern=\"")
		b.WriteString(promLabelEscape(m.Pattern))
		b.WriteString("\",status=\"")
		b.WriteString(strconv.Itoa(m.Status))
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(m.N, 10))
		b.WriteByte('\n')
	}

	b.WriteString("# HELP submerge_app_errors_total Application errors returned to clients.\n")
	b.WriteString("# TYPE submerge_app_errors_total counter\n")
	for _, m := range s.errs {
		b.WriteString("submerge_app_errors_total{stage=\"")
		b.WriteString(promLabelEscape(m.Stage))
		b.WriteString("\",code=\"")
		b.WriteString(promLabelEscape(m.Code))
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(m.N, 10))
		b.WriteByte('\n')
	}

	writeCounter(&b, "submerge_feeds_served_total", "Aggregated feeds served.", s.feeds)
	writeCounter(&b, "submerge_links_fetched_total", "Link references fetched successfully during aggregation.", s.linksFetched)
	writeCounter(&b, "submerge_links_failed_total", "Link references that failed during aggregation.", s.linksFailed)

	_, _ = fmt.Fprint(w, b.String())
}

func writeCounter(b *strings.Builder, name, help string, v uint64) {
	b.WriteString("# HELP " + name + " " + help + "\n")
	b.WriteString("# TYPE " + name + " counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(v, 10))
	b.WriteByte('\n')
}

func promLabelEscape(s string) string {
	// Prometheus label value escaping: backslash and double quote.
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
