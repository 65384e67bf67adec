package httpapi

import (
	"net/http"
	"strings"
	"testing"
)

func TestMetricsEndpoint(t *testing.T) {
	mux := newTestMux(t)
	g := createGroup(t, mux, "m")
	_ = doGET(t, mux, "/sub/"+g.ID)

	rec := doGET(t, mux, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"submerge_http_requests_total",
		"submerge_http_requests_by_pattern_total",
		"submerge_app_errors_total",
		"submerge_feeds_served_total",
		"submerge_links_fetched_total",
		"submerge_links_failed_total",
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("metrics output missing %s:\n%s", name, body)
		}
	}
}

func TestPromLabelEscape(t *testing.T) {
	got := promLabelEscape(`a"b\c` + "\n")
	want := `a\"b\\c\n`
	if got != want {
		t.Fatalf("got=%q, want=%q", got, want)
	}
}
