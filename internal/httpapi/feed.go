package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/John-Robertt/submerge-go/internal/aggregate"
	"github.com/John-Robertt/submerge-go/internal/fetch"
)

// handleFeed serves the aggregated output feed of one group. A missing
// group is a 404; a group whose every link failed still yields 200 with an
// empty payload — partial results are preferred over total failure.
func (h apiHandler) handleFeed(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeErrorFromErr(w, requestError("INVALID_ARGUMENT", "缺少分组 ID", ""))
		return
	}

	// Keep a hard upper bound so the handler doesn't hang forever if an
	// upstream misbehaves.
	ctx, cancel := context.WithTimeout(r.Context(), h.opt.FeedTimeout)
	defer cancel()

	g, err := h.groups.Get(ctx, id)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}

	res := aggregate.Aggregate(ctx, g.Links, aggregate.Options{
		Parallel: h.opt.FetchParallel,
		Fetch:    fetch.Options{Timeout: h.opt.FetchTimeout},
	})
	metricsAddFeed(res.Fetched, res.Failed)

	WriteFeed(w, res.Payload)
}
