// Package aggregate merges the entries behind a group's link references into
// a single deduplicated, base64-encoded output feed.
package aggregate

import (
	"context"
	"encoding/base64"
	"log"
	"strings"
	"sync"

	"github.com/John-Robertt/submerge-go/internal/fetch"
)

type Options struct {
	// Parallel bounds the fan-out; default 8 concurrent fetches.
	Parallel int

	// Fetch is forwarded to every per-link fetch (timeout, UA, limits).
	Fetch fetch.Options
}

// Result carries the encoded feed plus counters for the metrics endpoint.
type Result struct {
	Payload string // base64 of newline-joined deduplicated entries
	Entries int    // distinct entries in the output
	Fetched int    // links that contributed successfully
	Failed  int    // links that failed and contributed nothing
}

// Aggregate fans out fetches for every link reference, waits for all of
// them, and folds the results into one feed. It never fails: a link that
// errors contributes zero entries (logged and counted), and an all-failed or
// empty input yields the base64 of the empty string.
//
// Entry order is first-occurrence order over the links in input order;
// completion order of the concurrent fetches does not leak into the output.
func Aggregate(ctx context.Context, linkRefs []string, opt Options) Result {
	parallel := opt.Parallel
	if parallel <= 0 {
		parallel = 8
	}

	perLink := make([][]string, len(linkRefs))
	errs := make([]error, len(linkRefs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)
	for i, ref := range linkRefs {
		wg.Add(1)
		go func(i int, ref string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			perLink[i], errs[i] = fetch.FetchEntriesWithOptions(ctx, ref, opt.Fetch)
		}(i, ref)
	}
	wg.Wait()

	var res Result
	seen := make(map[string]struct{})
	ordered := make([]string, 0)
	for i, entries := range perLink {
		if errs[i] != nil {
			res.Failed++
			log.Printf("aggregate: fetch %q failed: %v", logRef(linkRefs[i]), errs[i])
			continue
		}
		res.Fetched++
		for _, e := range entries {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			ordered = append(ordered, e)
		}
	}

	res.Entries = len(ordered)
	res.Payload = base64.StdEncoding.EncodeToString([]byte(strings.Join(ordered, "\n")))
	return res
}

// logRef keeps log lines short: embedded payloads can be arbitrarily long
// and their content is user data, so only the prefix is logged.
func logRef(ref string) string {
	if len(ref) > 64 {
		return ref[:64] + "..."
	}
	return ref
}
