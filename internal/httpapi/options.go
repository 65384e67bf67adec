package httpapi

import (
	"time"

	"github.com/John-Robertt/submerge-go/internal/store"
)

// Options controls HTTP API runtime behavior.
//
// Keep it small: this service is an aggregation pipeline plus a little
// administrative glue, not a framework.
type Options struct {
	// Store is the key-value substrate for groups and service config.
	// Defaults to an in-memory store.
	Store store.Store

	// AdminToken, when non-empty, fixes the admin bearer token and disables
	// the /api/setup flow.
	AdminToken string

	// FeedTimeout is the hard upper bound for a single feed request
	// (all fetches included).
	FeedTimeout time.Duration

	// FetchTimeout is the per-link timeout used when fetching upstream
	// subscriptions.
	FetchTimeout time.Duration

	// FetchParallel bounds the aggregation fan-out.
	FetchParallel int
}

func (o Options) withDefaults() Options {
	if o.Store == nil {
		o.Store = store.NewMemory()
	}
	if o.FeedTimeout <= 0 {
		o.FeedTimeout = 60 * time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.FetchParallel <= 0 {
		o.FetchParallel = 8
	}
	return o
}
