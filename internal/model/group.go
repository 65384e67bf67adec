package model

// Group is a named collection of link references aggregated into one output
// feed. ID is assigned at creation and never changes afterwards.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Links holds the group's link references in insertion order. Order
	// affects fetch order only; the aggregated output is deduplicated by
	// first occurrence, so it does not affect output semantics.
	Links []string `json:"links"`
}

// GroupRecord is the stored wire shape of a group. The ID lives in the store
// key (SUBS_GROUP:<id>), not in the value.
type GroupRecord struct {
	Name  string   `json:"name"`
	Links []string `json:"links"`
}
