// Package sqlite persists multi-resolution clustering results so a named
// dataset can be re-analysed later without recomputation.
//
// One archive row holds the sweep metadata; one result row per sensitivity
// parameter holds the full clustering output (profile, ordering, ranked
// clusters) as JSON. Archives are immutable once written.
package sqlite
