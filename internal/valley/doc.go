// Package valley extracts hierarchical "full valley" clusters from the
// reachability profile produced by a density-clustering pass.
//
// Responsibilities: recursive peak-splitting of the ordered reachability
// sequence, size-fraction pruning, and stable solution/cluster numbering.
// Key types: Profile, Cluster.
//
// The package is pure: no I/O, no logging, no shared state. A Profile is
// never re-sorted — its order encodes the density-clustering traversal, not
// a sort key.
package valley
