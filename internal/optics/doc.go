// Package optics implements the density-clustering pass that produces the
// reachability profile consumed by valley extraction.
//
// Responsibilities: OPTICS cluster-ordering over the segment feature matrix
// with Euclidean distance. The output is an ordering (a permutation of the
// input indices) and one reachability distance per ordering position, with
// Undefined marking the start of each density-connected chain.
//
// The implementation is deterministic: ties in seed reachability resolve to
// the smaller point index, so repeated runs over identical input produce
// identical profiles.
package optics
