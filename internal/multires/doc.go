// Package multires orchestrates the density-clustering pass and valley
// extraction across a sweep of sensitivity parameters (minPts values),
// caching each parameter's full clustering output.
//
// Each parameter's pass is independent of every other's, so the batch fans
// out over an errgroup with pre-allocated output slots; failures are
// fail-fast and abort the remaining parameters, since downstream consumers
// expect a complete, consistently-indexed result set.
package multires
