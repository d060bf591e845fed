package multires

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mcbj-data/conductance.report/internal/monitoring"
	"github.com/mcbj-data/conductance.report/internal/optics"
	"github.com/mcbj-data/conductance.report/internal/segment"
	"github.com/mcbj-data/conductance.report/internal/valley"
)

// FormatTag identifies the clustering output format carried in archives.
const FormatTag = "optics-valley/v1"

var (
	// ErrNoParams is returned when the sensitivity sweep is empty.
	ErrNoParams = errors.New("multires: no sensitivity parameters")
)

// PassError reports a failed clustering pass, identifying the sensitivity
// parameter it was running. The batch is aborted on the first PassError;
// parameter choices are deterministic, so retrying without a code or input
// change would reproduce the same failure.
type PassError struct {
	ParamIndex int
	MinPts     int
	Err        error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("multires: clustering pass failed for param %d (minPts=%d): %v", e.ParamIndex, e.MinPts, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// Clusterer is the density-clustering collaborator: given a feature matrix
// and a minPts sensitivity value it returns the cluster ordering and
// reachability distances.
type Clusterer interface {
	Cluster(ctx context.Context, features [][]float64, minPts int) (*optics.Result, error)
}

// OPTICSClusterer adapts the optics package to the Clusterer interface.
type OPTICSClusterer struct {
	// MaxEps bounds the neighbourhood radius; zero means unbounded.
	MaxEps float64
}

// Cluster runs one OPTICS pass.
func (c *OPTICSClusterer) Cluster(ctx context.Context, features [][]float64, minPts int) (*optics.Result, error) {
	return optics.Run(ctx, features, optics.Params{MinPts: minPts, MaxEps: c.MaxEps})
}

// Verify at compile time that *OPTICSClusterer implements Clusterer.
var _ Clusterer = (*OPTICSClusterer)(nil)

// Output is the cached result of one sensitivity parameter: the reachability
// profile, the per-point references back into the dataset, and the ranked
// valley clusters for the configured cutoff. Read-only once produced.
type Output struct {
	ParamIndex int              `json:"param_index"`
	MinPts     int              `json:"min_pts"`
	Format     string           `json:"format"`
	Profile    valley.Profile   `json:"profile"`
	Clusters   []valley.Cluster `json:"clusters"`

	// SegmentIDs and TraceIDs are indexed by original dataset position, so
	// Profile.Ordering values resolve through them.
	SegmentIDs []int `json:"segment_ids"`
	TraceIDs   []int `json:"trace_ids"`
}

// Results is the complete sweep output, one slot per sensitivity parameter
// in the request order, plus metadata on which traces the analysis used.
type Results struct {
	Dataset       string   `json:"dataset"`
	CutoffFrac    float64  `json:"cutoff_frac"`
	Outputs       []Output `json:"outputs"`
	UsedTraces    []int    `json:"used_traces"`
	DroppedTraces []int    `json:"dropped_traces,omitempty"`
}

// SensitivityParams returns the minPts sweep in slot order.
func (r *Results) SensitivityParams() []int {
	params := make([]int, len(r.Outputs))
	for i := range r.Outputs {
		params[i] = r.Outputs[i].MinPts
	}
	return params
}

// Reference returns the output slot used for the default display, clamping
// an out-of-range index to the first slot.
func (r *Results) Reference(idx int) *Output {
	if idx < 0 || idx >= len(r.Outputs) {
		idx = 0
	}
	return &r.Outputs[idx]
}

// Runner drives the sweep.
type Runner struct {
	clusterer  Clusterer
	cutoffFrac float64
	workers    int
	logf       func(format string, v ...interface{})
}

// NewRunner creates a Runner. Workers below 1 are treated as 1 (synchronous
// batch).
func NewRunner(clusterer Clusterer, cutoffFrac float64, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		clusterer:  clusterer,
		cutoffFrac: cutoffFrac,
		workers:    workers,
		logf:       monitoring.Prefixed("multires"),
	}
}

// RunAll runs one clustering pass plus valley extraction per sensitivity
// parameter and returns the complete, consistently-indexed result set.
// The first failing pass aborts the remaining parameters.
func (r *Runner) RunAll(ctx context.Context, ds *segment.Dataset, minPtsParams []int) (*Results, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if len(minPtsParams) == 0 {
		return nil, ErrNoParams
	}
	if r.cutoffFrac <= 0 || r.cutoffFrac >= 1 {
		return nil, valley.ErrInvalidCutoff
	}

	features := ds.FeatureMatrix()
	segmentIDs := make([]int, len(ds.Segments))
	traceIDs := make([]int, len(ds.Segments))
	for i, s := range ds.Segments {
		segmentIDs[i] = s.SegmentID
		traceIDs[i] = s.TraceID
	}

	res := &Results{
		Dataset:       ds.Name,
		CutoffFrac:    r.cutoffFrac,
		Outputs:       make([]Output, len(minPtsParams)), // slot per param, no locking needed
		UsedTraces:    ds.UsedTraces(),
		DroppedTraces: ds.DroppedTraces,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, minPts := range minPtsParams {
		i, minPts := i, minPts
		g.Go(func() error {
			pass, err := r.clusterer.Cluster(gctx, features, minPts)
			if err != nil {
				return &PassError{ParamIndex: i, MinPts: minPts, Err: err}
			}

			profile := valley.Profile{Ordering: pass.Ordering, Reachability: pass.Reachability}
			clusters, err := valley.Extract(&profile, r.cutoffFrac)
			if err != nil {
				return &PassError{ParamIndex: i, MinPts: minPts, Err: err}
			}

			res.Outputs[i] = Output{
				ParamIndex: i,
				MinPts:     minPts,
				Format:     FormatTag,
				Profile:    profile,
				Clusters:   valley.Rank(clusters),
				SegmentIDs: segmentIDs,
				TraceIDs:   traceIDs,
			}
			r.logf("param %d (minPts=%d): %d clusters over %d segments", i, minPts, len(res.Outputs[i].Clusters), len(ds.Segments))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
