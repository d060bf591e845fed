// Package segment defines the data contract with the trace pre-segmentation
// collaborator: an ordered, indexable collection of per-segment feature
// records with back-references to the originating conductance traces.
//
// Pre-segmentation itself (plateau detection, feature extraction from raw
// conductance traces) happens upstream; this package only carries its
// output into the clustering pipeline.
package segment

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptyDataset is returned when a dataset carries no segments.
	ErrEmptyDataset = errors.New("segment: dataset has no segments")
)

// Segment is one contiguous piece of a conductance trace with its feature
// vector. Features typically hold segment geometry (mean log-conductance,
// slope, length, noise level) but the clustering layers treat them as an
// opaque d-dimensional point.
type Segment struct {
	SegmentID   int       `json:"segment_id"`
	TraceID     int       `json:"trace_id"`
	StartSample int       `json:"start_sample"`
	Length      int       `json:"length"`
	Features    []float64 `json:"features"`
}

// Dataset is an ordered collection of segments from one named measurement
// run, plus the bookkeeping of which traces survived pre-segmentation.
type Dataset struct {
	Name       string    `json:"name"`
	FeatureDim int       `json:"feature_dim"`
	Segments   []Segment `json:"segments"`

	// DroppedTraces lists trace IDs the pre-segmentation stage rejected
	// (too short, too noisy). Kept so reports can state which traces the
	// analysis actually used.
	DroppedTraces []int `json:"dropped_traces,omitempty"`
}

// Validate checks the structural invariants of the dataset: at least one
// segment, and a consistent feature dimension across all of them.
func (d *Dataset) Validate() error {
	if d == nil || len(d.Segments) == 0 {
		return ErrEmptyDataset
	}
	dim := d.FeatureDim
	if dim == 0 {
		dim = len(d.Segments[0].Features)
	}
	for i, s := range d.Segments {
		if len(s.Features) != dim {
			return fmt.Errorf("segment: feature dim mismatch at index %d: got %d, want %d", i, len(s.Features), dim)
		}
	}
	return nil
}

// Dim returns the feature dimension, inferring it from the first segment
// when the header field is unset.
func (d *Dataset) Dim() int {
	if d.FeatureDim > 0 {
		return d.FeatureDim
	}
	if len(d.Segments) > 0 {
		return len(d.Segments[0].Features)
	}
	return 0
}

// FeatureMatrix returns the N×d feature matrix view consumed by the
// density-clustering pass. Row i aliases Segments[i].Features.
func (d *Dataset) FeatureMatrix() [][]float64 {
	rows := make([][]float64, len(d.Segments))
	for i := range d.Segments {
		rows[i] = d.Segments[i].Features
	}
	return rows
}

// UsedTraces returns the sorted distinct trace IDs that contributed at least
// one segment.
func (d *Dataset) UsedTraces() []int {
	seen := make(map[int]bool, len(d.Segments))
	for _, s := range d.Segments {
		seen[s.TraceID] = true
	}
	traces := make([]int, 0, len(seen))
	for id := range seen {
		traces = append(traces, id)
	}
	sort.Ints(traces)
	return traces
}
