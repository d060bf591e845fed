package segment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testDataset() *Dataset {
	return &Dataset{
		Name:       "run-001",
		FeatureDim: 2,
		Segments: []Segment{
			{SegmentID: 0, TraceID: 3, StartSample: 0, Length: 40, Features: []float64{-4.2, 0.1}},
			{SegmentID: 1, TraceID: 3, StartSample: 40, Length: 25, Features: []float64{-5.0, 0.3}},
			{SegmentID: 2, TraceID: 1, StartSample: 5, Length: 60, Features: []float64{-0.5, 0.05}},
		},
		DroppedTraces: []int{2},
	}
}

func TestValidate(t *testing.T) {
	d := testDataset()
	if err := d.Validate(); err != nil {
		t.Fatalf("valid dataset rejected: %v", err)
	}

	d.Segments[1].Features = []float64{1}
	if err := d.Validate(); err == nil {
		t.Error("dimension mismatch not detected")
	}

	empty := &Dataset{Name: "empty"}
	if err := empty.Validate(); err != ErrEmptyDataset {
		t.Errorf("expected ErrEmptyDataset, got %v", err)
	}
	var nilDS *Dataset
	if err := nilDS.Validate(); err != ErrEmptyDataset {
		t.Errorf("expected ErrEmptyDataset for nil dataset, got %v", err)
	}
}

func TestDim_InferredFromFirstSegment(t *testing.T) {
	d := testDataset()
	d.FeatureDim = 0
	if got := d.Dim(); got != 2 {
		t.Errorf("Dim() = %d, want 2", got)
	}
}

func TestFeatureMatrix(t *testing.T) {
	d := testDataset()
	m := d.FeatureMatrix()
	if len(m) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(m))
	}
	if diff := cmp.Diff([]float64{-5.0, 0.3}, m[1]); diff != "" {
		t.Errorf("row 1 mismatch (-want +got):\n%s", diff)
	}
}

func TestUsedTraces(t *testing.T) {
	d := testDataset()
	if diff := cmp.Diff([]int{1, 3}, d.UsedTraces()); diff != "" {
		t.Errorf("used traces mismatch (-want +got):\n%s", diff)
	}
}
