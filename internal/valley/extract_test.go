package valley

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// profileOf builds a Profile with an identity ordering, replacing the
// leading sentinel marker (NaN in the literal) with UndefinedReachability.
func profileOf(reach ...float64) *Profile {
	order := make([]int, len(reach))
	for i := range order {
		order[i] = i
		if math.IsNaN(reach[i]) {
			reach[i] = UndefinedReachability
		}
	}
	return &Profile{Ordering: order, Reachability: reach}
}

var sentinel = math.NaN()

func TestExtract_SingleSpike(t *testing.T) {
	// One spike at position 4 (1-based) splits the profile into two leaf
	// valleys of three points each, plus the full profile as the coarsest
	// valley.
	p := profileOf(sentinel, 1, 1, 5, 1, 1)

	clusters, err := Extract(p, 0.1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []Cluster{
		{Start: 1, End: 6, Level: 0, SourcePeak: BaseSourcePeak, Size: 6},
		{Start: 1, End: 3, Level: 5, SourcePeak: 3, Size: 3},
		{Start: 4, End: 6, Level: 5, SourcePeak: 3, Size: 3},
	}
	if diff := cmp.Diff(want, clusters); diff != "" {
		t.Errorf("clusters mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_HighCutoffKeepsOnlyFullProfile(t *testing.T) {
	// Both size-3 leaves fail 0.9 (3/6 = 0.5); only the full profile
	// survives.
	p := profileOf(sentinel, 1, 1, 5, 1, 1)

	clusters, err := Extract(p, 0.9)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(clusters) != 1 {
		t.Fatalf("expected 1 surviving cluster, got %d: %+v", len(clusters), clusters)
	}
	c := clusters[0]
	if c.Start != 1 || c.End != 6 || c.Size != 6 {
		t.Errorf("expected full-profile valley [1,6], got [%d,%d] size %d", c.Start, c.End, c.Size)
	}
}

func TestExtract_FlatProfile(t *testing.T) {
	p := profileOf(sentinel, 2, 2, 2, 2)

	clusters, err := Extract(p, 0.1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(clusters) != 1 {
		t.Fatalf("flat profile should yield exactly one valley, got %d", len(clusters))
	}
	if clusters[0].Start != 1 || clusters[0].End != 5 {
		t.Errorf("expected [1,5], got [%d,%d]", clusters[0].Start, clusters[0].End)
	}
}

func TestExtract_FlatProfileAboveCutoffOnly(t *testing.T) {
	// Even the whole profile can fail the cutoff only when cutoffFrac > 1,
	// which is rejected; a flat profile always yields its single valley at
	// any valid cutoff.
	p := profileOf(sentinel, 2, 2)
	clusters, err := Extract(p, 0.99)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected the whole profile, got %d clusters", len(clusters))
	}
}

func TestExtract_NestedValleys(t *testing.T) {
	// Outer spike 9 at position 4, inner spike 5 at position 7. The right
	// valley [4,9] contains the sub-valleys [4,6] and [7,9].
	p := profileOf(sentinel, 1, 1, 9, 1, 1, 5, 1, 1)

	clusters, err := Extract(p, 0.05)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []Cluster{
		{Start: 1, End: 9, Level: 0, SourcePeak: BaseSourcePeak, Size: 9},
		{Start: 1, End: 3, Level: 9, SourcePeak: 3, Size: 3},
		{Start: 4, End: 9, Level: 9, SourcePeak: 3, Size: 6},
		{Start: 4, End: 6, Level: 5, SourcePeak: 6, Size: 3},
		{Start: 7, End: 9, Level: 5, SourcePeak: 6, Size: 3},
	}
	if diff := cmp.Diff(want, clusters); diff != "" {
		t.Errorf("clusters mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_TieBreaksLeftmost(t *testing.T) {
	// Two interior points tie at 5; the split must use the leftmost
	// (position 3, 1-based) so results are reproducible.
	p := profileOf(sentinel, 1, 5, 1, 5, 1, 1)

	clusters, err := Extract(p, 0.1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	for _, c := range clusters {
		if c.SourcePeak == 2 {
			return // 0-based position of the leftmost 5
		}
	}
	t.Errorf("no cluster split at the leftmost tied peak; got %+v", clusters)
}

func TestExtract_PrunedIntervalsAreNotRecursedInto(t *testing.T) {
	// The right valley [4,9] passes a 0.4 cutoff (6/9) but its children
	// (3/9 each) do not, so neither child nor anything deeper appears.
	p := profileOf(sentinel, 1, 1, 9, 1, 1, 5, 1, 1)

	clusters, err := Extract(p, 0.4)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []Cluster{
		{Start: 1, End: 9, Level: 0, SourcePeak: BaseSourcePeak, Size: 9},
		{Start: 4, End: 9, Level: 9, SourcePeak: 3, Size: 6},
	}
	if diff := cmp.Diff(want, clusters); diff != "" {
		t.Errorf("clusters mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_SizeCutoffHolds(t *testing.T) {
	p := profileOf(sentinel, 1, 2, 7, 1, 1, 4, 2, 1, 6, 3, 1, 1, 1)
	n := p.Len()

	for _, cutoff := range []float64{0.05, 0.2, 0.5} {
		clusters, err := Extract(p, cutoff)
		if err != nil {
			t.Fatalf("Extract(cutoff=%v): %v", cutoff, err)
		}
		for _, c := range clusters {
			if frac := float64(c.Size) / float64(n); frac < cutoff {
				t.Errorf("cutoff=%v: cluster [%d,%d] fraction %v below cutoff", cutoff, c.Start, c.End, frac)
			}
			if c.Size != c.End-c.Start+1 {
				t.Errorf("size %d inconsistent with bounds [%d,%d]", c.Size, c.Start, c.End)
			}
		}
	}
}

func TestExtract_InvalidInput(t *testing.T) {
	valid := profileOf(sentinel, 1, 2, 1)

	cases := []struct {
		name    string
		profile *Profile
		cutoff  float64
		wantErr error
	}{
		{"nil profile", nil, 0.1, ErrEmptyProfile},
		{"empty profile", &Profile{}, 0.1, ErrEmptyProfile},
		{"zero cutoff", valid, 0, ErrInvalidCutoff},
		{"negative cutoff", valid, -0.5, ErrInvalidCutoff},
		{"cutoff of one", valid, 1, ErrInvalidCutoff},
		{"cutoff above one", valid, 1.5, ErrInvalidCutoff},
		{"length mismatch", &Profile{Ordering: []int{0}, Reachability: []float64{1, 2}}, 0.1, ErrLengthMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(tc.profile, tc.cutoff)
			if err != tc.wantErr {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	p := profileOf(sentinel, 3, 1, 8, 2, 2, 8, 1, 4, 1, 1, 6, 2, 1)

	first, err := Extract(p, 0.05)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Extract(p, 0.05)
		if err != nil {
			t.Fatalf("Extract (run %d): %v", i, err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs from first (-first +again):\n%s", i, diff)
		}
	}
}

func TestLeaves_PartitionTheProfile(t *testing.T) {
	profiles := []*Profile{
		profileOf(sentinel, 1, 1, 5, 1, 1),
		profileOf(sentinel, 1, 1, 9, 1, 1, 5, 1, 1),
		profileOf(sentinel, 3, 1, 8, 2, 2, 8, 1, 4, 1, 1, 6, 2, 1),
		profileOf(sentinel, 2, 2, 2),
		profileOf(sentinel),
	}

	for _, p := range profiles {
		leaves, err := Leaves(p)
		if err != nil {
			t.Fatalf("Leaves: %v", err)
		}

		covered := make([]int, p.Len())
		for _, l := range leaves {
			for i := l.Start; i <= l.End; i++ {
				covered[i-1]++
			}
		}
		for i, c := range covered {
			if c != 1 {
				t.Errorf("profile len %d: position %d covered %d times", p.Len(), i+1, c)
			}
		}
	}
}

func TestExtract_NestingContainmentImpliesDistinctSolution(t *testing.T) {
	p := profileOf(sentinel, 1, 1, 9, 1, 1, 5, 1, 1)

	clusters, err := Extract(p, 0.05)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	ranked := Rank(clusters)

	for i, a := range ranked {
		for j, b := range ranked {
			if i == j || !a.Contains(b) || (a.Start == b.Start && a.End == b.End) {
				continue
			}
			if a.SolutionNumber == b.SolutionNumber {
				t.Errorf("nested clusters [%d,%d] and [%d,%d] share solution %d",
					a.Start, a.End, b.Start, b.End, a.SolutionNumber)
			}
		}
	}
}

func TestExtract_BaseValleyIsCoarsestSolution(t *testing.T) {
	p := profileOf(sentinel, 1, 1, 5, 1, 1)

	clusters, err := Extract(p, 0.1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	ranked := Rank(clusters)

	for _, c := range ranked {
		if c.SourcePeak == BaseSourcePeak && c.SolutionNumber != 1 {
			t.Errorf("base valley got solution %d, want 1", c.SolutionNumber)
		}
	}
	if groups := Solutions(ranked); len(groups) != 2 {
		t.Errorf("expected 2 solutions, got %d", len(groups))
	}
}
