package valley

// span is one pending search interval on the extraction stack.
// lo and hi are 0-based inclusive positions into the profile; level is the
// reachability value of the spike that detached the interval, and source is
// that spike's position (BaseSourcePeak for the root interval).
type span struct {
	lo, hi int
	level  float64
	source int
}

// Extract decomposes the profile into its nested family of full valleys and
// returns every valley whose size fraction meets cutoffFrac. The result is
// unranked; pass it to Rank for solution/cluster numbering.
//
// The decomposition splits each interval at its highest interior spike
// (leftmost on ties). The spike point becomes the first point of the right
// sub-valley — it is the entry spike at which the right cluster begins — so
// the leaves of the unfiltered decomposition partition the profile exactly.
// Intervals below the cutoff are discarded without recursing: their points
// fall back to the noise class by omission.
//
// An empty result is a valid outcome ("no clusters at this cutoff"), not an
// error. The only failure modes are malformed inputs.
func Extract(p *Profile, cutoffFrac float64) ([]Cluster, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if cutoffFrac <= 0 || cutoffFrac >= 1 {
		return nil, ErrInvalidCutoff
	}

	n := p.Len()
	reach := p.Reachability
	out := []Cluster{}

	// Explicit stack rather than call recursion: highly fragmented profiles
	// can nest O(n) deep.
	stack := make([]span, 0, 16)
	stack = append(stack, span{lo: 0, hi: n - 1, level: 0, source: BaseSourcePeak})

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		size := s.hi - s.lo + 1
		if float64(size)/float64(n) < cutoffFrac {
			continue
		}

		peakIdx, ok := interiorPeak(reach, s.lo, s.hi)
		if !ok {
			// No splitting spike: the interval is a leaf valley at the
			// level it was detached at.
			out = append(out, newCluster(s))
			continue
		}

		// Record the interval itself as a full valley before drilling in:
		// parent blocks that subsume smaller children are part of the
		// extracted family.
		out = append(out, newCluster(s))

		peak := reach[peakIdx]
		// Right first so the left interval pops first, keeping the output
		// in depth-first left-to-right order.
		stack = append(stack, span{lo: peakIdx, hi: s.hi, level: peak, source: peakIdx})
		stack = append(stack, span{lo: s.lo, hi: peakIdx - 1, level: peak, source: peakIdx})
	}

	return out, nil
}

// interiorPeak returns the position of the maximum reachability value
// strictly inside (lo, hi), leftmost on ties. It reports false when the
// interval has no interior point or when the interior maximum does not rise
// above the interval minimum — a flat valley floor has no spike to split at.
func interiorPeak(reach []float64, lo, hi int) (int, bool) {
	if hi-lo < 2 {
		return 0, false
	}

	peakIdx := lo + 1
	for i := lo + 2; i < hi; i++ {
		if reach[i] > reach[peakIdx] {
			peakIdx = i
		}
	}

	floor := reach[lo]
	for i := lo + 1; i <= hi; i++ {
		if reach[i] < floor {
			floor = reach[i]
		}
	}
	if !(reach[peakIdx] > floor) {
		return 0, false
	}
	return peakIdx, true
}

func newCluster(s span) Cluster {
	return Cluster{
		Start:      s.lo + 1, // 1-based bounds in the published contract
		End:        s.hi + 1,
		Level:      s.level,
		SourcePeak: s.source,
		Size:       s.hi - s.lo + 1,
	}
}

// Leaves computes the finest unfiltered partition of the profile: the leaf
// intervals of the full recursive decomposition with no size cutoff applied.
// Every profile position belongs to exactly one leaf. Exposed for diagnostics
// and invariant tests; Extract applies the cutoff and keeps parents too.
func Leaves(p *Profile) ([]Cluster, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	reach := p.Reachability
	out := []Cluster{}
	stack := []span{{lo: 0, hi: p.Len() - 1, level: 0, source: BaseSourcePeak}}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		peakIdx, ok := interiorPeak(reach, s.lo, s.hi)
		if !ok {
			out = append(out, newCluster(s))
			continue
		}
		peak := reach[peakIdx]
		stack = append(stack, span{lo: peakIdx, hi: s.hi, level: peak, source: peakIdx})
		stack = append(stack, span{lo: s.lo, hi: peakIdx - 1, level: peak, source: peakIdx})
	}

	return out, nil
}
