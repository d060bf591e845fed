package valley

import (
	"encoding/json"
	"errors"
	"math"
)

// DefaultCutoffFrac is the default minimum valley size as a fraction of the
// profile length. Callers should pass the cutoff explicitly; this constant
// exists so configuration layers have a single source for the default.
const DefaultCutoffFrac = 0.01

// UndefinedReachability is the sentinel distance for points that start a new
// density-cluster chain (the first point of the profile, and the first point
// after every disconnected region).
var UndefinedReachability = math.Inf(1)

// BaseSourcePeak marks the base valley (the whole profile), which is not
// created by any splitting spike.
const BaseSourcePeak = -1

// Sentinel errors returned by Extract for malformed input. These are caller
// errors and never worth retrying.
var (
	ErrEmptyProfile  = errors.New("valley: empty reachability profile")
	ErrInvalidCutoff = errors.New("valley: cutoff fraction must be in (0, 1)")
	ErrLengthMismatch = errors.New("valley: ordering and reachability lengths differ")
)

// Profile is the ordered output of a density-clustering pass.
// Ordering[i] is the original dataset index of the i-th point in cluster
// order; Reachability[i] is its reachability distance, with
// UndefinedReachability for chain starts.
type Profile struct {
	Ordering     []int
	Reachability []float64
}

// profileJSON is the wire form of Profile. Undefined reachability (+Inf)
// serializes as null, since JSON has no infinity literal.
type profileJSON struct {
	Ordering     []int      `json:"ordering"`
	Reachability []*float64 `json:"reachability"`
}

// MarshalJSON implements json.Marshaler.
func (p Profile) MarshalJSON() ([]byte, error) {
	wire := profileJSON{
		Ordering:     p.Ordering,
		Reachability: make([]*float64, len(p.Reachability)),
	}
	for i := range p.Reachability {
		if !math.IsInf(p.Reachability[i], 1) {
			wire.Reachability[i] = &p.Reachability[i]
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var wire profileJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p.Ordering = wire.Ordering
	p.Reachability = make([]float64, len(wire.Reachability))
	for i, r := range wire.Reachability {
		if r == nil {
			p.Reachability[i] = UndefinedReachability
		} else {
			p.Reachability[i] = *r
		}
	}
	return nil
}

// Len returns the number of clustered units in the profile.
func (p *Profile) Len() int { return len(p.Reachability) }

// Validate checks the structural invariants of the profile.
func (p *Profile) Validate() error {
	if p == nil || len(p.Reachability) == 0 {
		return ErrEmptyProfile
	}
	if p.Ordering != nil && len(p.Ordering) != len(p.Reachability) {
		return ErrLengthMismatch
	}
	return nil
}

// Cluster is one extracted full valley: a contiguous run [Start, End]
// (1-based inclusive bounds into the profile) that survived the size cutoff.
//
// Level is the reachability threshold of the spike that detached this valley
// from its sibling; the base valley carries level 0. SourcePeak is the
// profile position (0-based) of that spike, or BaseSourcePeak for the base
// valley. Two valleys belong to the same solution exactly when they share a
// source peak — levels are never compared by floating-point tolerance.
//
// SolutionNumber and ClusterNumber are zero until assigned by Rank.
type Cluster struct {
	Start      int
	End        int
	Level      float64
	SourcePeak int
	Size       int

	SolutionNumber int
	ClusterNumber  int
}

// clusterJSON is the wire form of Cluster. A level of +Inf (a valley
// detached at an undefined-reachability chain start) serializes as null.
type clusterJSON struct {
	Start          int      `json:"start"`
	End            int      `json:"end"`
	Level          *float64 `json:"level"`
	SourcePeak     int      `json:"source_peak"`
	Size           int      `json:"size"`
	SolutionNumber int      `json:"solution_number,omitempty"`
	ClusterNumber  int      `json:"cluster_number,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c Cluster) MarshalJSON() ([]byte, error) {
	wire := clusterJSON{
		Start:          c.Start,
		End:            c.End,
		SourcePeak:     c.SourcePeak,
		Size:           c.Size,
		SolutionNumber: c.SolutionNumber,
		ClusterNumber:  c.ClusterNumber,
	}
	if !math.IsInf(c.Level, 1) {
		wire.Level = &c.Level
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cluster) UnmarshalJSON(data []byte) error {
	var wire clusterJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.Start = wire.Start
	c.End = wire.End
	c.SourcePeak = wire.SourcePeak
	c.Size = wire.Size
	c.SolutionNumber = wire.SolutionNumber
	c.ClusterNumber = wire.ClusterNumber
	if wire.Level == nil {
		c.Level = UndefinedReachability
	} else {
		c.Level = *wire.Level
	}
	return nil
}

// Contains reports whether c's interval contains o's (not necessarily
// strictly).
func (c Cluster) Contains(o Cluster) bool {
	return c.Start <= o.Start && o.End <= c.End
}
