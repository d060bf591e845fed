package sqlite

import (
	"github.com/mcbj-data/conductance.report/internal/multires"
)

// Domain types persisted by the archive store, aliased so callers reading
// archives back do not need to import the runner package separately.

// ResultsEnvelope is the complete multi-resolution sweep for one dataset.
type ResultsEnvelope = multires.Results

// Output is the cached clustering output of one sensitivity parameter.
type Output = multires.Output
