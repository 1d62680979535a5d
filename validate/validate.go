// Package validate decides whether a chip's two hit representations agree.
package validate

import "github.com/pithecene-io/chipstream/types"

// Verdict is the outcome of validating one chip.
type Verdict int

const (
	// Reject excludes the chip from the output streams.
	Reject Verdict = iota
	// Accept admits the chip's stream record.
	Accept
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Counts compares a raw-hit count against a cluster-hit count.
func Counts(raw, cluster int) Verdict {
	if raw == cluster {
		return Accept
	}
	return Reject
}

// ClusterHits returns the number of hits across all clusters.
func ClusterHits(clusters []types.Cluster) int {
	n := 0
	for _, c := range clusters {
		n += len(c.Hits)
	}
	return n
}

// Chip accepts a chip iff it has exactly as many raw hits as cluster hits.
// A chip with no hits at all is accepted.
func Chip(hits []types.RawHit, clusters []types.Cluster) Verdict {
	return Counts(len(hits), ClusterHits(clusters))
}
