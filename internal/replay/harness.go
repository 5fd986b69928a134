// Package replay re-evaluates recorded capture metrics through a quality gate
// so a candidate threshold policy can be compared with the recorded verdicts.
package replay

import (
	"sort"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
)

// #region types
// Record is one recorded gate evaluation.
type Record struct {
	ID           string
	DocumentType string
	Metrics      gate.Metrics
	Recorded     gate.Verdict
}

// Result captures the outcome of replaying one record.
type Result struct {
	ID       string
	Metrics  gate.Metrics
	Recorded gate.Verdict
	Replayed gate.Verdict
	Diverged bool
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Total     int
	Accepted  int
	Rejected  int
	ByReason  map[gate.ReasonCode]int
	Diverged  int
	Flipped   int // accept/reject outcome changed, not just the reason
	Divergent []string
}

// #endregion types

// #region replay
// Replay evaluates every record with g. A nil g uses the default thresholds.
// Operates entirely in-memory.
func Replay(records []Record, g *gate.Gate) []Result {
	if g == nil {
		g = gate.NewGate(gate.DefaultThresholds())
	}
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		v := g.Evaluate(rec.Metrics)
		results = append(results, Result{
			ID:       rec.ID,
			Metrics:  rec.Metrics,
			Recorded: rec.Recorded,
			Replayed: v,
			Diverged: v.Accepted != rec.Recorded.Accepted || v.Reason != rec.Recorded.Reason,
		})
	}
	return results
}

// Summarize computes aggregate stats over the replayed verdicts.
func Summarize(results []Result) Summary {
	s := Summary{
		Total:    len(results),
		ByReason: make(map[gate.ReasonCode]int),
	}
	for _, r := range results {
		if r.Replayed.Accepted {
			s.Accepted++
		} else {
			s.Rejected++
			s.ByReason[r.Replayed.Reason]++
		}
		if r.Diverged {
			s.Diverged++
			s.Divergent = append(s.Divergent, r.ID)
			if r.Replayed.Accepted != r.Recorded.Accepted {
				s.Flipped++
			}
		}
	}
	sort.Strings(s.Divergent)
	return s
}

// #endregion replay
