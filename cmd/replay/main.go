package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/replay"
	"github.com/danielpatrickdp/smartkyc/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to smartkyc.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	appID := flag.String("app", "", "limit DB mode to one application")
	limit := flag.Int("limit", 1000, "max capture attempts in DB mode")
	maxBlur := flag.Float64("max-blur", -1, "candidate blur threshold")
	maxGlare := flag.Float64("max-glare", -1, "candidate glare threshold")
	maxShadow := flag.Float64("max-shadow", -1, "candidate shadow threshold")
	minCoverage := flag.Float64("min-coverage", -1, "candidate coverage threshold")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/smartkyc.db [--app id] [--limit N] [threshold flags]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json [threshold flags]")
		os.Exit(2)
	}

	var f *replay.Fixture
	var err error
	if *fixturePath != "" {
		f, err = replay.LoadFixture(*fixturePath)
	} else {
		f, err = loadFromDB(*dbPath, *appID, *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load captures: %v\n", err)
		os.Exit(2)
	}
	if len(f.Captures) == 0 {
		fmt.Fprintln(os.Stderr, "no capture attempts found")
		os.Exit(2)
	}

	f.Thresholds = mergeOverride(f.Thresholds, *maxBlur, *maxGlare, *maxShadow, *minCoverage)
	g := f.Gate()
	os.Exit(printComparison(replay.Replay(f.Records(), g), g.Thresholds()))
}

// #endregion main

// #region extract

func loadFromDB(dbPath, appID string, limit int) (*replay.Fixture, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer st.Close()
	return replay.FixtureFromStore(st, appID, limit)
}

// mergeOverride layers non-negative flag values over the fixture's override.
func mergeOverride(o *replay.ThresholdsOverride, blur, glare, shadow, coverage float64) *replay.ThresholdsOverride {
	set := func(dst **float64, v float64) {
		if v >= 0 {
			*dst = &v
		}
	}
	if o == nil {
		o = &replay.ThresholdsOverride{}
	}
	set(&o.MaxBlur, blur)
	set(&o.MaxGlare, glare)
	set(&o.MaxShadow, shadow)
	set(&o.MinCoverage, coverage)
	return o
}

// #endregion extract

// #region output

// printComparison outputs a comparison table and returns the exit code:
// 0 when every verdict matches, 1 otherwise.
func printComparison(results []replay.Result, th gate.Thresholds) int {
	fmt.Printf("Thresholds: blur>%.2f glare>%.2f shadow>%.2f coverage<%.2f\n\n",
		th.MaxBlur, th.MaxGlare, th.MaxShadow, th.MinCoverage)
	fmt.Printf("%-12s| %-22s| %-22s| %s\n", "Capture", "Recorded", "Replayed", "Match")
	fmt.Printf("%-12s+%-23s+%-23s+%s\n",
		"------------", "-----------------------", "-----------------------", "------")

	for _, r := range results {
		match := "OK"
		if r.Diverged {
			match = "DIFF"
		}
		fmt.Printf("%-12s| %-22s| %-22s| %s\n", shortID(r.ID), label(r.Recorded), label(r.Replayed), match)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d accepted, %d rejected, %d diverge (%d flipped)\n",
		s.Total, s.Accepted, s.Rejected, s.Diverged, s.Flipped)
	for _, reason := range gate.Reasons() {
		if n := s.ByReason[reason]; n > 0 {
			fmt.Printf("  %-22s %d\n", reason, n)
		}
	}

	if s.Diverged > 0 {
		return 1
	}
	return 0
}

func label(v gate.Verdict) string {
	if v.Accepted {
		return "accept"
	}
	return "reject:" + string(v.Reason)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
