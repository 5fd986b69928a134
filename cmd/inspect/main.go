package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gonum.org/v1/gonum/stat"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/kyc"
	"github.com/danielpatrickdp/smartkyc/internal/logging"
	"github.com/danielpatrickdp/smartkyc/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to smartkyc.db")
	last := flag.Int("last", 20, "show N most recent applications")
	appID := flag.String("app", "", "show single application detail")
	captures := flag.Int("captures", 50, "max capture attempts in detail mode")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/smartkyc.db [--last N] [--app id] [--captures N] [--json]")
		os.Exit(2)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *appID != "" {
		err = runDetailMode(st, *appID, *captures, *jsonOut)
	} else {
		err = runListMode(st, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
	RiskScore     *int   `json:"risk_score,omitempty"`
	Captures      int    `json:"captures"`
	Rejected      int    `json:"rejected"`
	CreatedAt     string `json:"created_at"`
}

func runListMode(st *store.Store, last int, jsonOut bool) error {
	apps, err := st.ListApplications(last)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		fmt.Fprintln(os.Stderr, "no applications found")
		return nil
	}

	rows := make([]listRow, len(apps))
	for i, app := range apps {
		caps, err := st.ListCaptures(app.ID, 1000)
		if err != nil {
			return err
		}
		rejected := 0
		for _, c := range caps {
			if !c.Verdict.Accepted {
				rejected++
			}
		}
		rows[i] = listRow{
			ApplicationID: app.ID,
			Status:        string(app.Status),
			RiskScore:     app.RiskScore,
			Captures:      len(caps),
			Rejected:      rejected,
			CreatedAt:     app.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-12s  %-24s  %5s  %8s  %8s  %s\n", "App", "Status", "Risk", "Captures", "Rejected", "Created")
	fmt.Printf("%-12s+-%-24s+-%5s+-%8s+-%8s+-%s\n",
		"------------", "------------------------", "-----", "--------", "--------", "--------------------")
	for _, r := range rows {
		risk := "-"
		if r.RiskScore != nil {
			risk = fmt.Sprintf("%d", *r.RiskScore)
		}
		fmt.Printf("%-12s  %-24s  %5s  %8d  %8d  %s\n",
			shortID(r.ApplicationID), r.Status, risk, r.Captures, r.Rejected, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	Application *kyc.Application          `json:"application"`
	Captures    []kyc.CaptureAttempt      `json:"captures"`
	Quality     *qualityStats             `json:"quality,omitempty"`
	Provenance  []logging.ProvenanceEntry `json:"provenance"`
}

// qualityStats summarizes the metrics of every capture attempt.
type qualityStats struct {
	MeanBlur     float64                 `json:"mean_blur"`
	MeanGlare    float64                 `json:"mean_glare"`
	MeanShadow   float64                 `json:"mean_shadow"`
	MeanCoverage float64                 `json:"mean_coverage"`
	ByReason     map[gate.ReasonCode]int `json:"by_reason"`
}

func runDetailMode(st *store.Store, appID string, limit int, jsonOut bool) error {
	app, err := st.GetApplication(appID)
	if err != nil {
		return err
	}
	caps, err := st.ListCaptures(appID, limit)
	if err != nil {
		return err
	}
	prov, err := logging.ListDecisions(st.DB(), appID, "", 1000)
	if err != nil {
		return err
	}

	out := detailOutput{Application: app, Captures: caps, Quality: summarizeQuality(caps), Provenance: prov}
	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Application: %s\n", app.ID)
	fmt.Printf("Status:      %s\n", app.Status)
	fmt.Printf("Created:     %s\n", app.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Updated:     %s\n", app.UpdatedAt.Format("2006-01-02T15:04:05Z"))
	if app.RiskScore != nil {
		fmt.Printf("Risk Score:  %d\n", *app.RiskScore)
	}
	for _, e := range app.Explanations {
		fmt.Printf("  - %s\n", e)
	}

	if q := out.Quality; q != nil {
		fmt.Printf("\nCapture quality (%d attempts):\n", len(caps))
		fmt.Printf("  %-10s %.3f\n", "blur", q.MeanBlur)
		fmt.Printf("  %-10s %.3f\n", "glare", q.MeanGlare)
		fmt.Printf("  %-10s %.3f\n", "shadow", q.MeanShadow)
		fmt.Printf("  %-10s %.3f\n", "coverage", q.MeanCoverage)
		for _, r := range gate.Reasons() {
			if n := q.ByReason[r]; n > 0 {
				fmt.Printf("  rejected %-22s %d\n", r, n)
			}
		}
	}

	fmt.Printf("\nProvenance:\n")
	for _, e := range prov {
		fmt.Printf("  %s  %-12s  %-8s  %-22s  %s\n",
			e.CreatedAt.Format("15:04:05.000"), e.Stage, e.TriggerType, e.Decision, e.Reason)
	}
	return nil
}

func summarizeQuality(caps []kyc.CaptureAttempt) *qualityStats {
	if len(caps) == 0 {
		return nil
	}
	blur := make([]float64, len(caps))
	glare := make([]float64, len(caps))
	shadow := make([]float64, len(caps))
	coverage := make([]float64, len(caps))
	byReason := make(map[gate.ReasonCode]int)
	for i, c := range caps {
		blur[i] = c.Metrics.Blur
		glare[i] = c.Metrics.Glare
		shadow[i] = c.Metrics.Shadow
		coverage[i] = c.Metrics.Coverage
		if !c.Verdict.Accepted {
			byReason[c.Verdict.Reason]++
		}
	}
	return &qualityStats{
		MeanBlur:     stat.Mean(blur, nil),
		MeanGlare:    stat.Mean(glare, nil),
		MeanShadow:   stat.Mean(shadow, nil),
		MeanCoverage: stat.Mean(coverage, nil),
		ByReason:     byReason,
	}
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
