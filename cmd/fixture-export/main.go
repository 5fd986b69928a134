package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/smartkyc/internal/replay"
	"github.com/danielpatrickdp/smartkyc/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to smartkyc.db")
	last := flag.Int("last", 50, "number of most recent evaluations to export")
	appID := flag.String("app", "", "export only this application")
	source := flag.String("source", "captures", "captures | provenance")
	description := flag.String("description", "", "fixture description")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--last N] [--app id] [--source captures|provenance]")
		os.Exit(2)
	}

	if err := run(*dbPath, *appID, *source, *description, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, appID, source, description string, last int, outPath string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	var f *replay.Fixture
	switch source {
	case "captures":
		f, err = replay.FixtureFromStore(st, appID, last)
	case "provenance":
		var skipped int
		f, skipped, err = replay.FixtureFromProvenance(st, appID, last)
		if skipped > 0 {
			fmt.Fprintf(os.Stderr, "warning: skipped %d provenance rows with unreadable signals\n", skipped)
		}
	default:
		return fmt.Errorf("unknown source %q", source)
	}
	if err != nil {
		return err
	}
	if len(f.Captures) == 0 {
		return fmt.Errorf("no evaluations found")
	}

	f.Description = description
	if f.Description == "" {
		f.Description = fmt.Sprintf("Exported %d evaluations from %s", len(f.Captures), source)
	}
	if err := replay.WriteFixture(outPath, f); err != nil {
		return err
	}
	fmt.Printf("wrote %d evaluations to %s\n", len(f.Captures), outPath)
	return nil
}

// #endregion extract
