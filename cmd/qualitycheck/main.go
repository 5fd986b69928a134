package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/smartkyc/internal/analysis"
	"github.com/danielpatrickdp/smartkyc/internal/codec"
	"github.com/danielpatrickdp/smartkyc/internal/gate"
)

// #region main

func main() {
	blur := flag.Float64("blur", -1, "blur metric in [0,1]")
	glare := flag.Float64("glare", -1, "glare metric in [0,1]")
	shadow := flag.Float64("shadow", -1, "shadow metric in [0,1]")
	coverage := flag.Float64("coverage", -1, "coverage metric in [0,1]")
	image := flag.String("image", "", "path to a frame to analyze instead of passing metrics")
	remote := flag.String("remote", "", "analyze via the gRPC analysis service at this address")
	jsonOut := flag.Bool("json", false, "output as JSON")
	flag.Parse()

	var m gate.Metrics
	if *image != "" {
		frame, err := os.ReadFile(*image)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read image: %v\n", err)
			os.Exit(1)
		}
		m, err = analyze(frame, *remote)
		if err != nil {
			fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
			os.Exit(1)
		}
	} else {
		m = gate.Metrics{Blur: *blur, Glare: *glare, Shadow: *shadow, Coverage: *coverage}
		if err := m.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "usage: qualitycheck --blur B --glare G --shadow S --coverage C [--json]")
			fmt.Fprintln(os.Stderr, "       qualitycheck --image path/to/frame [--remote host:port] [--json]")
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
	}

	v := gate.Evaluate(m)
	if *jsonOut {
		out, _ := json.MarshalIndent(struct {
			Metrics gate.Metrics `json:"metrics"`
			Verdict gate.Verdict `json:"verdict"`
		}{m, v}, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Printf("blur=%.3f glare=%.3f shadow=%.3f coverage=%.3f\n", m.Blur, m.Glare, m.Shadow, m.Coverage)
		if v.Accepted {
			fmt.Println("ACCEPTED")
		} else {
			fmt.Printf("REJECTED (%s): %s\n", v.Reason, v.Message)
		}
	}
	if !v.Accepted {
		os.Exit(1)
	}
}

// #endregion main

// #region analyze

func analyze(frame []byte, remote string) (gate.Metrics, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if remote == "" {
		return analysis.NewFrameAnalyzer(analysis.DefaultFrameConfig()).Analyze(ctx, frame)
	}
	client, err := codec.NewClient(remote)
	if err != nil {
		return gate.Metrics{}, err
	}
	defer client.Close()
	return client.Analyze(ctx, frame)
}

// #endregion analyze
