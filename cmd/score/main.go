// Command score runs the flood risk methodology against a single set of
// measurements and prints the component breakdown. It is a debugging aid for
// tuning the scoring weights without standing up the full service.
//
// Usage:
//
//	go run ./cmd/score -input measurement.json
//	echo '{"current_rainfall_mm": 80}' | go run ./cmd/score
//
// Fields omitted from the input JSON keep the baseline defaults. The process
// exits 2 when the computed level is High or worse, for use in scripts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/riverwatch/flood-risk-service/internal/domain"
)

func main() {
	input := flag.String("input", "", "path to measurement JSON (default: stdin)")
	asJSON := flag.Bool("json", false, "print the full result as JSON")
	flag.Parse()

	code, err := run(*input, *asJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "score: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(input string, asJSON bool) (int, error) {
	var r io.Reader = os.Stdin
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return 1, err
		}
		defer f.Close()
		r = f
	}

	m := domain.DefaultMeasurement()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return 1, fmt.Errorf("decoding measurement: %w", err)
	}

	result := domain.ComputeRisk(m.ApplyDefaults())

	if asJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return 1, err
		}
		fmt.Println(string(out))
	} else {
		printBreakdown(result)
	}

	if result.RiskLevel == domain.RiskHigh || result.RiskLevel == domain.RiskCritical || result.RiskLevel == domain.RiskExtreme {
		return 2, nil
	}
	return 0, nil
}

func printBreakdown(r domain.RiskResult) {
	fmt.Printf("Overall score:  %.1f / 100\n", r.OverallScore)
	fmt.Printf("Risk level:     %s (%s)\n", r.RiskLevel, r.RiskColor)
	fmt.Printf("Immediate risk: %v\n", r.ImmediateRisk)
	fmt.Println()

	l := r.Components.Likelihood
	fmt.Printf("Likelihood      %5.1f / 50\n", l.Total)
	fmt.Printf("  rainfall      %5.1f\n", l.Rainfall)
	fmt.Printf("  river stage   %5.1f\n", l.RiverStage)
	fmt.Printf("  flow rate     %5.1f\n", l.FlowRate)
	fmt.Printf("  alerts        %5.1f\n", l.Alerts)

	s := r.Components.Severity
	fmt.Printf("Severity        %5.1f / 50\n", s.Total)
	fmt.Printf("  elevation     %5.1f\n", s.Elevation)
	fmt.Printf("  proximity     %5.1f\n", s.Proximity)
	fmt.Printf("  historical    %5.1f\n", s.Historical)
	fmt.Printf("  population    %5.1f\n", s.Population)
}
