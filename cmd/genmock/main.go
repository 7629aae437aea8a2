// Command genmock generates deterministic watershed fixtures for test suites
// and frontend development. It uses the actual domain scoring and forecast
// code so the fixtures match real service behavior, with a fixed clock for
// reproducible timestamps.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -snapshots-out data/mock/watersheds.json \
//	  -forecast-out data/mock/forecast_24h.json \
//	  -hours 24
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/riverwatch/flood-risk-service/internal/domain"
)

// fixtureTime pins every generated timestamp; bump it deliberately when
// regenerating fixtures so test assertions fail loudly instead of drifting.
var fixtureTime = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

// seed describes one synthetic watershed in terms of its gauge conditions.
type seed struct {
	id            string
	name          string
	basinSqMi     float64
	flowCFS       float64
	floodStageCFS float64
	trend         string
	rateCFSPerHr  float64
	stability     float64
	ageHours      float64
}

// seeds covers the interesting states: a watershed near flood stage and
// rising, one falling after a crest, one stable and quiet, and one with a
// stale reading to exercise the confidence discount.
var seeds = []seed{
	{"trinity", "Trinity River Basin", 6106, 44200, 49000, "rising", 310, 0.9, 0.25},
	{"brazos", "Brazos River Basin", 44620, 21800, 65000, "falling", -180, 0.85, 0.5},
	{"guadalupe", "Guadalupe River Basin", 5953, 3400, 18000, "stable", 0.4, 0.95, 0.25},
	{"neches", "Neches River Basin", 10011, 9100, 30000, "rising", 95, 0.45, 14},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	snapshotsOut := flag.String("snapshots-out", "", "output path for watershed snapshots JSON")
	forecastOut := flag.String("forecast-out", "", "output path for forecast JSON")
	hours := flag.Int("hours", 24, "forecast horizon in hours")
	flag.Parse()

	if *snapshotsOut == "" || *forecastOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -snapshots-out, -forecast-out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	snapshots := make([]domain.WatershedSnapshot, 0, len(seeds))
	for _, s := range seeds {
		level, score := domain.FlowRisk(s.flowCFS, s.floodStageCFS)
		snapshots = append(snapshots, domain.WatershedSnapshot{
			ID:                   s.id,
			Name:                 s.name,
			BasinSizeSqMi:        s.basinSqMi,
			CurrentStreamflowCFS: s.flowCFS,
			RiskScore:            score,
			RiskLevel:            level,
			FloodStageCFS:        s.floodStageCFS,
			Trend:                s.trend,
			TrendRateCFSPerHour:  s.rateCFSPerHr,
			TrendStability:       s.stability,
			LastUpdated:          fixtureTime.Add(-time.Duration(s.ageHours * float64(time.Hour))),
		})
		log.Printf("%s: flow=%.0f risk=%.1f (%s)", s.id, s.flowCFS, score, level)
	}

	if err := writeJSON(*snapshotsOut, snapshots); err != nil {
		return fmt.Errorf("writing snapshots fixture: %w", err)
	}
	log.Printf("wrote snapshots fixture: %s", *snapshotsOut)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	forecast := domain.Forecast(snapshots, *hours, logger)

	if err := writeJSON(*forecastOut, forecast); err != nil {
		return fmt.Errorf("writing forecast fixture: %w", err)
	}
	log.Printf("wrote forecast fixture: %s", *forecastOut)

	printStats(snapshots, forecast)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(snapshots []domain.WatershedSnapshot, forecast domain.ForecastResult) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Watersheds: %d, horizon: %dh, overall confidence: %.2f\n",
		len(snapshots), forecast.HorizonHours, forecast.OverallConfidence)

	for _, f := range forecast.Watersheds {
		fmt.Printf("  %-10s flow %.0f -> %.0f, risk %.1f -> %.1f (%s), confidence %.2f\n",
			f.WatershedID, f.CurrentFlowCFS, f.PredictedFlowCFS,
			f.CurrentRiskScore, f.PredictedRiskScore, f.PredictedRiskLevel, f.Confidence)
	}

	if est := domain.PredictCriticalPeriod(snapshots); est != nil {
		fmt.Printf("\nCritical period: %s in %.1fh (%s, %s severity, %.0f%% confidence)\n",
			est.PrimaryWatershed, est.HoursToCritical, est.Timeframe, est.Severity, est.Confidence)
	} else {
		fmt.Println("\nNo critical period predicted.")
	}
}
