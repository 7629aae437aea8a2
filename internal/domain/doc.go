// Package domain implements the flood risk scoring and trend forecasting
// engine. All functions are pure computations over in-memory values: no I/O,
// no locking, no hidden state. Callers may invoke them concurrently.
//
// # Composite Risk Score (0–100)
//
// ComputeRisk follows the FEMA-aligned Risk = Likelihood + Severity split,
// each half contributing up to 50 points:
//
//	Likelihood (0–50):
//	  Rainfall (0–20):   current + 0.8×forecast mm; ≥100→20, ≥75→16, ≥50→12,
//	                     ≥25→8, else linear total/3.125 capped at 8.
//	                     50 mm and 75 mm are flash-flood guidance cutoffs.
//	  River stage (0–15): stage/flood-stage ratio; ≥1.0→15, ≥0.9→12, ≥0.8→10,
//	                     ≥0.7→7, else min(7, ratio×10). Only scored when both
//	                     stage and flood stage are positive.
//	  Flow rate (0–10):  ≥50000 CFS→10, ≥20000→8, ≥10000→6,
//	                     else min(6, flow/10000×6).
//	  Alerts (0–5):      min(5, count×2.5), saturating at two active alerts.
//
//	Severity (0–50):
//	  Elevation (0–15):  inverse; <50 m→15, <100→12, <150→8, <200→5,
//	                     else max(0, 15−elevation/40).
//	  Proximity (0–15):  inverse; <0.5 km→15, <1→12, <2→9, <5→5,
//	                     else max(0, 15−distance×1.5).
//	  Historical (0–10): min(10, events×2).
//	  Population (0–10): ≥3000/km²→10, ≥2000→8, ≥1000→5, else min(5, d/200).
//
// Levels at fixed breakpoints: ≥80 Extreme, ≥65 Critical, ≥50 High,
// ≥35 Moderate, ≥20 Low, else Very Low. The breakpoints and the associated
// display colors are a compatibility contract with the dashboard frontend;
// do not adjust them.
//
// # Two Risk Scales
//
// The composite score above is 0–100. Watershed snapshots, flow-only scoring
// (FlowRisk) and the trend forecaster operate on a separate 0–10 scale with
// its own LOW/MODERATE/HIGH/CRITICAL levels at 4/6/8. Both scales are wire
// contracts with the frontend and are deliberately not unified; convert only
// at integration boundaries if a caller needs both.
//
// # Trend Forecasting
//
// ForecastWatershed extrapolates streamflow linearly from the trend rate and
// applies an exponential decay with a 24-hour constant so trends weaken over
// long horizons instead of running away. Forecast confidence starts at 0.9
// and takes multiplicative discounts for stale data (>2 h), unstable trends
// (<0.7) and long horizons (>24 h).
//
// # Time
//
// Data-age and timestamp derivations use a package-level clockwork clock so
// tests can freeze time via SetClock. See clock.go.
package domain
