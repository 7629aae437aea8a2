package domain

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// trendWindow is how many recent observations feed the regression.
const trendWindow = 6

// RiskObservation is one point in a regional risk history series. Callers own
// the series and pass it in explicitly; the engine keeps no hidden history.
type RiskObservation struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"` // 0–10 regional scale
	Level     string    `json:"level"`
}

// TrendAnalysis summarizes the direction and speed of regional risk change.
type TrendAnalysis struct {
	Direction string  `json:"direction"` // "Increasing", "Decreasing", "Stable", "Insufficient data"
	Rate      float64 `json:"rate"`      // absolute change per hour on a percentage-like scale
	Trend     string  `json:"trend"`     // "up", "down", "stable"
}

// RegionalAssessment is the aggregate risk picture across all watersheds.
type RegionalAssessment struct {
	Score  float64 `json:"score"` // 0–10, basin-size weighted
	Level  string  `json:"level"`
	Change float64 `json:"change"` // vs. the previous observation
	Trend  string  `json:"trend"`  // "up", "down", "stable"
}

// PeakRiskWindow predicts when regional risk will peak, derived from the
// current trend. Only produced while risk is rising meaningfully.
type PeakRiskWindow struct {
	HoursToPeak float64   `json:"hours_to_peak"`
	PeakTime    time.Time `json:"peak_time"`
	Timeframe   string    `json:"timeframe"`
	Confidence  float64   `json:"confidence"` // percent
	Severity    string    `json:"severity"`   // "high" or "moderate"
}

// AssessRegionalRisk computes the basin-size-weighted mean risk across
// watersheds on the 0–10 scale. Change and trend direction come from the
// last entry of the caller-supplied history; a ±0.5 dead band reads as
// stable. Empty input yields an "Unknown" assessment.
func AssessRegionalRisk(snapshots []WatershedSnapshot, history []RiskObservation) RegionalAssessment {
	if len(snapshots) == 0 {
		return RegionalAssessment{Level: "Unknown", Trend: "stable"}
	}

	var totalScore, totalWeight float64
	for _, s := range snapshots {
		weight := s.BasinSizeSqMi
		if weight <= 0 {
			weight = 1
		}
		totalScore += s.RiskScore * weight
		totalWeight += weight
	}

	var avg float64
	if totalWeight > 0 {
		avg = totalScore / totalWeight
	}

	assessment := RegionalAssessment{
		Score: avg,
		Level: FlowRiskLevel(avg),
		Trend: "stable",
	}
	if len(history) > 0 {
		assessment.Change = avg - history[len(history)-1].Score
		if math.Abs(assessment.Change) > 0.5 {
			if assessment.Change > 0 {
				assessment.Trend = "up"
			} else {
				assessment.Trend = "down"
			}
		}
	}
	return assessment
}

// TrimHistory drops observations older than the window, preserving order.
// Callers apply it after appending so the series stays bounded.
func TrimHistory(history []RiskObservation, window time.Duration) []RiskObservation {
	cutoff := clock.Now().Add(-window)
	trimmed := history[:0]
	for _, obs := range history {
		if obs.Timestamp.After(cutoff) {
			trimmed = append(trimmed, obs)
		}
	}
	return trimmed
}

// AnalyzeTrend fits a least-squares line through the last six observations
// and classifies the slope. Rate is |slope|×10, a percentage-like per-hour
// figure the dashboard displays directly; a ±0.5 dead band reads as stable.
func AnalyzeTrend(history []RiskObservation) TrendAnalysis {
	if len(history) < 2 {
		return TrendAnalysis{Direction: "Insufficient data", Trend: "stable"}
	}

	recent := history
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}

	origin := recent[0].Timestamp
	hours := make([]float64, len(recent))
	scores := make([]float64, len(recent))
	for i, obs := range recent {
		hours[i] = obs.Timestamp.Sub(origin).Hours()
		scores[i] = obs.Score
	}

	// Degenerate time spread (all observations at one instant) has no slope.
	if hours[0] == hours[len(hours)-1] {
		return TrendAnalysis{Direction: "Stable", Trend: "stable"}
	}

	_, slope := stat.LinearRegression(hours, scores, nil, false)
	rate := slope * 10

	switch {
	case rate > 0.5:
		return TrendAnalysis{Direction: "Increasing", Rate: math.Abs(rate), Trend: "up"}
	case rate < -0.5:
		return TrendAnalysis{Direction: "Decreasing", Rate: math.Abs(rate), Trend: "down"}
	default:
		return TrendAnalysis{Direction: "Stable", Rate: math.Abs(rate), Trend: "stable"}
	}
}

// PredictPeakRisk estimates the regional risk peak from the history trend.
// Returns nil unless risk is rising at more than 1 point-per-hour equivalent
// or fewer than three observations exist. Faster rises peak sooner and carry
// more confidence.
func PredictPeakRisk(history []RiskObservation) *PeakRiskWindow {
	if len(history) < 3 {
		return nil
	}
	trend := AnalyzeTrend(history)
	if trend.Trend != "up" || trend.Rate <= 1 {
		return nil
	}

	hoursToPeak := math.Max(2, 10-trend.Rate)
	severity := "moderate"
	if trend.Rate > 3 {
		severity = "high"
	}
	return &PeakRiskWindow{
		HoursToPeak: hoursToPeak,
		PeakTime:    clock.Now().UTC().Add(time.Duration(hoursToPeak * float64(time.Hour))),
		Timeframe:   "Next " + formatFloat(hoursToPeak, 0) + " hours",
		Confidence:  math.Min(90, 60+trend.Rate*5),
		Severity:    severity,
	}
}
