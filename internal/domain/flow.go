package domain

import (
	"math"
	"strconv"
)

// Watershed-scale risk levels (0–10 scale). Distinct from the composite
// RiskLevel values; both are frontend contracts.
const (
	FlowRiskLow      = "Low"
	FlowRiskModerate = "Moderate"
	FlowRiskHigh     = "High"
	FlowRiskCritical = "CRITICAL"
)

// FlowRiskLevel maps a 0–10 watershed risk score to its level label:
// ≥8 CRITICAL, ≥6 HIGH, ≥4 MODERATE, else LOW.
func FlowRiskLevel(score float64) string {
	switch {
	case score >= 8:
		return "CRITICAL"
	case score >= 6:
		return "HIGH"
	case score >= 4:
		return "MODERATE"
	default:
		return "LOW"
	}
}

// FlowRisk scores a watershed from streamflow alone on the 0–10 scale.
// With a known flood stage the score tracks the flow/stage ratio; without
// one it falls back to absolute-flow buckets. Used between the collector
// and the snapshot store when only gauge data is available.
func FlowRisk(streamflowCFS, floodStageCFS float64) (string, float64) {
	var level string
	var score float64

	switch {
	case floodStageCFS > 0 && streamflowCFS >= floodStageCFS:
		level = FlowRiskHigh
		score = math.Min(10, 7+(streamflowCFS/floodStageCFS-1)*3)
	case floodStageCFS > 0 && streamflowCFS >= floodStageCFS*0.8:
		level = FlowRiskModerate
		ratio := streamflowCFS / floodStageCFS
		score = 4 + (ratio-0.8)*15 // 4.0 to 7.0 across the 80–99% band
	case streamflowCFS > 1000:
		level = FlowRiskModerate
		score = math.Min(7, 3+(streamflowCFS/2000)*2)
	case streamflowCFS > 500:
		level = FlowRiskLow
		score = 2 + streamflowCFS/500
	default:
		level = FlowRiskLow
		score = math.Min(3, math.Max(0.5, streamflowCFS/200))
	}

	return level, round1(score)
}

// FlowTrend classifies the flow's direction of change between two readings.
// A ±1 CFS/h dead band reads as stable; a non-positive interval always reads
// as stable at rate zero.
func FlowTrend(currentCFS, previousCFS, hoursBetween float64) (string, float64) {
	if hoursBetween <= 0 {
		return "stable", 0
	}
	rate := (currentCFS - previousCFS) / hoursBetween
	trend := "stable"
	switch {
	case math.Abs(rate) < 1:
		trend = "stable"
	case rate > 0:
		trend = "rising"
	default:
		trend = "falling"
	}
	return trend, round1(rate)
}

func formatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
