package domain

import "math"

// ComputeRisk scores a measurement on the 0–100 composite scale. It is a
// total function: any finite non-negative input produces a bounded result,
// and degenerate inputs (zero flood stage, zero distances) contribute a zero
// sub-score instead of failing.
func ComputeRisk(m Measurement) RiskResult {
	rainfall := rainfallScore(m.CurrentRainfallMM, m.ForecastRainfallMM)
	stage := stageScore(m.RiverStageFT, m.FloodStageFT)
	flow := flowScore(m.FlowCFS)
	alerts := alertScore(m.WeatherAlerts)
	likelihood := rainfall + stage + flow + alerts

	elevation := elevationScore(m.ElevationM)
	proximity := proximityScore(m.DistanceToWaterKM)
	historical := historicalScore(m.HistoricalEvents)
	population := populationScore(m.PopulationDensity)
	severity := elevation + proximity + historical + population

	total := likelihood + severity
	level := ClassifyRisk(total)

	return RiskResult{
		OverallScore:  round1(total),
		RiskLevel:     level,
		RiskColor:     level.Color(),
		ImmediateRisk: immediateRisk(m),
		Components: ComponentScores{
			Likelihood: LikelihoodScores{
				Total:      round1(likelihood),
				Rainfall:   round1(rainfall),
				RiverStage: round1(stage),
				FlowRate:   round1(flow),
				Alerts:     round1(alerts),
			},
			Severity: SeverityScores{
				Total:      round1(severity),
				Elevation:  round1(elevation),
				Proximity:  round1(proximity),
				Historical: round1(historical),
				Population: round1(population),
			},
		},
	}
}

// ClassifyRisk maps a 0–100 composite score to its level. Breakpoints at
// 20/35/50/65/80 are fixed frontend contract.
func ClassifyRisk(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskExtreme
	case score >= 65:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 35:
		return RiskModerate
	case score >= 20:
		return RiskLow
	default:
		return RiskVeryLow
	}
}

// immediateRisk is the fast-path safety signal, independent of the composite
// score: flash-flood rainfall, any active alert, or a river within 90% of
// flood stage.
func immediateRisk(m Measurement) bool {
	if m.CurrentRainfallMM > 50 {
		return true
	}
	if m.WeatherAlerts > 0 {
		return true
	}
	return m.RiverStageFT > 0 && m.FloodStageFT > 0 && m.RiverStageFT/m.FloodStageFT >= 0.9
}

// rainfallScore weights forecast rain at 0.8 against observed rain, then
// applies the flash-flood guidance buckets. Linear below 25 mm so the score
// has no discontinuity at zero.
func rainfallScore(currentMM, forecastMM float64) float64 {
	total := currentMM + forecastMM*0.8
	switch {
	case total >= 100:
		return 20
	case total >= 75:
		return 16
	case total >= 50:
		return 12
	case total >= 25:
		return 8
	default:
		return math.Min(8, total/3.125)
	}
}

// stageScore rates how close the river is to flood stage. Scored only when
// both stage and flood stage are positive; the ratio near 1.0 dominates the
// likelihood half.
func stageScore(stageFT, floodStageFT float64) float64 {
	if stageFT <= 0 || floodStageFT <= 0 {
		return 0
	}
	ratio := stageFT / floodStageFT
	switch {
	case ratio >= 1.0:
		return 15
	case ratio >= 0.9:
		return 12
	case ratio >= 0.8:
		return 10
	case ratio >= 0.7:
		return 7
	default:
		return math.Min(7, ratio*10)
	}
}

// flowScore normalizes discharge against typical major-river flood flows
// (~20,000 CFS).
func flowScore(cfs float64) float64 {
	if cfs <= 0 {
		return 0
	}
	switch {
	case cfs >= 50000:
		return 10
	case cfs >= 20000:
		return 8
	case cfs >= 10000:
		return 6
	default:
		return math.Min(6, cfs/10000*6)
	}
}

func alertScore(count int) float64 {
	return math.Min(5, float64(count)*2.5)
}

// elevationScore is inverse: lower terrain floods first.
func elevationScore(m float64) float64 {
	switch {
	case m < 50:
		return 15
	case m < 100:
		return 12
	case m < 150:
		return 8
	case m < 200:
		return 5
	default:
		return math.Max(0, 15-m/40)
	}
}

// proximityScore is inverse: distance to the nearest water body.
func proximityScore(km float64) float64 {
	switch {
	case km < 0.5:
		return 15
	case km < 1:
		return 12
	case km < 2:
		return 9
	case km < 5:
		return 5
	default:
		return math.Max(0, 15-km*1.5)
	}
}

func historicalScore(events int) float64 {
	return math.Min(10, float64(events)*2)
}

func populationScore(density float64) float64 {
	switch {
	case density >= 3000:
		return 10
	case density >= 2000:
		return 8
	case density >= 1000:
		return 5
	default:
		return math.Min(5, density/200)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
