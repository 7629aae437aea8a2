package domain

// Breach records a watershed crossing a hard limit.
type Breach struct {
	Watershed string  `json:"watershed"`
	Type      string  `json:"type"` // "risk_score" or "flood_stage"
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// RapidRise names watersheds whose flow is climbing fast enough to matter
// regardless of their absolute level.
type RapidRise struct {
	Watersheds []string `json:"watersheds"`
	MaxRate    float64  `json:"max_rate"` // risk-rate equivalent, points per hour
}

// DetectRapidRise flags watersheds whose streamflow trend exceeds 100 CFS/h.
// The flow rate converts to a risk-rate equivalent at 50 CFS/h per point;
// only rises above 2 points-per-hour equivalent are reported. Returns nil
// when nothing qualifies.
func DetectRapidRise(snapshots []WatershedSnapshot) *RapidRise {
	var rise RapidRise
	for _, s := range snapshots {
		if s.Trend != "rising" || s.TrendRateCFSPerHour <= 100 {
			continue
		}
		riskRate := s.TrendRateCFSPerHour / 50
		if riskRate <= 2 {
			continue
		}
		rise.Watersheds = append(rise.Watersheds, s.Name)
		if riskRate > rise.MaxRate {
			rise.MaxRate = riskRate
		}
	}
	if len(rise.Watersheds) == 0 {
		return nil
	}
	return &rise
}

// DetectBreaches reports watersheds at or past hard thresholds: risk score
// 9 or above, or streamflow within 10% of flood stage.
func DetectBreaches(snapshots []WatershedSnapshot) []Breach {
	var breaches []Breach
	for _, s := range snapshots {
		if s.RiskScore >= 9 {
			breaches = append(breaches, Breach{
				Watershed: s.Name,
				Type:      "risk_score",
				Value:     s.RiskScore,
				Threshold: 9,
			})
		}
		if s.FloodStageCFS > 0 && s.CurrentStreamflowCFS >= 0.9*s.FloodStageCFS {
			breaches = append(breaches, Breach{
				Watershed: s.Name,
				Type:      "flood_stage",
				Value:     s.CurrentStreamflowCFS,
				Threshold: 0.9 * s.FloodStageCFS,
			})
		}
	}
	return breaches
}

// DetectAnomaly reports whether an unusual share of watersheds show high
// risk on low flow, which usually means a scoring input went bad upstream.
// Triggers when over 20% of watersheds score above 7 with flow under 100 CFS.
func DetectAnomaly(snapshots []WatershedSnapshot) bool {
	if len(snapshots) == 0 {
		return false
	}
	suspect := 0
	for _, s := range snapshots {
		if s.RiskScore > 7 && s.CurrentStreamflowCFS < 100 {
			suspect++
		}
	}
	return float64(suspect) > 0.2*float64(len(snapshots))
}

// CountCritical returns how many watersheds score 8 or above.
func CountCritical(snapshots []WatershedSnapshot) int {
	n := 0
	for _, s := range snapshots {
		if s.RiskScore >= 8 {
			n++
		}
	}
	return n
}
