package domain

import "time"

// Assessment is one published scoring outcome for a watershed: the snapshot
// that was scored plus the composite risk breakdown behind it.
type Assessment struct {
	Watershed  WatershedSnapshot `json:"watershed"`
	Risk       RiskResult        `json:"risk"`
	AssessedAt time.Time         `json:"assessed_at"`
}
