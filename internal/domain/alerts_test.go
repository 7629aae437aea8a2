package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectRapidRise(t *testing.T) {
	t.Run("nil when waters are calm", func(t *testing.T) {
		calm := testSnapshot()
		calm.Trend = "stable"
		calm.TrendRateCFSPerHour = 0

		assert.Nil(t, DetectRapidRise([]WatershedSnapshot{calm}))
	})

	t.Run("slow rise is ignored", func(t *testing.T) {
		slow := testSnapshot()
		slow.TrendRateCFSPerHour = 80

		assert.Nil(t, DetectRapidRise([]WatershedSnapshot{slow}))
	})

	t.Run("rapid rise is flagged", func(t *testing.T) {
		fast := testSnapshot()
		fast.TrendRateCFSPerHour = 250

		rise := DetectRapidRise([]WatershedSnapshot{fast})

		require.NotNil(t, rise)
		assert.Equal(t, []string{fast.Name}, rise.Watersheds)
		assert.InDelta(t, 5.0, rise.MaxRate, 0.001)
	})

	t.Run("falling flow never flags even when fast", func(t *testing.T) {
		receding := testSnapshot()
		receding.Trend = "falling"
		receding.TrendRateCFSPerHour = 300

		assert.Nil(t, DetectRapidRise([]WatershedSnapshot{receding}))
	})

	t.Run("max rate across several watersheds", func(t *testing.T) {
		a := testSnapshot()
		a.Name = "Basin A"
		a.TrendRateCFSPerHour = 150
		b := testSnapshot()
		b.Name = "Basin B"
		b.TrendRateCFSPerHour = 400

		rise := DetectRapidRise([]WatershedSnapshot{a, b})

		require.NotNil(t, rise)
		assert.Len(t, rise.Watersheds, 2)
		assert.InDelta(t, 8.0, rise.MaxRate, 0.001)
	})
}

func TestDetectBreaches(t *testing.T) {
	t.Run("no breaches under normal conditions", func(t *testing.T) {
		assert.Empty(t, DetectBreaches([]WatershedSnapshot{testSnapshot()}))
	})

	t.Run("risk score breach", func(t *testing.T) {
		s := testSnapshot()
		s.RiskScore = 9.2

		breaches := DetectBreaches([]WatershedSnapshot{s})

		require.Len(t, breaches, 1)
		assert.Equal(t, "risk_score", breaches[0].Type)
		assert.Equal(t, 9.2, breaches[0].Value)
		assert.Equal(t, 9.0, breaches[0].Threshold)
	})

	t.Run("flood stage breach", func(t *testing.T) {
		s := testSnapshot()
		s.CurrentStreamflowCFS = 9500
		s.FloodStageCFS = 10000

		breaches := DetectBreaches([]WatershedSnapshot{s})

		require.Len(t, breaches, 1)
		assert.Equal(t, "flood_stage", breaches[0].Type)
		assert.Equal(t, 9500.0, breaches[0].Value)
		assert.InDelta(t, 9000.0, breaches[0].Threshold, 0.001)
	})

	t.Run("both breaches on one watershed", func(t *testing.T) {
		s := testSnapshot()
		s.RiskScore = 9.5
		s.CurrentStreamflowCFS = 12000
		s.FloodStageCFS = 10000

		assert.Len(t, DetectBreaches([]WatershedSnapshot{s}), 2)
	})

	t.Run("unknown flood stage never breaches", func(t *testing.T) {
		s := testSnapshot()
		s.CurrentStreamflowCFS = 50000
		s.FloodStageCFS = 0

		assert.Empty(t, DetectBreaches([]WatershedSnapshot{s}))
	})
}

func TestDetectAnomaly(t *testing.T) {
	highRiskLowFlow := func() WatershedSnapshot {
		s := testSnapshot()
		s.RiskScore = 8
		s.CurrentStreamflowCFS = 50
		return s
	}

	t.Run("empty region", func(t *testing.T) {
		assert.False(t, DetectAnomaly(nil))
	})

	t.Run("consistent readings", func(t *testing.T) {
		assert.False(t, DetectAnomaly([]WatershedSnapshot{testSnapshot(), testSnapshot()}))
	})

	t.Run("one in five is at the threshold, not over", func(t *testing.T) {
		snapshots := []WatershedSnapshot{
			highRiskLowFlow(), testSnapshot(), testSnapshot(), testSnapshot(), testSnapshot(),
		}
		assert.False(t, DetectAnomaly(snapshots))
	})

	t.Run("one in four trips the detector", func(t *testing.T) {
		snapshots := []WatershedSnapshot{
			highRiskLowFlow(), testSnapshot(), testSnapshot(), testSnapshot(),
		}
		assert.True(t, DetectAnomaly(snapshots))
	})
}

func TestCountCritical(t *testing.T) {
	critical := testSnapshot()
	critical.RiskScore = 8.5
	boundary := testSnapshot()
	boundary.RiskScore = 8

	assert.Equal(t, 0, CountCritical(nil))
	assert.Equal(t, 0, CountCritical([]WatershedSnapshot{testSnapshot()}))
	assert.Equal(t, 2, CountCritical([]WatershedSnapshot{critical, boundary, testSnapshot()}))
}
