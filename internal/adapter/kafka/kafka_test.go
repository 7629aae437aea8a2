package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverwatch/flood-risk-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	assessment := domain.Assessment{
		Watershed: domain.WatershedSnapshot{
			ID:                   "trinity",
			Name:                 "Trinity River Basin",
			CurrentStreamflowCFS: 4100,
			RiskScore:            6.2,
			RiskLevel:            "HIGH",
		},
		Risk: domain.RiskResult{
			OverallScore: 58.5,
			RiskLevel:    domain.RiskHigh,
		},
		AssessedAt: now,
	}

	msg, err := serializeToMessage(assessment)
	require.NoError(t, err)

	assert.Equal(t, []byte("trinity"), msg.Key)
	assert.Contains(t, string(msg.Value), `"risk_score":6.2`)
	assert.Contains(t, string(msg.Value), `"overall_score":58.5`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "risk_level", msg.Headers[0].Key)
	assert.Equal(t, []byte("HIGH"), msg.Headers[0].Value)
	assert.Equal(t, "assessed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var roundtrip domain.Assessment
	require.NoError(t, json.Unmarshal(msg.Value, &roundtrip))
	if diff := cmp.Diff(assessment, roundtrip); diff != "" {
		t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}
