package duplicates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateWindowBoundaries(t *testing.T) {
	const windowHours = 24
	first := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	window := time.Duration(windowHours) * time.Hour
	prior := []PriorScan{{Serial: "0000012345", ScannedAt: first}}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"one second before window end", first.Add(window - time.Second), true},
		{"exactly at window end", first.Add(window), true},
		{"one second after window end", first.Add(window + time.Second), false},
		{"same instant", first, false},
		{"earlier than prior scan", first.Add(-time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicate("0000012345", prior, tt.now, windowHours, false))
		})
	}
}

func TestIsDuplicateDisabled(t *testing.T) {
	now := time.Now()
	prior := []PriorScan{{Serial: "A1", ScannedAt: now.Add(-time.Hour)}}

	assert.True(t, IsDuplicate("A1", prior, now, 24, false))
	assert.False(t, IsDuplicate("A1", prior, now, 24, true))
	assert.False(t, IsDuplicate("B2", prior, now, 24, false))
	assert.False(t, IsDuplicate("", prior, now, 24, false))
}

func TestPolicyEvaluate(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	prior := []PriorScan{{Serial: "S1", ScannedAt: now.Add(-2 * time.Hour)}}

	tests := []struct {
		name   string
		policy Policy
		part   string
		serial string
		want   Decision
	}{
		{
			name:   "duplicate blocked by default",
			policy: Policy{WindowHours: 24},
			part:   "681010E01000",
			serial: "S1",
			want:   Block,
		},
		{
			name:   "alert only",
			policy: Policy{WindowHours: 24, AlertOnDuplicate: true},
			part:   "681010E01000",
			serial: "S1",
			want:   Alert,
		},
		{
			name:   "feature disabled",
			policy: Policy{WindowHours: 24, AllowDuplicates: true},
			part:   "681010E01000",
			serial: "S1",
			want:   Clear,
		},
		{
			name:   "excluded part bypasses the check",
			policy: Policy{WindowHours: 24, ExcludedParts: []string{" 681010e01000 "}},
			part:   "681010E01000",
			serial: "S1",
			want:   Clear,
		},
		{
			name:   "outside a short window",
			policy: Policy{WindowHours: 1},
			part:   "681010E01000",
			serial: "S1",
			want:   Clear,
		},
		{
			name:   "new serial",
			policy: Policy{WindowHours: 24},
			part:   "681010E01000",
			serial: "S2",
			want:   Clear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Evaluate(tt.part, tt.serial, prior, now))
		})
	}
}

func TestPolicySince(t *testing.T) {
	now := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	p := Policy{WindowHours: 24}
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), p.Since(now))
}
