package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func score(v float64) *float64 {
	return &v
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		pins []*Pin
		want ResultsSummary
	}{
		{
			name: "empty list",
			pins: nil,
			want: ResultsSummary{},
		},
		{
			name: "mixed verdicts with mean over scored pins",
			pins: []*Pin{
				{Status: PinStatusApproved, MatchScore: score(0.82)},
				{Status: PinStatusDisqualified, MatchScore: score(0.3)},
				{Status: PinStatusApproved, MatchScore: score(0.91)},
			},
			want: ResultsSummary{
				Total:        3,
				Approved:     2,
				Disqualified: 1,
				MeanScore:    (0.82 + 0.3 + 0.91) / 3,
			},
		},
		{
			name: "skipped pins stay ready and do not affect the mean",
			pins: []*Pin{
				{Status: PinStatusApproved, MatchScore: score(0.6)},
				{Status: PinStatusReady},
			},
			want: ResultsSummary{
				Total:     2,
				Approved:  1,
				MeanScore: 0.6,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.pins)

			assert.Equal(t, tt.want.Total, got.Total)
			assert.Equal(t, tt.want.Approved, got.Approved)
			assert.Equal(t, tt.want.Disqualified, got.Disqualified)
			assert.InDelta(t, tt.want.MeanScore, got.MeanScore, 1e-9)
		})
	}
}

func TestStatusRecordSnapshotCopiesMessages(t *testing.T) {
	record := &StatusRecord{
		PromptID: "p1",
		Messages: []string{"one", "two"},
	}

	snapshot := record.Snapshot()
	record.Messages[0] = "mutated"

	assert.Equal(t, "one", snapshot.Messages[0])
}
