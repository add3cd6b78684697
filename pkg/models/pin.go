package models

import "time"

// PinStatus tracks a pin through evaluation.
type PinStatus string

const (
	PinStatusReady        PinStatus = "ready" // Collected, awaiting evaluation
	PinStatusApproved     PinStatus = "approved"
	PinStatusDisqualified PinStatus = "disqualified"
)

// ApprovalThreshold is the minimum match score for an approved pin.
const ApprovalThreshold = 0.5

// Pin is one collected feed item. ImageURL points at the extracted media,
// PinURL at the page it was collected from. MatchScore and Explanation are
// nil/empty until evaluation has run.
type Pin struct {
	ID          string     `json:"id"`
	PromptID    string     `json:"prompt_id"`
	ImageURL    string     `json:"image_url"`
	PinURL      string     `json:"pin_url"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	MatchScore  *float64   `json:"match_score,omitempty"`
	Status      PinStatus  `json:"status"`
	Explanation string     `json:"explanation,omitempty"`
	CollectedAt time.Time  `json:"collected_at"`
}

// ResultsSummary aggregates evaluated pins for the results query.
type ResultsSummary struct {
	Total        int     `json:"total"`
	Approved     int     `json:"approved"`
	Disqualified int     `json:"disqualified"`
	MeanScore    float64 `json:"mean_score"`
}

// Summarize computes aggregate counts and the mean score over scored pins.
func Summarize(pins []*Pin) ResultsSummary {
	summary := ResultsSummary{Total: len(pins)}

	scored := 0
	sum := 0.0

	for _, pin := range pins {
		switch pin.Status {
		case PinStatusApproved:
			summary.Approved++
		case PinStatusDisqualified:
			summary.Disqualified++
		case PinStatusReady:
		}

		if pin.MatchScore != nil {
			scored++
			sum += *pin.MatchScore
		}
	}

	if scored > 0 {
		summary.MeanScore = sum / float64(scored)
	}

	return summary
}
