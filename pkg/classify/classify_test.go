package classify

import "testing"

func TestMapOutcome(t *testing.T) {
	tests := []struct {
		name  string
		preds []Prediction
		want  Outcome
	}{
		{
			name:  "split prediction",
			preds: []Prediction{{Class: "Split", Confidence: 0.9}},
			want:  OutcomeSplit,
		},
		{
			name:  "not-split prediction",
			preds: []Prediction{{Class: "Not-Split", Confidence: 0.8}},
			want:  OutcomeNotSplit,
		},
		{
			name:  "empty predictions",
			preds: nil,
			want:  OutcomeNoGlass,
		},
		{
			name:  "unknown classes only",
			preds: []Prediction{{Class: "glass", Confidence: 0.7}},
			want:  OutcomeNoGlass,
		},
		{
			name: "split wins over not-split regardless of order",
			preds: []Prediction{
				{Class: "Not-Split", Confidence: 0.95},
				{Class: "Split", Confidence: 0.51},
			},
			want: OutcomeSplit,
		},
		{
			name: "not-split after unmatched entries",
			preds: []Prediction{
				{Class: "glass", Confidence: 0.9},
				{Class: "Not-Split", Confidence: 0.6},
			},
			want: OutcomeNotSplit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapOutcome(tt.preds); got != tt.want {
				t.Errorf("MapOutcome() = %v, want %v", got, tt.want)
			}
		})
	}
}
