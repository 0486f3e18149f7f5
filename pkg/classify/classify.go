// Package classify sends a captured frame to the hosted scoring workflow
// and maps its predictions to a pour outcome.
package classify

import "context"

// Outcome is the three-way result of scoring a pour.
type Outcome string

const (
	// OutcomeSplit means the pour split the G.
	OutcomeSplit Outcome = "split"
	// OutcomeNotSplit means a glass was scored but the pour missed.
	OutcomeNotSplit Outcome = "not-split"
	// OutcomeNoGlass means the workflow found nothing to score.
	OutcomeNoGlass Outcome = "no-glass"
)

// Prediction labels returned by the workflow.
const (
	labelSplit    = "Split"
	labelNotSplit = "Not-Split"
)

// Prediction is one classified entry from the workflow response.
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Result is the mapped outcome of one submission.
type Result struct {
	Outcome     Outcome
	Predictions []Prediction
	// Visualization is the annotated frame returned by the workflow,
	// JPEG bytes, nil when the workflow returned none.
	Visualization []byte
}

// Classifier is the capability interface for the hosted scoring workflow.
type Classifier interface {
	// Classify submits one JPEG frame and returns the scored result.
	// A non-success workflow response is a hard failure; there is no
	// retry here, the caller starts a fresh capture instead.
	Classify(ctx context.Context, jpeg []byte) (*Result, error)
}

// MapOutcome converts a prediction list to an outcome. Total and
// deterministic: a "Split" entry wins, then "Not-Split", else no-glass.
func MapOutcome(preds []Prediction) Outcome {
	for _, p := range preds {
		if p.Class == labelSplit {
			return OutcomeSplit
		}
	}
	for _, p := range preds {
		if p.Class == labelNotSplit {
			return OutcomeNotSplit
		}
	}
	return OutcomeNoGlass
}
