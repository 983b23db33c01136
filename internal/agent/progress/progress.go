package progress

// The five canonical steps of the intelligent search pipeline, in execution
// order. A snapshot always carries all five.

type StepID string

const (
	StepUnderstandIntent StepID = "understand_intent"
	StepFindShops        StepID = "find_shops"
	StepSemanticSearch   StepID = "semantic_search"
	StepExpandingSearch  StepID = "expanding_search"
	StepRanking          StepID = "ranking"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// statusRank orders statuses so transitions can only move forward.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusActive:    1,
	StatusCompleted: 2,
	StatusError:     2,
}

type Step struct {
	ID      StepID `json:"id"`
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Details string `json:"details,omitempty"`
}

var stepOrder = []StepID{
	StepUnderstandIntent,
	StepFindShops,
	StepSemanticSearch,
	StepExpandingSearch,
	StepRanking,
}

var stepLabels = map[StepID]string{
	StepUnderstandIntent: "Understanding what you need",
	StepFindShops:        "Finding shops near you",
	StepSemanticSearch:   "Searching shop catalogs",
	StepExpandingSearch:  "Expanding and merging matches",
	StepRanking:          "Ranking the best shops",
}

// NewSteps returns a fresh all-pending step array.
func NewSteps() []Step {
	steps := make([]Step, 0, len(stepOrder))
	for _, id := range stepOrder {
		steps = append(steps, Step{ID: id, Label: stepLabels[id], Status: StatusPending})
	}
	return steps
}

func cloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}
