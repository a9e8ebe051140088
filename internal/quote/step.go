package quote

// Step is the position of a draft in the quote flow.
type Step int

const (
	StepSelectDomain Step = iota
	// StepSelectClient is only visited in the employee flow.
	StepSelectClient
	StepSupplyUnderwritingData
	StepSelectPlan
	StepReviewAndConfirm
	StepRegistered
)

var stepNames = map[Step]string{
	StepSelectDomain:           "select-domain",
	StepSelectClient:           "select-client",
	StepSupplyUnderwritingData: "supply-underwriting-data",
	StepSelectPlan:             "select-plan",
	StepReviewAndConfirm:       "review-and-confirm",
	StepRegistered:             "registered",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Flow selects the wizard entry point.
type Flow int

const (
	// FlowClient is self-service: the acting user owns the policy.
	FlowClient Flow = iota
	// FlowEmployee registers a policy on behalf of a selected client.
	FlowEmployee
)

func (f Flow) String() string {
	if f == FlowEmployee {
		return "employee"
	}
	return "client"
}

// Steps lists the steps of a flow in order, ending with StepRegistered.
func (f Flow) Steps() []Step {
	if f == FlowEmployee {
		return []Step{StepSelectDomain, StepSelectClient, StepSupplyUnderwritingData, StepSelectPlan, StepReviewAndConfirm, StepRegistered}
	}
	return []Step{StepSelectDomain, StepSupplyUnderwritingData, StepSelectPlan, StepReviewAndConfirm, StepRegistered}
}

// previous returns the step before s in the flow. It returns s itself at the
// first step.
func (f Flow) previous(s Step) Step {
	steps := f.Steps()
	for i, candidate := range steps {
		if candidate == s && i > 0 {
			return steps[i-1]
		}
	}
	return s
}

// next returns the step after s in the flow.
func (f Flow) next(s Step) Step {
	steps := f.Steps()
	for i, candidate := range steps {
		if candidate == s && i+1 < len(steps) {
			return steps[i+1]
		}
	}
	return s
}
