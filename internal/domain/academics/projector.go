package academics

// MaxGradePoint is the ceiling of the 10-point grading scale.
const MaxGradePoint = 10.0

// Outlook classifies how hard a target is to reach next term.
type Outlook string

const (
	// OutlookImpossible: the term would need more than MaxGradePoint.
	OutlookImpossible Outlook = "impossible"
	// OutlookOnTrack: keeping the current average already reaches the target.
	OutlookOnTrack Outlook = "on_track"
	// OutlookEffortNeeded: reachable, but above the current average.
	OutlookEffortNeeded Outlook = "effort_needed"
)

// Message returns the short line shown under the projection.
func (o Outlook) Message() string {
	switch o {
	case OutlookImpossible:
		return "Target is out of reach this term"
	case OutlookOnTrack:
		return "You're safe: your current pace reaches the target"
	default:
		return "Work hard: you need to beat your current average"
	}
}

// ProjectionInput holds the four projector inputs. Values outside the
// grading scale are accepted; the projector is advisory.
type ProjectionInput struct {
	CurrentAverage   float64 `json:"current_average"`
	CreditsCompleted int     `json:"credits_completed"`
	CreditsPlanned   int     `json:"credits_planned"`
	TargetAverage    float64 `json:"target_average"`
}

// Projection is the full breakdown of a projector run.
type Projection struct {
	// Inputs after clamping.
	CurrentAverage   float64 `json:"current_average"`
	CreditsCompleted int     `json:"credits_completed"`
	CreditsPlanned   int     `json:"credits_planned"`
	TargetAverage    float64 `json:"target_average"`

	CurrentPoints        float64 `json:"current_points"`
	TotalCreditsAfter    int     `json:"total_credits_after"`
	RequiredTotalPoints  float64 `json:"required_total_points"`
	PointsNeededThisTerm float64 `json:"points_needed_this_term"`

	// RequiredTermAverage is not rounded and may be negative or above 10.
	RequiredTermAverage float64 `json:"required_term_average"`
	// DisplayValue is RequiredTermAverage floored at zero, for presentation.
	DisplayValue float64 `json:"display_value"`
	Achievable   bool    `json:"achievable"`
	Outlook      Outlook `json:"outlook"`
}

// Project computes the term average needed to lift a cumulative average to
// the target after the planned credits are earned.
//
// Negative completed credits are treated as zero and planned credits below
// one are treated as one, so the division is always defined.
func Project(in ProjectionInput) Projection {
	completed := in.CreditsCompleted
	if completed < 0 {
		completed = 0
	}
	planned := in.CreditsPlanned
	if planned < 1 {
		planned = 1
	}

	currentPoints := in.CurrentAverage * float64(completed)
	totalAfter := completed + planned
	requiredTotal := in.TargetAverage * float64(totalAfter)
	needed := requiredTotal - currentPoints
	required := needed / float64(planned)

	display := required
	if display < 0 {
		display = 0
	}

	return Projection{
		CurrentAverage:       in.CurrentAverage,
		CreditsCompleted:     completed,
		CreditsPlanned:       planned,
		TargetAverage:        in.TargetAverage,
		CurrentPoints:        currentPoints,
		TotalCreditsAfter:    totalAfter,
		RequiredTotalPoints:  requiredTotal,
		PointsNeededThisTerm: needed,
		RequiredTermAverage:  required,
		DisplayValue:         display,
		Achievable:           required <= MaxGradePoint,
		Outlook:              classify(required, in.CurrentAverage),
	}
}

func classify(required, current float64) Outlook {
	switch {
	case required > MaxGradePoint:
		return OutlookImpossible
	case required <= current:
		return OutlookOnTrack
	default:
		return OutlookEffortNeeded
	}
}

// DefaultProjectionInput builds the overview's starting point from a profile
// CGPA. With no CGPA on file, or a zero one from a profile that has no
// graded terms yet, the fallbacks are used; otherwise the target is the CGPA
// raised by step.
func DefaultProjectionInput(cgpa *float64, creditsDone, creditsNext int, fallbackCurrent, fallbackTarget, step float64) ProjectionInput {
	in := ProjectionInput{
		CurrentAverage:   fallbackCurrent,
		CreditsCompleted: creditsDone,
		CreditsPlanned:   creditsNext,
		TargetAverage:    fallbackTarget,
	}
	if cgpa != nil && *cgpa != 0 {
		in.CurrentAverage = *cgpa
		in.TargetAverage = *cgpa + step
	}
	return in
}
