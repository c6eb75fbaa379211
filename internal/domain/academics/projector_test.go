package academics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestProject_WorkedExamples(t *testing.T) {
	tests := []struct {
		name       string
		in         ProjectionInput
		required   float64
		display    float64
		achievable bool
		outlook    Outlook
	}{
		{
			name:       "reachable with effort",
			in:         ProjectionInput{CurrentAverage: 7.0, CreditsCompleted: 85, CreditsPlanned: 20, TargetAverage: 7.5},
			required:   9.625,
			display:    9.625,
			achievable: true,
			outlook:    OutlookEffortNeeded,
		},
		{
			name:       "out of reach",
			in:         ProjectionInput{CurrentAverage: 7.0, CreditsCompleted: 85, CreditsPlanned: 20, TargetAverage: 9.9},
			required:   22.225,
			display:    22.225,
			achievable: false,
			outlook:    OutlookImpossible,
		},
		{
			name:       "target equals current",
			in:         ProjectionInput{CurrentAverage: 8.0, CreditsCompleted: 100, CreditsPlanned: 20, TargetAverage: 8.0},
			required:   8.0,
			display:    8.0,
			achievable: true,
			outlook:    OutlookOnTrack,
		},
		{
			name:       "target below current goes negative",
			in:         ProjectionInput{CurrentAverage: 9.0, CreditsCompleted: 100, CreditsPlanned: 20, TargetAverage: 7.0},
			required:   -3.0,
			display:    0,
			achievable: true,
			outlook:    OutlookOnTrack,
		},
		{
			name:       "exactly ten is achievable",
			in:         ProjectionInput{CurrentAverage: 6.0, CreditsCompleted: 20, CreditsPlanned: 20, TargetAverage: 8.0},
			required:   10.0,
			display:    10.0,
			achievable: true,
			outlook:    OutlookEffortNeeded,
		},
		{
			name:       "first term has no history",
			in:         ProjectionInput{CurrentAverage: 0, CreditsCompleted: 0, CreditsPlanned: 24, TargetAverage: 8.5},
			required:   8.5,
			display:    8.5,
			achievable: true,
			outlook:    OutlookEffortNeeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(tt.in)
			assert.InDelta(t, tt.required, p.RequiredTermAverage, eps)
			assert.InDelta(t, tt.display, p.DisplayValue, eps)
			assert.Equal(t, tt.achievable, p.Achievable)
			assert.Equal(t, tt.outlook, p.Outlook)
		})
	}
}

func TestProject_Breakdown(t *testing.T) {
	p := Project(ProjectionInput{CurrentAverage: 7.0, CreditsCompleted: 85, CreditsPlanned: 20, TargetAverage: 7.5})

	assert.InDelta(t, 595.0, p.CurrentPoints, eps)
	assert.Equal(t, 105, p.TotalCreditsAfter)
	assert.InDelta(t, 787.5, p.RequiredTotalPoints, eps)
	assert.InDelta(t, 192.5, p.PointsNeededThisTerm, eps)
}

func TestProject_TargetEqualsCurrentReturnsCurrent(t *testing.T) {
	for _, x := range []float64{0, 4.25, 7.0, 9.99, 10} {
		for _, c := range []int{0, 1, 37, 160} {
			for _, n := range []int{1, 5, 20, 30} {
				p := Project(ProjectionInput{CurrentAverage: x, CreditsCompleted: c, CreditsPlanned: n, TargetAverage: x})
				assert.InDelta(t, x, p.RequiredTermAverage, 1e-9, "x=%v c=%d n=%d", x, c, n)
			}
		}
	}
}

func TestProject_MonotonicInTarget(t *testing.T) {
	prev := math.Inf(-1)
	for target := 0.0; target <= 10.0; target += 0.05 {
		p := Project(ProjectionInput{CurrentAverage: 7.2, CreditsCompleted: 85, CreditsPlanned: 20, TargetAverage: target})
		assert.Greater(t, p.RequiredTermAverage, prev, "target=%v", target)
		prev = p.RequiredTermAverage
	}
}

func TestProject_MonotonicInCurrentAverage(t *testing.T) {
	prev := math.Inf(1)
	for current := 0.0; current <= 10.0; current += 0.25 {
		p := Project(ProjectionInput{CurrentAverage: current, CreditsCompleted: 60, CreditsPlanned: 22, TargetAverage: 8.0})
		assert.Less(t, p.RequiredTermAverage, prev, "current=%v", current)
		prev = p.RequiredTermAverage
	}
}

func TestProject_CurrentAverageIgnoredWithoutHistory(t *testing.T) {
	a := Project(ProjectionInput{CurrentAverage: 2.0, CreditsCompleted: 0, CreditsPlanned: 20, TargetAverage: 8.0})
	b := Project(ProjectionInput{CurrentAverage: 9.0, CreditsCompleted: 0, CreditsPlanned: 20, TargetAverage: 8.0})
	assert.InDelta(t, a.RequiredTermAverage, b.RequiredTermAverage, eps)
}

func TestProject_ClampsCredits(t *testing.T) {
	clamped := Project(ProjectionInput{CurrentAverage: 7.0, CreditsCompleted: -5, CreditsPlanned: 0, TargetAverage: 8.0})
	explicit := Project(ProjectionInput{CurrentAverage: 7.0, CreditsCompleted: 0, CreditsPlanned: 1, TargetAverage: 8.0})

	assert.Equal(t, explicit, clamped)
	assert.Equal(t, 0, clamped.CreditsCompleted)
	assert.Equal(t, 1, clamped.CreditsPlanned)
	assert.InDelta(t, 8.0, clamped.RequiredTermAverage, eps)
}

func TestProject_NeverDividesByZero(t *testing.T) {
	for _, planned := range []int{-100, -1, 0, 1} {
		for _, done := range []int{-100, 0, 85} {
			p := Project(ProjectionInput{CurrentAverage: 7.0, CreditsCompleted: done, CreditsPlanned: planned, TargetAverage: 8.0})
			require.False(t, math.IsInf(p.RequiredTermAverage, 0))
			require.False(t, math.IsNaN(p.RequiredTermAverage))
		}
	}
}

func TestProject_OutOfRangeInputsAccepted(t *testing.T) {
	p := Project(ProjectionInput{CurrentAverage: 12, CreditsCompleted: 10, CreditsPlanned: 10, TargetAverage: -3})
	assert.InDelta(t, -18.0, p.RequiredTermAverage, eps)
	assert.Equal(t, 0.0, p.DisplayValue)
	assert.True(t, p.Achievable)
	assert.Equal(t, OutlookOnTrack, p.Outlook)
}

func TestOutlook_Message(t *testing.T) {
	assert.Contains(t, OutlookImpossible.Message(), "out of reach")
	assert.Contains(t, OutlookOnTrack.Message(), "safe")
	assert.Contains(t, OutlookEffortNeeded.Message(), "Work hard")
}

func TestDefaultProjectionInput(t *testing.T) {
	in := DefaultProjectionInput(nil, 85, 20, 7.0, 8.5, 0.5)
	assert.Equal(t, ProjectionInput{CurrentAverage: 7.0, CreditsCompleted: 85, CreditsPlanned: 20, TargetAverage: 8.5}, in)

	cgpa := 8.2
	in = DefaultProjectionInput(&cgpa, 85, 20, 7.0, 8.5, 0.5)
	assert.InDelta(t, 8.2, in.CurrentAverage, eps)
	assert.InDelta(t, 8.7, in.TargetAverage, eps)

	zero := 0.0
	in = DefaultProjectionInput(&zero, 85, 20, 7.0, 8.5, 0.5)
	assert.InDelta(t, 7.0, in.CurrentAverage, eps)
	assert.InDelta(t, 8.5, in.TargetAverage, eps)
}
