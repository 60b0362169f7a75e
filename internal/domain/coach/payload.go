package coach

// Kind tags a Payload variant.
type Kind string

const (
	KindNutrition Kind = "nutrition"
	KindPlan      Kind = "plan"
	KindWorkout   Kind = "workout"
	KindBodyScan  Kind = "body_scan"
)

// Payload is a validated, range-checked model result. The set of variants is
// closed: Nutrition, WeeklyPlan, Workout and BodyScan.
type Payload interface {
	Kind() Kind
	sealed()
}

// Nutrition holds daily macro targets.
type Nutrition struct {
	Calories int    `json:"calories"`
	Protein  int    `json:"protein"`
	Carbs    int    `json:"carbs"`
	Fats     int    `json:"fats"`
	Notes    string `json:"notes"`
}

// DayEntry is one day of a weekly plan.
type DayEntry struct {
	Day         int    `json:"day"`
	WorkoutType string `json:"workout_type"`
	Intensity   string `json:"intensity"`
	Notes       string `json:"notes"`
}

// WeeklyPlan is an ordered week of exactly seven entries.
type WeeklyPlan struct {
	Days []DayEntry `json:"plan"`
}

// Exercise is a single block of a workout. Duration and Rest are seconds;
// Sets and Reps apply when Duration is zero.
type Exercise struct {
	Name     string `json:"name"`
	Duration int    `json:"duration"`
	Rest     int    `json:"rest"`
	Sets     int    `json:"sets"`
	Reps     int    `json:"reps"`
	RPE      string `json:"rpe"`
}

// Workout is a session suggestion.
type Workout struct {
	Note      string     `json:"note"`
	Exercises []Exercise `json:"exercises"`
}

// BodyScan is the structured reading of a progress photo.
type BodyScan struct {
	Summary         string   `json:"summary"`
	FocusAreas      []string `json:"focus_areas"`
	Recommendations []string `json:"recommendations"`
}

func (Nutrition) Kind() Kind  { return KindNutrition }
func (WeeklyPlan) Kind() Kind { return KindPlan }
func (Workout) Kind() Kind    { return KindWorkout }
func (BodyScan) Kind() Kind   { return KindBodyScan }

func (Nutrition) sealed()  {}
func (WeeklyPlan) sealed() {}
func (Workout) sealed()    {}
func (BodyScan) sealed()   {}

// Outcome is the result of running raw model text through the pipeline.
// Payload is never nil. Excerpt is only set when Fallback is true.
type Outcome struct {
	Payload  Payload
	Fallback bool
	Excerpt  string
}

// Resolve extracts, validates and, on rejection, synthesizes a fallback for kind.
func Resolve(kind Kind, raw string) Outcome {
	if candidate, ok := Extract(raw); ok {
		if payload, ok := Validate(kind, candidate); ok {
			return Outcome{Payload: payload}
		}
	}
	return Outcome{
		Payload:  BuildFallback(kind, raw),
		Fallback: true,
		Excerpt:  Excerpt(raw),
	}
}

// Validate dispatches candidate to the validator registered for kind.
func Validate(kind Kind, candidate any) (Payload, bool) {
	switch kind {
	case KindNutrition:
		return asPayload(ValidateNutrition(candidate))
	case KindPlan:
		return asPayload(ValidatePlan(candidate))
	case KindWorkout:
		return asPayload(NormalizeWorkout(candidate))
	case KindBodyScan:
		return asPayload(ValidateBodyScan(candidate))
	default:
		return nil, false
	}
}

func asPayload[T Payload](value T, ok bool) (Payload, bool) {
	if !ok {
		return nil, false
	}
	return value, true
}
