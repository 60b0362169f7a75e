package coach

import "strings"

const excerptLimit = 500

const (
	fallbackNutritionNotes = "We could not read a structured answer from the coach, so these are general maintenance targets."
	fallbackWorkoutNote    = "We could not read a structured workout from the coach, so here is a short full-body session."
	fallbackBodyScanText   = "The photo could not be analyzed automatically. Try again with a well lit, full-length photo."
)

// Excerpt returns at most the first excerptLimit runes of the trimmed raw text.
func Excerpt(raw string) string {
	trimmed := strings.TrimSpace(raw)
	runes := []rune(trimmed)
	if len(runes) <= excerptLimit {
		return trimmed
	}
	return string(runes[:excerptLimit])
}

// BuildFallback synthesizes a payload of the given kind that always passes its
// own validator. Where the variant has a free text field, it carries an
// excerpt of raw so the user still sees what the model said.
func BuildFallback(kind Kind, raw string) Payload {
	excerpt := Excerpt(raw)
	switch kind {
	case KindNutrition:
		// 150*4 + 200*4 + 67*9 = 2003
		return Nutrition{
			Calories: 2000,
			Protein:  150,
			Carbs:    200,
			Fats:     67,
			Notes:    firstNonEmpty(excerpt, fallbackNutritionNotes),
		}
	case KindPlan:
		return WeeklyPlan{Days: fallbackWeek()}
	case KindWorkout:
		return Workout{
			Note:      firstNonEmpty(excerpt, fallbackWorkoutNote),
			Exercises: fallbackExercises(),
		}
	default:
		return BodyScan{
			Summary:         firstNonEmpty(excerpt, fallbackBodyScanText),
			FocusAreas:      []string{},
			Recommendations: []string{},
		}
	}
}

func fallbackWeek() []DayEntry {
	return []DayEntry{
		{Day: 1, WorkoutType: "strength", Intensity: "medium", Notes: "Full-body compound lifts"},
		{Day: 2, WorkoutType: "cardio", Intensity: "low", Notes: "30 minutes easy pace"},
		{Day: 3, WorkoutType: "strength", Intensity: "medium", Notes: "Upper body focus"},
		{Day: 4, WorkoutType: "rest", Intensity: "low", Notes: "Walk and stretch"},
		{Day: 5, WorkoutType: "strength", Intensity: "medium", Notes: "Lower body focus"},
		{Day: 6, WorkoutType: "cardio", Intensity: "medium", Notes: "Intervals"},
		{Day: 7, WorkoutType: "rest", Intensity: "low", Notes: "Full rest"},
	}
}

func fallbackExercises() []Exercise {
	return []Exercise{
		{Name: "Jumping jacks", Duration: 60, Rest: 30, RPE: "easy"},
		{Name: "Bodyweight squats", Sets: 3, Reps: 12, Rest: 60, RPE: "moderate"},
		{Name: "Push-ups", Sets: 3, Reps: 10, Rest: 60, RPE: "moderate"},
		{Name: "Plank", Duration: 30, Rest: 30, RPE: "moderate"},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
