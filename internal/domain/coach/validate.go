package coach

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	planLength       = 7
	macroTolerance   = 100
	defaultIntensity = "medium"

	defaultNutritionNotes = "Spread protein evenly across meals and adjust portions weekly based on progress."
)

type intRange struct {
	min int
	max int
}

func (r intRange) contains(v int) bool {
	return v >= r.min && v <= r.max
}

var (
	caloriesRange = intRange{min: 1500, max: 4000}
	proteinRange  = intRange{min: 100, max: 300}
	carbsRange    = intRange{min: 100, max: 500}
	fatsRange     = intRange{min: 40, max: 150}
	dayRange      = intRange{min: 1, max: planLength}
)

// ValidateNutrition accepts candidate only when every macro is an integer in
// range and the macros reconcile with calories within macroTolerance.
func ValidateNutrition(candidate any) (Nutrition, bool) {
	obj, ok := candidate.(map[string]any)
	if !ok {
		return Nutrition{}, false
	}
	var (
		out    Nutrition
		fields = []struct {
			key  string
			rng  intRange
			dest *int
		}{
			{key: "calories", rng: caloriesRange, dest: &out.Calories},
			{key: "protein", rng: proteinRange, dest: &out.Protein},
			{key: "carbs", rng: carbsRange, dest: &out.Carbs},
			{key: "fats", rng: fatsRange, dest: &out.Fats},
		}
	)
	for _, f := range fields {
		v, ok := rangedInt(obj[f.key], f.rng)
		if !ok {
			return Nutrition{}, false
		}
		*f.dest = v
	}
	if !macrosReconcile(out) {
		return Nutrition{}, false
	}
	out.Notes = strings.TrimSpace(stringify(obj["notes"]))
	if out.Notes == "" {
		out.Notes = defaultNutritionNotes
	}
	return out, true
}

func macrosReconcile(n Nutrition) bool {
	derived := n.Protein*4 + n.Carbs*4 + n.Fats*9
	diff := derived - n.Calories
	if diff < 0 {
		diff = -diff
	}
	return diff <= macroTolerance
}

// ValidatePlan requires a "plan" array of exactly seven entries and returns
// them in their original order. Invalid entries are dropped and any drop
// rejects the whole week.
func ValidatePlan(candidate any) (WeeklyPlan, bool) {
	obj, ok := candidate.(map[string]any)
	if !ok {
		return WeeklyPlan{}, false
	}
	entries, ok := obj["plan"].([]any)
	if !ok || len(entries) != planLength {
		return WeeklyPlan{}, false
	}
	days := make([]DayEntry, 0, planLength)
	for _, entry := range entries {
		if day, ok := validateDay(entry); ok {
			days = append(days, day)
		}
	}
	if len(days) < planLength {
		return WeeklyPlan{}, false
	}
	return WeeklyPlan{Days: days}, true
}

func validateDay(entry any) (DayEntry, bool) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return DayEntry{}, false
	}
	day, ok := rangedInt(obj["day"], dayRange)
	if !ok {
		return DayEntry{}, false
	}
	workoutType, ok := obj["workout_type"].(string)
	workoutType = strings.TrimSpace(workoutType)
	if !ok || workoutType == "" {
		return DayEntry{}, false
	}
	intensity := strings.TrimSpace(stringify(obj["intensity"]))
	if intensity == "" {
		intensity = defaultIntensity
	}
	return DayEntry{
		Day:         day,
		WorkoutType: workoutType,
		Intensity:   intensity,
		Notes:       strings.TrimSpace(stringify(obj["notes"])),
	}, true
}

// NormalizeWorkout requires a non-empty "exercises" array with at least one
// named exercise. Unnamed exercises are dropped and numeric fields that are
// missing or malformed default to zero.
func NormalizeWorkout(candidate any) (Workout, bool) {
	obj, ok := candidate.(map[string]any)
	if !ok {
		return Workout{}, false
	}
	items, ok := obj["exercises"].([]any)
	if !ok || len(items) == 0 {
		return Workout{}, false
	}
	exercises := make([]Exercise, 0, len(items))
	for _, item := range items {
		ex, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(stringify(ex["name"]))
		if name == "" {
			continue
		}
		exercises = append(exercises, Exercise{
			Name:     name,
			Duration: lenientCount(ex["duration"]),
			Rest:     lenientCount(ex["rest"]),
			Sets:     lenientCount(ex["sets"]),
			Reps:     lenientCount(ex["reps"]),
			RPE:      strings.TrimSpace(stringify(ex["rpe"])),
		})
	}
	if len(exercises) == 0 {
		return Workout{}, false
	}
	return Workout{
		Note:      strings.TrimSpace(stringify(obj["note"])),
		Exercises: exercises,
	}, true
}

// ValidateBodyScan requires a non-empty summary; list fields accept either a
// single string or an array of strings.
func ValidateBodyScan(candidate any) (BodyScan, bool) {
	obj, ok := candidate.(map[string]any)
	if !ok {
		return BodyScan{}, false
	}
	summary, _ := obj["summary"].(string)
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return BodyScan{}, false
	}
	return BodyScan{
		Summary:         summary,
		FocusAreas:      normalizeList(coerceStrings(obj["focus_areas"])),
		Recommendations: normalizeList(coerceStrings(obj["recommendations"])),
	}, true
}

// rangedInt accepts JSON numbers with no fractional part inside rng.
func rangedInt(v any, rng intRange) (int, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < float64(rng.min) || f > float64(rng.max) {
		return 0, false
	}
	n := int(f)
	return n, rng.contains(n)
}

// lenientCount reads a non-negative whole number from a JSON number or a
// numeric string, rounding fractions down. Anything else yields 0.
func lenientCount(v any) int {
	var f float64
	switch typed := v.(type) {
	case float64:
		f = typed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func coerceStrings(v any) []string {
	switch typed := v.(type) {
	case string:
		return []string{typed}
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{})
	for _, item := range items {
		clean := strings.TrimSpace(item)
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
