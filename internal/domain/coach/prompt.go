package coach

import (
	"fmt"
	"strings"
)

// systemInstruction is sent with every generation request.
const systemInstruction = "You are an evidence-based strength coach and sports nutritionist. " +
	"Answer with a single minified JSON object and nothing else: no prose, no markdown, no code fences."

// Profile is the context rendered into prompts. Nil pointers mean "not provided".
type Profile struct {
	Goal                 string
	ActivityLevel        string
	WeightKg             float64
	RecoveryScore        *int
	Equipment            []string
	DaysSinceLastWorkout *int
	Extra                string
}

// BuildNutritionPrompt renders the daily macro target request.
func BuildNutritionPrompt(p Profile) string {
	var b strings.Builder
	b.WriteString("Calculate daily nutrition targets for this athlete.\n\n")
	writeProfile(&b, p, false)
	b.WriteString("\nRules:\n")
	fmt.Fprintf(&b, "- calories: integer between %d and %d\n", caloriesRange.min, caloriesRange.max)
	fmt.Fprintf(&b, "- protein: integer grams between %d and %d\n", proteinRange.min, proteinRange.max)
	fmt.Fprintf(&b, "- carbs: integer grams between %d and %d\n", carbsRange.min, carbsRange.max)
	fmt.Fprintf(&b, "- fats: integer grams between %d and %d\n", fatsRange.min, fatsRange.max)
	fmt.Fprintf(&b, "- protein*4 + carbs*4 + fats*9 must be within %d of calories\n", macroTolerance)
	b.WriteString("- notes: one or two short practical sentences\n\n")
	b.WriteString(`Respond ONLY with JSON shaped as {"calories":int,"protein":int,"carbs":int,"fats":int,"notes":string}.`)
	return b.String()
}

// BuildPlanPrompt renders the weekly plan request.
func BuildPlanPrompt(p Profile) string {
	var b strings.Builder
	b.WriteString("Design a training week for this athlete.\n\n")
	writeProfile(&b, p, true)
	b.WriteString("\nRules:\n")
	fmt.Fprintf(&b, "- the plan array must contain exactly %d entries, one per day, in day order\n", planLength)
	fmt.Fprintf(&b, "- day: integer between %d and %d\n", dayRange.min, dayRange.max)
	b.WriteString("- workout_type: short label such as strength, cardio, mobility or rest; never empty\n")
	b.WriteString("- intensity: one of low, medium, high\n")
	b.WriteString("- notes: one short sentence, may be empty\n")
	b.WriteString("- schedule at least one rest day\n\n")
	b.WriteString(`Respond ONLY with JSON shaped as {"plan":[{"day":int,"workout_type":string,"intensity":string,"notes":string}]}.`)
	return b.String()
}

// BuildWorkoutPrompt renders the workout-of-the-day request.
func BuildWorkoutPrompt(p Profile) string {
	var b strings.Builder
	b.WriteString("Create today's workout for this athlete.\n\n")
	writeProfile(&b, p, true)
	b.WriteString("\nRules:\n")
	b.WriteString("- between 4 and 8 exercises, warm-up first\n")
	b.WriteString("- only use the listed equipment\n")
	b.WriteString("- lower the volume when the recovery score is below 50 or the last workout was yesterday\n")
	b.WriteString("- duration and rest are whole seconds; use duration 0 for rep-based exercises and set sets and reps instead\n")
	b.WriteString("- rpe is a short effort label such as easy, moderate, hard or a 1-10 number\n")
	b.WriteString("- note: one sentence explaining the focus of the session\n\n")
	b.WriteString(`Respond ONLY with JSON shaped as {"note":string,"exercises":[{"name":string,"duration":int,"rest":int,"sets":int,"reps":int,"rpe":string}]}.`)
	return b.String()
}

// BuildBodyScanPrompt renders the progress photo analysis request.
func BuildBodyScanPrompt(p Profile) string {
	var b strings.Builder
	b.WriteString("Review the attached progress photo as a fitness coach.\n\n")
	writeProfile(&b, p, false)
	b.WriteString("\nRules:\n")
	b.WriteString("- describe visible posture and muscle development only; no medical diagnosis and no body fat percentages\n")
	b.WriteString("- summary: at most three sentences, encouraging and specific\n")
	b.WriteString("- focus_areas: up to 4 short items\n")
	b.WriteString("- recommendations: up to 4 short actionable items\n\n")
	b.WriteString(`Respond ONLY with JSON shaped as {"summary":string,"focus_areas":[string],"recommendations":[string]}.`)
	return b.String()
}

func writeProfile(b *strings.Builder, p Profile, training bool) {
	b.WriteString("Athlete profile:\n")
	fmt.Fprintf(b, "- Goal: %s\n", orDefault(p.Goal, "general fitness"))
	fmt.Fprintf(b, "- Activity level: %s\n", orDefault(p.ActivityLevel, "moderate"))
	if p.WeightKg > 0 {
		fmt.Fprintf(b, "- Body weight: %.1f kg\n", p.WeightKg)
	} else {
		b.WriteString("- Body weight: not provided\n")
	}
	if p.RecoveryScore != nil {
		fmt.Fprintf(b, "- Recovery score: %d/100\n", *p.RecoveryScore)
	} else {
		b.WriteString("- Recovery score: not provided\n")
	}
	if training {
		fmt.Fprintf(b, "- Equipment: %s\n", equipmentList(p.Equipment))
		if p.DaysSinceLastWorkout != nil {
			fmt.Fprintf(b, "- Days since last workout: %d\n", *p.DaysSinceLastWorkout)
		} else {
			b.WriteString("- Days since last workout: unknown\n")
		}
	}
	if extra := strings.TrimSpace(p.Extra); extra != "" {
		fmt.Fprintf(b, "- Athlete's request: %s\n", extra)
	}
}

func equipmentList(items []string) string {
	clean := normalizeList(items)
	if len(clean) == 0 {
		return "bodyweight only"
	}
	return strings.Join(clean, ", ")
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
