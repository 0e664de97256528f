package knowledge

import (
	"strings"
)

// SymptomDurationThreshold returns the documentation schedule for a symptom.
// Symptom-specific thresholds override the configured default; when the text
// mentions more than one known symptom the strictest schedule wins. An
// unknown symptom falls back to the default for review and double the
// default for urgency.
func (t *Tables) SymptomDurationThreshold(symptomText string, defaultDays int) DurationThreshold {
	normalized := strings.ToLower(symptomText)
	best := DurationThreshold{}
	found := false
	for keyword, th := range t.durationThresholds {
		if !strings.Contains(normalized, keyword) {
			continue
		}
		if !found || th.ReviewDays < best.ReviewDays ||
			(th.ReviewDays == best.ReviewDays && th.UrgentDays < best.UrgentDays) {
			best = th
			found = true
		}
	}
	if found {
		return best
	}
	return DurationThreshold{ReviewDays: defaultDays, UrgentDays: defaultDays * 2}
}

// FreshnessWindowDays returns how stale documentation may be, in days, for a
// patient's condition type before the stale-documentation flag fires. A
// missing condition type gets the routine window; an unrecognized one gets
// the configured default, or the routine window when no default is set.
func (t *Tables) FreshnessWindowDays(conditionType string, defaultDays int) int {
	normalized := strings.ToLower(strings.TrimSpace(conditionType))
	if normalized == "" {
		normalized = "routine"
	}
	if days, ok := t.freshnessWindows[normalized]; ok {
		return days
	}
	if defaultDays > 0 {
		return defaultDays
	}
	return t.freshnessWindows["routine"]
}

// builtinDurationThresholds carries the per-symptom review schedule. The
// first number is days until review is due, the second is days until the
// flag escalates to urgent.
func builtinDurationThresholds() map[string]DurationThreshold {
	return map[string]DurationThreshold{
		"fever":               {ReviewDays: 5, UrgentDays: 10},
		"chest pain":          {ReviewDays: 1, UrgentDays: 3},
		"headache":            {ReviewDays: 7, UrgentDays: 14},
		"cough":               {ReviewDays: 14, UrgentDays: 21},
		"shortness of breath": {ReviewDays: 2, UrgentDays: 5},
		"abdominal pain":      {ReviewDays: 3, UrgentDays: 7},
		"back pain":           {ReviewDays: 14, UrgentDays: 28},
		"fatigue":             {ReviewDays: 14, UrgentDays: 30},
		"weight loss":         {ReviewDays: 14, UrgentDays: 30},
		"dizziness":           {ReviewDays: 7, UrgentDays: 14},
	}
}

func builtinFreshnessWindows() map[string]int {
	return map[string]int{
		"critical": 1,
		"acute":    7,
		"chronic":  30,
		"routine":  90,
	}
}
