package knowledge

import (
	"sort"
	"strings"
)

// ExpectedSymptoms returns the symptom keywords associated with a body
// region. An empty slice means the region has no mapping; the correlator
// then falls through to the prevalence lookup.
func (t *Tables) ExpectedSymptoms(region string) []string {
	return t.regionSymptoms[strings.ToLower(strings.TrimSpace(region))]
}

// RegionForSymptom infers the body region a free-text symptom belongs to by
// keyword membership in the region map. Returns "" when no region matches.
func (t *Tables) RegionForSymptom(symptomText string) string {
	tokens := t.Tokenize(symptomText)
	if len(tokens) == 0 {
		return ""
	}
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = struct{}{}
	}
	// Stable iteration over a fixed region order keeps inference
	// deterministic when a symptom could map to more than one region.
	for _, region := range canonicalRegions {
		for _, keyword := range t.regionSymptoms[region] {
			if keywordInTokens(keyword, tokenSet) {
				return region
			}
		}
	}
	return ""
}

// KnownSymptomTerms returns every symptom phrase the tables know about, in
// sorted order: the union of the per-region vocabularies and the symptoms
// carrying a duration threshold. Used by the narrative parser to spot
// symptom mentions in free text.
func (t *Tables) KnownSymptomTerms() []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	for _, region := range canonicalRegions {
		for _, keyword := range t.regionSymptoms[region] {
			add(keyword)
		}
	}
	for keyword := range t.durationThresholds {
		add(keyword)
	}
	sort.Strings(terms)
	return terms
}

// IsCriticalTerm reports whether the description contains a condition from
// the critical watchlist. Watchlist conditions always escalate, whatever
// the prevalence table or symptom match says. Matching is on token
// boundaries so "mass" does not fire on "massive".
func (t *Tables) IsCriticalTerm(description string) (string, bool) {
	tokenSet := make(map[string]struct{})
	for _, tok := range t.Tokenize(description) {
		tokenSet[tok] = struct{}{}
	}
	for _, term := range t.criticalTerms {
		if keywordInTokens(term, tokenSet) {
			return term, true
		}
	}
	return "", false
}

// Tokenize lowercases text, splits on non-letter boundaries and removes
// stopwords. This is the single tokenization used for all keyword-overlap
// matching so classification is deterministic.
func (t *Tables) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := t.stopwords[f]; stop {
			continue
		}
		if len(f) < 2 {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// KeywordOverlap counts shared tokens between two texts after tokenization.
func (t *Tables) KeywordOverlap(a, b string) int {
	setA := make(map[string]struct{})
	for _, tok := range t.Tokenize(a) {
		setA[tok] = struct{}{}
	}
	overlap := 0
	seen := make(map[string]struct{})
	for _, tok := range t.Tokenize(b) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := setA[tok]; ok {
			overlap++
		}
	}
	return overlap
}

// keywordInTokens checks whether every token of a (possibly multi-word)
// keyword is present in the token set.
func keywordInTokens(keyword string, tokenSet map[string]struct{}) bool {
	parts := strings.Fields(strings.ToLower(keyword))
	if len(parts) == 0 {
		return false
	}
	for _, part := range parts {
		if _, ok := tokenSet[part]; !ok {
			return false
		}
	}
	return true
}

var canonicalRegions = []string{"chest", "head", "abdomen", "pelvis", "spine", "neck", "extremity"}

func builtinRegionSymptoms() map[string][]string {
	return map[string][]string{
		"chest": {
			"cough", "chest pain", "shortness of breath", "dyspnea",
			"wheezing", "hemoptysis", "palpitations", "pleuritic pain",
		},
		"head": {
			"headache", "dizziness", "confusion", "vision change",
			"seizure", "weakness", "slurred speech",
		},
		"abdomen": {
			"abdominal pain", "nausea", "vomiting", "diarrhea",
			"constipation", "bloating", "melena",
		},
		"pelvis": {
			"pelvic pain", "dysuria", "hematuria", "flank pain",
		},
		"spine": {
			"back pain", "radiculopathy", "numbness", "sciatica",
		},
		"neck": {
			"neck pain", "dysphagia", "hoarseness", "neck swelling",
		},
		"extremity": {
			"joint pain", "swelling", "limb pain", "claudication",
		},
	}
}

// builtinCriticalTerms is the watchlist of never-downgrade conditions. A
// finding containing any of these is Critical regardless of symptom match
// or prevalence table membership.
func builtinCriticalTerms() []string {
	return []string{
		"pneumothorax",
		"pulmonary embolism",
		"pulmonary emboli",
		"aortic dissection",
		"mass",
		"free air",
		"intracranial hemorrhage",
		"midline shift",
		"sepsis",
	}
}

func builtinStopwords() map[string]struct{} {
	words := []string{
		"the", "a", "an", "of", "in", "on", "at", "with", "and", "or",
		"for", "to", "is", "are", "was", "has", "had", "no", "not",
		"left", "right", "upper", "lower", "bilateral", "mild", "small",
		"patient", "reports", "denies", "noted", "seen",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
