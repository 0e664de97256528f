package knowledge

import (
	"strings"

	"github.com/clinical-reasoning-server/internal/domain"
)

// MatchICD10 returns every ICD-10 entry whose trigger keywords appear in the
// given finding description. Multiple matches are all returned; only exact
// code duplicates are removed. Disambiguation between overlapping code
// families is deliberately left to the reviewing physician.
func (t *Tables) MatchICD10(description string) []domain.ICD10Entry {
	normalized := strings.ToLower(description)
	if normalized == "" {
		return nil
	}

	var matches []domain.ICD10Entry
	seen := make(map[string]struct{})
	for _, entry := range t.icd10 {
		for _, keyword := range entry.TriggerKeywords {
			if strings.Contains(normalized, strings.ToLower(keyword)) {
				if _, dup := seen[entry.Code]; !dup {
					seen[entry.Code] = struct{}{}
					matches = append(matches, entry)
				}
				break
			}
		}
	}
	return matches
}

// ICD10Entries returns a copy of the code table for reporting.
func (t *Tables) ICD10Entries() []domain.ICD10Entry {
	out := make([]domain.ICD10Entry, len(t.icd10))
	copy(out, t.icd10)
	return out
}

func builtinICD10() []domain.ICD10Entry {
	return []domain.ICD10Entry{
		{Code: "J18.9", Label: "Pneumonia, unspecified organism", TriggerKeywords: []string{"pneumonia", "consolidation", "infiltrate", "airspace opacity"}},
		{Code: "J93.9", Label: "Pneumothorax, unspecified", TriggerKeywords: []string{"pneumothorax", "collapsed lung"}},
		{Code: "I26.99", Label: "Other pulmonary embolism", TriggerKeywords: []string{"pulmonary embolism", "pulmonary emboli", "filling defect"}},
		{Code: "R91.1", Label: "Solitary pulmonary nodule", TriggerKeywords: []string{"pulmonary nodule", "lung nodule", "solitary nodule"}},
		{Code: "R91.8", Label: "Other nonspecific abnormal finding of lung field", TriggerKeywords: []string{"lung mass", "pulmonary mass", "lung opacity"}},
		{Code: "J90", Label: "Pleural effusion, not elsewhere classified", TriggerKeywords: []string{"pleural effusion", "effusion"}},
		{Code: "J44.1", Label: "COPD with acute exacerbation", TriggerKeywords: []string{"copd", "emphysema", "hyperinflation"}},
		{Code: "I51.7", Label: "Cardiomegaly", TriggerKeywords: []string{"cardiomegaly", "enlarged heart", "enlarged cardiac silhouette"}},
		{Code: "I50.9", Label: "Heart failure, unspecified", TriggerKeywords: []string{"heart failure", "pulmonary edema", "vascular congestion"}},
		{Code: "I71.00", Label: "Dissection of unspecified site of aorta", TriggerKeywords: []string{"aortic dissection", "intimal flap"}},
		{Code: "A41.9", Label: "Sepsis, unspecified organism", TriggerKeywords: []string{"sepsis", "septic"}},
		{Code: "S22.39XA", Label: "Fracture of one rib, initial encounter", TriggerKeywords: []string{"rib fracture", "fractured rib"}},
		{Code: "N20.0", Label: "Calculus of kidney", TriggerKeywords: []string{"renal calculus", "kidney stone", "nephrolithiasis"}},
		{Code: "K80.20", Label: "Calculus of gallbladder without cholecystitis", TriggerKeywords: []string{"gallstone", "cholelithiasis"}},
		{Code: "I63.9", Label: "Cerebral infarction, unspecified", TriggerKeywords: []string{"infarct", "ischemic stroke", "acute stroke"}},
		{Code: "I62.9", Label: "Nontraumatic intracranial hemorrhage, unspecified", TriggerKeywords: []string{"intracranial hemorrhage", "hemorrhage", "hematoma"}},
		{Code: "D49.9", Label: "Neoplasm of unspecified behavior, unspecified site", TriggerKeywords: []string{"mass", "neoplasm", "tumor"}},
		{Code: "M54.50", Label: "Low back pain, unspecified", TriggerKeywords: []string{"disc bulge", "disc herniation", "degenerative disc"}},
	}
}
