package knowledge

import (
	"strings"

	"github.com/clinical-reasoning-server/internal/domain"
)

// LookupPrevalence matches a finding description against the prevalence
// table. Matching is case-insensitive substring on condition name, so
// "pulmonary nodule, right upper lobe" resolves the "pulmonary nodule"
// entry. The first matching entry in table order wins.
func (t *Tables) LookupPrevalence(description string) (*domain.PrevalenceEntry, bool) {
	normalized := strings.ToLower(strings.TrimSpace(description))
	if normalized == "" {
		return nil, false
	}
	for i := range t.prevalence {
		if strings.Contains(normalized, strings.ToLower(t.prevalence[i].ConditionName)) {
			return &t.prevalence[i], true
		}
	}
	return nil, false
}

// PrevalenceEntries returns a copy of the prevalence table for reporting.
func (t *Tables) PrevalenceEntries() []domain.PrevalenceEntry {
	out := make([]domain.PrevalenceEntry, len(t.prevalence))
	copy(out, t.prevalence)
	return out
}

// builtinPrevalence is the reference incidental-finding prevalence table.
// Rates reflect published incidence in asymptomatic imaging populations.
func builtinPrevalence() []domain.PrevalenceEntry {
	return []domain.PrevalenceEntry{
		{
			ConditionName:         "pulmonary nodule",
			PopulationDescription: "chest CTs",
			MinPct:                25,
			MaxPct:                50,
			SourceCitation:        "Fleischner Society 2017",
			Regions:               []string{"chest"},
		},
		{
			ConditionName:         "thyroid nodule",
			PopulationDescription: "adults on neck ultrasound",
			MinPct:                50,
			MaxPct:                60,
			SourceCitation:        "ATA guidelines 2015",
			Regions:               []string{"neck"},
		},
		{
			ConditionName:         "hepatic cyst",
			PopulationDescription: "abdominal CTs",
			MinPct:                15,
			MaxPct:                18,
			SourceCitation:        "ACR incidental findings white paper",
			Regions:               []string{"abdomen"},
		},
		{
			ConditionName:         "renal cyst",
			PopulationDescription: "adults over 50 on abdominal imaging",
			MinPct:                20,
			MaxPct:                40,
			SourceCitation:        "Bosniak classification literature",
			Regions:               []string{"abdomen"},
		},
		{
			ConditionName:         "adrenal incidentaloma",
			PopulationDescription: "abdominal CTs",
			MinPct:                3,
			MaxPct:                7,
			SourceCitation:        "AACE/AAES guidelines",
			Regions:               []string{"abdomen"},
		},
		{
			ConditionName:         "meningioma",
			PopulationDescription: "brain MRIs",
			MinPct:                1,
			MaxPct:                2,
			SourceCitation:        "population MRI studies",
			Regions:               []string{"head"},
		},
		{
			ConditionName:         "pituitary microadenoma",
			PopulationDescription: "brain MRIs",
			MinPct:                10,
			MaxPct:                15,
			SourceCitation:        "autopsy and imaging series",
			Regions:               []string{"head"},
		},
		{
			ConditionName:         "disc bulge",
			PopulationDescription: "asymptomatic adults on lumbar MRI",
			MinPct:                30,
			MaxPct:                60,
			SourceCitation:        "Brinjikji systematic review 2015",
			Regions:               []string{"spine"},
		},
		{
			ConditionName:         "bone island",
			PopulationDescription: "skeletal radiographs",
			MinPct:                1,
			MaxPct:                14,
			SourceCitation:        "skeletal survey series",
			Regions:               []string{"extremity", "spine", "pelvis"},
		},
		{
			ConditionName:         "granuloma",
			PopulationDescription: "chest radiographs",
			MinPct:                2,
			MaxPct:                5,
			SourceCitation:        "screening radiograph series",
			Regions:               []string{"chest"},
		},
	}
}
