package knowledge

import (
	"sort"
	"strings"

	"github.com/clinical-reasoning-server/internal/domain"
)

// CheckInteraction looks up a known interaction between two medications.
// Lookup is symmetric: CheckInteraction(a, b) and CheckInteraction(b, a)
// resolve the same entry. Names are matched case-insensitively on the base
// drug name, ignoring dose suffixes like "warfarin 5mg".
func (t *Tables) CheckInteraction(drugA, drugB string) (*domain.DrugInteractionEntry, bool) {
	a := normalizeDrugName(drugA)
	b := normalizeDrugName(drugB)
	if a == "" || b == "" || a == b {
		return nil, false
	}
	entry, ok := t.interactions[interactionKey(a, b)]
	if !ok {
		return nil, false
	}
	return &entry, true
}

// InteractionEntries returns a copy of the interaction table for reporting.
func (t *Tables) InteractionEntries() []domain.DrugInteractionEntry {
	out := make([]domain.DrugInteractionEntry, 0, len(t.interactions))
	for _, entry := range t.interactions {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DrugA != out[j].DrugA {
			return out[i].DrugA < out[j].DrugA
		}
		return out[i].DrugB < out[j].DrugB
	})
	return out
}

// normalizeDrugName lowercases and keeps only the leading drug name token,
// so "Warfarin 5mg daily" matches the table entry for "warfarin".
func normalizeDrugName(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// interactionKey builds an order-independent map key for a drug pair.
func interactionKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func indexInteractions(entries []domain.DrugInteractionEntry) map[string]domain.DrugInteractionEntry {
	index := make(map[string]domain.DrugInteractionEntry, len(entries))
	for _, entry := range entries {
		key := interactionKey(normalizeDrugName(entry.DrugA), normalizeDrugName(entry.DrugB))
		index[key] = entry
	}
	return index
}

func builtinInteractions() map[string]domain.DrugInteractionEntry {
	return indexInteractions([]domain.DrugInteractionEntry{
		{DrugA: "warfarin", DrugB: "aspirin", Severity: domain.INTERACTION_SEVERE, Note: "Additive anticoagulation, major bleeding risk"},
		{DrugA: "warfarin", DrugB: "ibuprofen", Severity: domain.INTERACTION_SEVERE, Note: "NSAID potentiates anticoagulation and GI bleeding"},
		{DrugA: "warfarin", DrugB: "amiodarone", Severity: domain.INTERACTION_SEVERE, Note: "Amiodarone inhibits warfarin metabolism, INR rises"},
		{DrugA: "sildenafil", DrugB: "nitroglycerin", Severity: domain.INTERACTION_CONTRAINDICATED, Note: "Profound hypotension, never co-administer"},
		{DrugA: "methotrexate", DrugB: "trimethoprim", Severity: domain.INTERACTION_CONTRAINDICATED, Note: "Combined folate antagonism, bone marrow suppression"},
		{DrugA: "simvastatin", DrugB: "clarithromycin", Severity: domain.INTERACTION_CONTRAINDICATED, Note: "CYP3A4 inhibition, rhabdomyolysis risk"},
		{DrugA: "digoxin", DrugB: "amiodarone", Severity: domain.INTERACTION_SEVERE, Note: "Amiodarone raises digoxin levels, toxicity risk"},
		{DrugA: "lisinopril", DrugB: "spironolactone", Severity: domain.INTERACTION_MODERATE, Note: "Hyperkalemia risk, monitor potassium"},
		{DrugA: "tramadol", DrugB: "sertraline", Severity: domain.INTERACTION_MODERATE, Note: "Serotonin syndrome risk"},
		{DrugA: "omeprazole", DrugB: "clopidogrel", Severity: domain.INTERACTION_MODERATE, Note: "Reduced antiplatelet activation"},
		{DrugA: "metformin", DrugB: "furosemide", Severity: domain.INTERACTION_MINOR, Note: "Loop diuretic may affect glycemic control"},
		{DrugA: "aspirin", DrugB: "ibuprofen", Severity: domain.INTERACTION_MINOR, Note: "Ibuprofen may blunt aspirin cardioprotection"},
	})
}
