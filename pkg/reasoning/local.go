package reasoning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// LocalGenerator produces diagnostic opinions from the knowledge tables
// alone, with no network dependency. It is the default backend for
// development and air-gapped deployments. Seat-dependent weighting gives
// the council mild diversity while staying fully deterministic for a given
// encounter.
type LocalGenerator struct {
	logger *logrus.Logger
	tables *knowledge.Tables
}

// NewLocalGenerator creates a new local rule-based opinion generator
func NewLocalGenerator(tables *knowledge.Tables, logger *logrus.Logger) *LocalGenerator {
	return &LocalGenerator{
		logger: logger,
		tables: tables,
	}
}

// Name identifies the backend for logging and audit trails.
func (g *LocalGenerator) Name() string {
	return "local"
}

type candidate struct {
	label      string
	confidence float64
	emergent   bool
	region     string
}

// GenerateOpinion scores ICD-10 labels triggered by the encounter's
// findings and symptoms. Findings contribute their collaborator-reported
// confidence; symptom corroboration in the same region raises a candidate.
func (g *LocalGenerator) GenerateOpinion(ctx context.Context, encounter *domain.EncounterCase, seat int) (*domain.DiagnosticOpinion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make(map[string]*candidate)

	for _, finding := range encounter.Findings {
		_, critical := g.tables.IsCriticalTerm(finding.Description)
		for _, entry := range g.tables.MatchICD10(finding.Description) {
			key := strings.ToLower(entry.Label)
			c, ok := candidates[key]
			if !ok {
				c = &candidate{label: entry.Label, region: finding.Region}
				candidates[key] = c
			}
			weight := 0.6 + seatWeight(seat, entry.Code)
			score := finding.RawConfidence * weight
			if score > c.confidence {
				c.confidence = score
			}
			c.emergent = c.emergent || critical
		}
	}

	for _, symptom := range encounter.Symptoms {
		region := symptom.Region
		if region == "" {
			region = g.tables.RegionForSymptom(symptom.Text)
		}
		for _, c := range candidates {
			if region != "" && c.region == region {
				c.confidence += 0.1
			}
		}
	}

	if len(candidates) == 0 {
		// Nothing in the tables explains the presentation; a low-confidence
		// deferral is still a valid opinion for the council to weigh.
		return &domain.DiagnosticOpinion{
			OpinionID: fmt.Sprintf("%s-seat%d", encounter.EncounterID, seat),
			RankedDiagnoses: []domain.RankedDiagnosis{
				{Label: "Clinical correlation required", Confidence: 0.2},
			},
			Reasoning: "no knowledge table entry matched the findings or symptoms",
			Urgency:   domain.ROUTINE,
		}, nil
	}

	ranked := make([]domain.RankedDiagnosis, 0, len(candidates))
	urgency := domain.ROUTINE
	for _, c := range candidates {
		if c.confidence > 1 {
			c.confidence = 1
		}
		ranked = append(ranked, domain.RankedDiagnosis{Label: c.label, Confidence: c.confidence})
		if c.emergent {
			urgency = domain.EMERGENT
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return strings.ToLower(ranked[i].Label) < strings.ToLower(ranked[j].Label)
	})

	return &domain.DiagnosticOpinion{
		OpinionID:        fmt.Sprintf("%s-seat%d", encounter.EncounterID, seat),
		RankedDiagnoses:  ranked,
		Reasoning:        fmt.Sprintf("matched %d candidate diagnoses from %d findings", len(ranked), len(encounter.Findings)),
		RecommendedTests: recommendedTests(ranked[0].Label, urgency),
		Urgency:          urgency,
	}, nil
}

// seatWeight gives each council seat a small deterministic bias so opinions
// are not byte-identical across seats.
func seatWeight(seat int, code string) float64 {
	sum := seat
	for _, r := range code {
		sum += int(r)
	}
	return float64(sum%5) * 0.05
}

func recommendedTests(topLabel string, urgency domain.Urgency) []string {
	label := strings.ToLower(topLabel)
	var tests []string
	switch {
	case strings.Contains(label, "embolism"):
		tests = append(tests, "CT pulmonary angiography", "D-dimer")
	case strings.Contains(label, "pneumonia"):
		tests = append(tests, "sputum culture", "CBC with differential")
	case strings.Contains(label, "pneumothorax"):
		tests = append(tests, "serial chest radiographs")
	case strings.Contains(label, "neoplasm"), strings.Contains(label, "nodule"):
		tests = append(tests, "follow-up CT per Fleischner criteria")
	}
	if urgency == domain.EMERGENT {
		tests = append(tests, "immediate clinical reassessment")
	}
	return tests
}
