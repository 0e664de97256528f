package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// NarrativeParserService extracts structured symptoms from a free-text
// encounter narrative. It only fills gaps: upstream collaborators that
// already provide structured symptoms are never second-guessed.
type NarrativeParserService struct {
	logger *logrus.Logger
	tables *knowledge.Tables
	terms  []string // known symptom phrases, sorted
}

// NewNarrativeParserService creates a new narrative parser
func NewNarrativeParserService(tables *knowledge.Tables, logger *logrus.Logger) *NarrativeParserService {
	return &NarrativeParserService{
		logger: logger,
		tables: tables,
		terms:  tables.KnownSymptomTerms(),
	}
}

// durationPattern matches duration phrases like "for 3 days", "x 2 weeks",
// "over the past 6 months".
var durationPattern = regexp.MustCompile(`(?i)(?:for|x|over|past|last)\s+(?:the\s+)?(?:past\s+|last\s+)?(\d+)\s+(day|days|week|weeks|month|months)`)

// ParsedNarrative is the structured view of a free-text narrative.
type ParsedNarrative struct {
	ChiefComplaint string
	Symptoms       []domain.Symptom
}

// ParseNarrative scans the narrative clause by clause for known symptom
// phrases and attaches any duration stated in the same clause. Clauses that
// deny a symptom ("denies chest pain") are skipped. The first detected
// symptom becomes the chief complaint.
func (s *NarrativeParserService) ParseNarrative(narrative string) ParsedNarrative {
	var parsed ParsedNarrative
	if strings.TrimSpace(narrative) == "" {
		return parsed
	}

	seen := make(map[string]struct{})
	for _, clause := range splitClauses(narrative) {
		lower := strings.ToLower(clause)
		if isNegated(lower) {
			continue
		}

		for _, term := range s.terms {
			if !strings.Contains(lower, term) {
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}

			symptom := domain.Symptom{
				Text:   term,
				Region: s.tables.RegionForSymptom(term),
			}
			if days, ok := parseDurationDays(lower); ok {
				symptom.DurationDays = &days
			}
			parsed.Symptoms = append(parsed.Symptoms, symptom)
			if parsed.ChiefComplaint == "" {
				parsed.ChiefComplaint = term
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"symptoms": len(parsed.Symptoms),
	}).Debug("Narrative parsed")

	return parsed
}

func splitClauses(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == ';' || r == ',' || r == '\n'
	})
}

// isNegated filters denial clauses so "denies chest pain" never becomes a
// reported symptom.
func isNegated(clause string) bool {
	for _, marker := range []string{"denies", "no ", "without", "negative for"} {
		if strings.Contains(clause, marker) {
			return true
		}
	}
	return false
}

func parseDurationDays(clause string) (int, bool) {
	match := durationPattern.FindStringSubmatch(clause)
	if match == nil {
		return 0, false
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	switch {
	case strings.HasPrefix(match[2], "week"):
		value *= 7
	case strings.HasPrefix(match[2], "month"):
		value *= 30
	}
	return value, true
}
