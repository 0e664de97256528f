package knowledge

import (
	"strings"

	"github.com/clinical-reasoning-server/internal/domain"
)

// MatchArtifactKinds scans text for artifact signatures and returns the
// kinds whose vocabulary matched, in a fixed kind order so repeated scans of
// the same text produce identical results.
func (t *Tables) MatchArtifactKinds(text string) []domain.ArtifactKind {
	normalized := strings.ToLower(text)
	if normalized == "" {
		return nil
	}
	var kinds []domain.ArtifactKind
	for _, kind := range artifactKindOrder {
		for _, keyword := range t.artifactVocabulary[kind] {
			if strings.Contains(normalized, keyword) {
				kinds = append(kinds, kind)
				break
			}
		}
	}
	return kinds
}

// ArtifactSeverityFromText infers severity from qualifier words in the text.
// Unqualified artifact mentions default to mild; the quality grade policy
// treats unknown severity conservatively downstream.
func ArtifactSeverityFromText(text string) domain.ArtifactSeverity {
	normalized := strings.ToLower(text)
	for _, word := range []string{"severe", "marked", "gross", "extensive", "non-diagnostic"} {
		if strings.Contains(normalized, word) {
			return domain.SEVERITY_SEVERE
		}
	}
	for _, word := range []string{"moderate", "significant", "substantial"} {
		if strings.Contains(normalized, word) {
			return domain.SEVERITY_MODERATE
		}
	}
	return domain.SEVERITY_MILD
}

var artifactKindOrder = []domain.ArtifactKind{
	domain.MOTION,
	domain.METAL,
	domain.POSITIONING,
	domain.EXPOSURE,
	domain.ALIASING,
	domain.TRUNCATION,
}

func builtinArtifactVocabulary() map[domain.ArtifactKind][]string {
	return map[domain.ArtifactKind][]string{
		domain.MOTION: {
			"motion", "blur", "blurring", "ghosting", "breathing artifact", "respiratory artifact",
		},
		domain.METAL: {
			"metal", "metallic", "streak artifact", "beam hardening", "prosthesis", "hardware", "implant",
		},
		domain.POSITIONING: {
			"rotated", "rotation", "off-center", "clipped anatomy", "positioning", "malposition",
		},
		domain.EXPOSURE: {
			"underexposed", "overexposed", "underpenetrated", "overpenetrated", "noise", "grainy", "low dose",
		},
		domain.ALIASING: {
			"aliasing", "wraparound", "wrap-around", "fold-over",
		},
		domain.TRUNCATION: {
			"truncation", "truncated", "cut off", "incomplete field of view",
		},
	}
}
