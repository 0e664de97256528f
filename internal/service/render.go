package service

import (
	"fmt"
	"strings"

	"github.com/clinical-reasoning-server/internal/domain"
)

// RenderMarkdown formats an assembled note for physician review. The
// rendering is presentation only; the structured note stays the source of
// truth for any downstream consumer.
func RenderMarkdown(note *domain.EnhancedSOAPNote) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Enhanced SOAP Note\n\n")
	fmt.Fprintf(&b, "Encounter: %s  \n", note.EncounterID)
	fmt.Fprintf(&b, "Generated: %s  \n", note.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Image quality: %s\n\n", note.QualityGrade)

	if len(note.Alerts) > 0 {
		b.WriteString("## Alerts\n\n")
		for _, alert := range note.Alerts {
			fmt.Fprintf(&b, "- **[%s]** %s (source: %s)\n", alert.Severity, alert.Message, alert.Source)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Subjective\n\n%s\n\n", note.Subjective)
	fmt.Fprintf(&b, "## Objective\n\n%s\n\n", note.Objective)
	fmt.Fprintf(&b, "## Assessment\n\n%s\n\n", note.Assessment)
	fmt.Fprintf(&b, "## Plan\n\n%s\n\n", note.Plan)

	if len(note.CorrelationResults) > 0 {
		fmt.Fprintf(&b, "## Finding Correlation (%s)\n\n", note.CorrelationSummary)
		for _, c := range note.CorrelationResults {
			fmt.Fprintf(&b, "- `%s` **%s**", c.FindingID, c.Classification)
			if c.MatchedSymptom != "" {
				fmt.Fprintf(&b, " matched symptom %q", c.MatchedSymptom)
			}
			if c.PrevalenceNote != "" {
				fmt.Fprintf(&b, " (%s)", c.PrevalenceNote)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(note.ICD10Codes) > 0 {
		b.WriteString("## Suggested ICD-10 Codes\n\n")
		for _, code := range note.ICD10Codes {
			fmt.Fprintf(&b, "- %s %s\n", code.Code, code.Label)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Diagnostic Council\n\n")
	if note.Consensus != nil {
		fmt.Fprintf(&b, "Consensus: **%s** (%s, %.0f%% agreement, mean confidence %.2f)\n",
			note.Consensus.TopDiagnosis, note.Consensus.Strength,
			note.Consensus.AgreementFraction*100, note.Consensus.MeanConfidence)
		if len(note.Consensus.Dissenting) > 0 {
			fmt.Fprintf(&b, "Dissenting: %s\n", strings.Join(note.Consensus.Dissenting, ", "))
		}
	} else {
		b.WriteString("Consensus unavailable for this encounter.\n")
	}
	b.WriteString("\n")

	if len(note.ComplianceFlags) > 0 {
		b.WriteString("## Compliance Flags\n\n")
		for _, flag := range note.ComplianceFlags {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", flag.Severity, flag.RuleID, flag.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString("*Decision support only. All content requires physician review and approval.*\n")
	return b.String()
}
