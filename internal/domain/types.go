// Package domain contains core business entities and types for the clinical
// reasoning pipeline: imaging finding classification, diagnostic consensus,
// and documentation compliance.
//
// Every result produced from these types is a candidate set for physician
// review, never a final diagnosis.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// FindingClassification represents the clinical significance assigned to an
// imaging finding after correlation with the patient's presentation.
//
// Safety ordering: CRITICAL > SIGNIFICANT > INCIDENTAL > ARTIFACT. When more
// than one rule matches a finding, the higher-ranked classification wins.
type FindingClassification string

const (
	CRITICAL    FindingClassification = "CRITICAL"
	SIGNIFICANT FindingClassification = "SIGNIFICANT"
	INCIDENTAL  FindingClassification = "INCIDENTAL"
	ARTIFACT    FindingClassification = "ARTIFACT"
)

// QualityGrade represents the overall technical quality of an imaging study,
// computed from the set of detected artifacts (worst artifact wins).
type QualityGrade string

const (
	DIAGNOSTIC     QualityGrade = "DIAGNOSTIC"
	ACCEPTABLE     QualityGrade = "ACCEPTABLE"
	DEGRADED       QualityGrade = "DEGRADED"
	NON_DIAGNOSTIC QualityGrade = "NON_DIAGNOSTIC"
)

// ArtifactKind represents the technical category of an imaging artifact.
type ArtifactKind string

const (
	MOTION      ArtifactKind = "MOTION"
	METAL       ArtifactKind = "METAL"
	POSITIONING ArtifactKind = "POSITIONING"
	EXPOSURE    ArtifactKind = "EXPOSURE"
	ALIASING    ArtifactKind = "ALIASING"
	TRUNCATION  ArtifactKind = "TRUNCATION"
)

// ArtifactSeverity represents the severity of an imaging artifact.
// Ordering: SEVERE > MODERATE > MILD > NONE.
type ArtifactSeverity string

const (
	SEVERITY_NONE     ArtifactSeverity = "NONE"
	SEVERITY_MILD     ArtifactSeverity = "MILD"
	SEVERITY_MODERATE ArtifactSeverity = "MODERATE"
	SEVERITY_SEVERE   ArtifactSeverity = "SEVERE"
)

// Modality represents the imaging modality that produced a finding.
type Modality string

const (
	XRAY Modality = "XRAY"
	CT   Modality = "CT"
	MRI  Modality = "MRI"
)

// AlertSeverity represents the severity of a clinical alert.
// Ordering for stable output: CRITICAL_ALERT > WARNING_ALERT > INFO_ALERT.
type AlertSeverity string

const (
	CRITICAL_ALERT AlertSeverity = "CRITICAL"
	WARNING_ALERT  AlertSeverity = "WARNING"
	INFO_ALERT     AlertSeverity = "INFO"
)

// InteractionSeverity represents the severity of a drug-drug interaction.
type InteractionSeverity string

const (
	INTERACTION_MINOR           InteractionSeverity = "MINOR"
	INTERACTION_MODERATE        InteractionSeverity = "MODERATE"
	INTERACTION_SEVERE          InteractionSeverity = "SEVERE"
	INTERACTION_CONTRAINDICATED InteractionSeverity = "CONTRAINDICATED"
)

// ConsensusStrength is the categorical measure of agreement across
// independent diagnostic opinions.
type ConsensusStrength string

const (
	STRONG   ConsensusStrength = "STRONG"   // agreement >= 80%
	MODERATE ConsensusStrength = "MODERATE" // 60-80%
	WEAK     ConsensusStrength = "WEAK"     // 40-60%
	SPLIT    ConsensusStrength = "SPLIT"    // < 40%
)

// Urgency represents the clinical urgency attached to an opinion or the
// deliberation as a whole.
type Urgency string

const (
	ROUTINE  Urgency = "ROUTINE"
	URGENT   Urgency = "URGENT"
	EMERGENT Urgency = "EMERGENT"
)

// RouteKind distinguishes deterministic simple actions from clinical
// reasoning queries that must traverse the full pipeline.
type RouteKind string

const (
	ROUTE_SIMPLE   RouteKind = "SIMPLE"
	ROUTE_CLINICAL RouteKind = "CLINICAL"
)

// Validation errors for clinical data integrity
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidClassification = errors.New("invalid finding classification")
	ErrInvalidQualityGrade   = errors.New("invalid quality grade")
	ErrInvalidSeverity       = errors.New("invalid artifact severity")
	ErrInvalidModality       = errors.New("invalid imaging modality")
	ErrInvalidAlertSeverity  = errors.New("invalid alert severity")
)

// IsValid validates the finding classification.
// Only valid classifications may enter a physician-facing note.
func (fc FindingClassification) IsValid() bool {
	switch fc {
	case CRITICAL, SIGNIFICANT, INCIDENTAL, ARTIFACT:
		return true
	default:
		return false
	}
}

// String returns the string representation of the classification.
// Required for proper logging and audit trails.
func (fc FindingClassification) String() string {
	return string(fc)
}

// Rank returns the safety ordering of the classification. Lower rank is more
// urgent; used to resolve findings that match multiple rules.
func (fc FindingClassification) Rank() int {
	switch fc {
	case CRITICAL:
		return 0
	case SIGNIFICANT:
		return 1
	case INCIDENTAL:
		return 2
	case ARTIFACT:
		return 3
	default:
		return 4
	}
}

// Outranks reports whether fc takes precedence over other under the
// safety-first ordering.
func (fc FindingClassification) Outranks(other FindingClassification) bool {
	return fc.Rank() < other.Rank()
}

// LogFields returns structured logging fields for audit trails.
func (fc FindingClassification) LogFields() map[string]any {
	return map[string]any{
		"classification":  string(fc),
		"is_valid":        fc.IsValid(),
		"requires_review": fc.RequiresImmediateReview(),
		"safety_rank":     fc.Rank(),
	}
}

// RequiresImmediateReview determines if the classification demands immediate
// physician attention. Conservative for unknown values.
func (fc FindingClassification) RequiresImmediateReview() bool {
	switch fc {
	case CRITICAL:
		return true
	case SIGNIFICANT, INCIDENTAL, ARTIFACT:
		return false
	default:
		return true
	}
}

// IsValid validates the quality grade.
func (qg QualityGrade) IsValid() bool {
	switch qg {
	case DIAGNOSTIC, ACCEPTABLE, DEGRADED, NON_DIAGNOSTIC:
		return true
	default:
		return false
	}
}

// String returns the string representation of the quality grade.
func (qg QualityGrade) String() string {
	return string(qg)
}

// IsValid validates the artifact kind.
func (ak ArtifactKind) IsValid() bool {
	switch ak {
	case MOTION, METAL, POSITIONING, EXPOSURE, ALIASING, TRUNCATION:
		return true
	default:
		return false
	}
}

// IsValid validates the artifact severity.
func (as ArtifactSeverity) IsValid() bool {
	switch as {
	case SEVERITY_NONE, SEVERITY_MILD, SEVERITY_MODERATE, SEVERITY_SEVERE:
		return true
	default:
		return false
	}
}

// Level returns the numeric ordering of the severity for comparisons.
func (as ArtifactSeverity) Level() int {
	switch as {
	case SEVERITY_SEVERE:
		return 3
	case SEVERITY_MODERATE:
		return 2
	case SEVERITY_MILD:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether the severity is at or above the given floor.
func (as ArtifactSeverity) AtLeast(floor ArtifactSeverity) bool {
	return as.Level() >= floor.Level()
}

// IsValid validates the imaging modality.
func (m Modality) IsValid() bool {
	switch m {
	case XRAY, CT, MRI:
		return true
	default:
		return false
	}
}

// IsValid validates the alert severity.
func (as AlertSeverity) IsValid() bool {
	switch as {
	case CRITICAL_ALERT, WARNING_ALERT, INFO_ALERT:
		return true
	default:
		return false
	}
}

// Rank returns the ordering used for stable alert sorting
// (critical first, then warning, then info).
func (as AlertSeverity) Rank() int {
	switch as {
	case CRITICAL_ALERT:
		return 0
	case WARNING_ALERT:
		return 1
	case INFO_ALERT:
		return 2
	default:
		return 3
	}
}

// AlertSeverity maps a drug interaction severity to the alert severity
// surfaced to the physician. Contraindicated and severe interactions are
// never downgraded below critical.
func (is InteractionSeverity) AlertSeverity() AlertSeverity {
	switch is {
	case INTERACTION_CONTRAINDICATED, INTERACTION_SEVERE:
		return CRITICAL_ALERT
	case INTERACTION_MODERATE:
		return WARNING_ALERT
	default:
		return INFO_ALERT
	}
}

// IsValid validates the interaction severity.
func (is InteractionSeverity) IsValid() bool {
	switch is {
	case INTERACTION_MINOR, INTERACTION_MODERATE, INTERACTION_SEVERE, INTERACTION_CONTRAINDICATED:
		return true
	default:
		return false
	}
}

// StrengthForAgreement maps an agreement fraction in [0,1] to a consensus
// strength category. The boundaries are inclusive at the top of each band,
// so 4 of 5 agreeing opinions (0.8) is a strong consensus.
func StrengthForAgreement(fraction float64) ConsensusStrength {
	switch {
	case fraction >= 0.8:
		return STRONG
	case fraction >= 0.6:
		return MODERATE
	case fraction >= 0.4:
		return WEAK
	default:
		return SPLIT
	}
}

// String returns the string representation of the consensus strength.
func (cs ConsensusStrength) String() string {
	return string(cs)
}

// IsValid validates the consensus strength.
func (cs ConsensusStrength) IsValid() bool {
	switch cs {
	case STRONG, MODERATE, WEAK, SPLIT:
		return true
	default:
		return false
	}
}

// MaxUrgency returns the more urgent of two urgency levels.
func MaxUrgency(a, b Urgency) Urgency {
	if a.rank() >= b.rank() {
		return a
	}
	return b
}

func (u Urgency) rank() int {
	switch u {
	case EMERGENT:
		return 2
	case URGENT:
		return 1
	default:
		return 0
	}
}

// IsValid validates the urgency level.
func (u Urgency) IsValid() bool {
	switch u {
	case ROUTINE, URGENT, EMERGENT:
		return true
	default:
		return false
	}
}

// IsValid validates the route kind.
func (rk RouteKind) IsValid() bool {
	switch rk {
	case ROUTE_SIMPLE, ROUTE_CLINICAL:
		return true
	default:
		return false
	}
}

// ParseModality normalizes an external modality string.
func ParseModality(s string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xray", "x-ray":
		return XRAY, nil
	case "ct":
		return CT, nil
	case "mri":
		return MRI, nil
	default:
		return "", fmt.Errorf("parsing modality %q: %w", s, ErrInvalidModality)
	}
}
