package knowledge

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
)

// Tables is the read-only clinical knowledge base. It is loaded once at
// process start and shared by every concurrent pipeline run without
// synchronization; nothing mutates it after NewTables returns. A malformed
// table is a startup failure, never a request-time one.
type Tables struct {
	logger  *logrus.Logger
	version string

	prevalence   []domain.PrevalenceEntry
	icd10        []domain.ICD10Entry
	interactions map[string]domain.DrugInteractionEntry

	regionSymptoms     map[string][]string
	criticalTerms      []string
	stopwords          map[string]struct{}
	artifactVocabulary map[domain.ArtifactKind][]string
	durationThresholds map[string]DurationThreshold
	freshnessWindows   map[string]int
	simpleActions      map[string]string
}

// DurationThreshold is the per-symptom documentation schedule: how many days
// a symptom may persist before it needs review, and before it becomes urgent.
type DurationThreshold struct {
	ReviewDays int `json:"review_days"`
	UrgentDays int `json:"urgent_days"`
}

// NewTables builds the knowledge base from the built-in reference data,
// applying any file overrides named in the configuration.
func NewTables(cfg *domain.KnowledgeConfig, logger *logrus.Logger) (*Tables, error) {
	t := &Tables{
		logger:             logger,
		version:            "builtin-1",
		prevalence:         builtinPrevalence(),
		icd10:              builtinICD10(),
		interactions:       builtinInteractions(),
		regionSymptoms:     builtinRegionSymptoms(),
		criticalTerms:      builtinCriticalTerms(),
		stopwords:          builtinStopwords(),
		artifactVocabulary: builtinArtifactVocabulary(),
		durationThresholds: builtinDurationThresholds(),
		freshnessWindows:   builtinFreshnessWindows(),
		simpleActions:      builtinSimpleActions(),
	}

	if cfg != nil {
		if cfg.Version != "" {
			t.version = cfg.Version
		}
		if err := t.loadOverrides(cfg); err != nil {
			return nil, domain.NewPipelineError(domain.ErrConfiguration, "knowledge", "failed to load knowledge table overrides").WithCause(err)
		}
	}

	if err := t.validate(); err != nil {
		return nil, domain.NewPipelineError(domain.ErrConfiguration, "knowledge", "knowledge table validation failed").WithCause(err)
	}

	logger.WithFields(logrus.Fields{
		"version":            t.version,
		"prevalence_entries": len(t.prevalence),
		"icd10_entries":      len(t.icd10),
		"interaction_pairs":  len(t.interactions),
		"critical_terms":     len(t.criticalTerms),
	}).Info("Knowledge tables loaded")

	return t, nil
}

// Version returns the knowledge table version string for audit trails.
func (t *Tables) Version() string {
	return t.version
}

func (t *Tables) loadOverrides(cfg *domain.KnowledgeConfig) error {
	if cfg.PrevalencePath != "" {
		var entries []domain.PrevalenceEntry
		if err := loadJSONFile(cfg.PrevalencePath, &entries); err != nil {
			return fmt.Errorf("prevalence table: %w", err)
		}
		t.prevalence = entries
	}
	if cfg.ICD10Path != "" {
		var entries []domain.ICD10Entry
		if err := loadJSONFile(cfg.ICD10Path, &entries); err != nil {
			return fmt.Errorf("icd10 table: %w", err)
		}
		t.icd10 = entries
	}
	if cfg.InteractionsPath != "" {
		var entries []domain.DrugInteractionEntry
		if err := loadJSONFile(cfg.InteractionsPath, &entries); err != nil {
			return fmt.Errorf("interaction table: %w", err)
		}
		t.interactions = indexInteractions(entries)
	}
	return nil
}

func loadJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (t *Tables) validate() error {
	if len(t.prevalence) == 0 {
		return fmt.Errorf("prevalence table is empty")
	}
	for i, pe := range t.prevalence {
		if pe.ConditionName == "" {
			return fmt.Errorf("prevalence entry %d: condition name is required", i)
		}
		if pe.PopulationDescription == "" {
			return fmt.Errorf("prevalence entry %q: population description is required", pe.ConditionName)
		}
		if pe.MinPct < 0 || pe.MaxPct > 100 || pe.MinPct > pe.MaxPct {
			return fmt.Errorf("prevalence entry %q: invalid range %v-%v", pe.ConditionName, pe.MinPct, pe.MaxPct)
		}
	}

	if len(t.icd10) == 0 {
		return fmt.Errorf("icd10 table is empty")
	}
	for i, entry := range t.icd10 {
		if entry.Code == "" || entry.Label == "" {
			return fmt.Errorf("icd10 entry %d: code and label are required", i)
		}
		if len(entry.TriggerKeywords) == 0 {
			return fmt.Errorf("icd10 entry %s: at least one trigger keyword is required", entry.Code)
		}
	}

	for key, entry := range t.interactions {
		if entry.DrugA == "" || entry.DrugB == "" {
			return fmt.Errorf("interaction %s: both drug names are required", key)
		}
		if !entry.Severity.IsValid() {
			return fmt.Errorf("interaction %s: invalid severity %q", key, entry.Severity)
		}
	}

	for symptom, th := range t.durationThresholds {
		if th.ReviewDays < 1 || th.UrgentDays < th.ReviewDays {
			return fmt.Errorf("duration threshold for %q: review %d / urgent %d is invalid", symptom, th.ReviewDays, th.UrgentDays)
		}
	}

	for conditionType, days := range t.freshnessWindows {
		if days < 1 {
			return fmt.Errorf("freshness window for %q: %d days is invalid", conditionType, days)
		}
	}

	return nil
}

// SimpleAction resolves a normalized intent keyword to the external action
// target it maps to. The second return is false for intents that require the
// full clinical pipeline.
func (t *Tables) SimpleAction(intent string) (string, bool) {
	target, ok := t.simpleActions[intent]
	return target, ok
}

// SimpleActionIntents lists the recognized simple-action intent keywords.
func (t *Tables) SimpleActionIntents() []string {
	intents := make([]string, 0, len(t.simpleActions))
	for intent := range t.simpleActions {
		intents = append(intents, intent)
	}
	return intents
}

func builtinSimpleActions() map[string]string {
	return map[string]string{
		"schedule":               "scheduler.create_appointment",
		"reschedule":             "scheduler.move_appointment",
		"notify":                 "notifications.send",
		"remind":                 "notifications.send",
		"order-lab":              "orders.create_lab",
		"order lab":              "orders.create_lab",
		"check-interaction-only": "pharmacy.check_interactions",
		"check interaction":      "pharmacy.check_interactions",
		"fetch-record":           "ehr.fetch_record",
		"fetch record":           "ehr.fetch_record",
	}
}
