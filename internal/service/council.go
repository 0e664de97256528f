package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/clinical-reasoning-server/internal/domain"
)

// CouncilService aggregates a fixed number of independently generated
// diagnostic opinions into a consensus. Opinion diversity belongs to the
// reasoning backend; the council only dispatches and scores.
type CouncilService struct {
	logger       *logrus.Logger
	generator    domain.OpinionGenerator
	opinionCount int
	timeout      time.Duration
}

// NewCouncilService creates a new diagnostic council
func NewCouncilService(generator domain.OpinionGenerator, cfg *domain.PipelineConfig, logger *logrus.Logger) *CouncilService {
	return &CouncilService{
		logger:       logger,
		generator:    generator,
		opinionCount: cfg.OpinionCount,
		timeout:      cfg.CouncilTimeout,
	}
}

// Deliberate dispatches the configured number of opinion requests
// concurrently and joins them under a bounded timeout. A failed or
// timed-out seat is excluded from consensus rather than aborting the
// deliberation; zero successful opinions is a hard failure for this stage.
func (s *CouncilService) Deliberate(ctx context.Context, encounter *domain.EncounterCase) (*domain.ConsensusResult, []domain.DiagnosticOpinion, error) {
	if s.opinionCount < 1 {
		return nil, nil, domain.NewPipelineError(domain.ErrConfiguration, "council", "opinion count must be >= 1").
			WithEntity(encounter.EncounterID)
	}

	seats := make([]*domain.DiagnosticOpinion, s.opinionCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opinionCount)
	for seat := 0; seat < s.opinionCount; seat++ {
		seat := seat
		g.Go(func() error {
			seatCtx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			opinion, err := s.generator.GenerateOpinion(seatCtx, encounter, seat)
			if err != nil {
				// Seat failure is recovered by exclusion, never by abort.
				s.logger.WithError(err).WithFields(logrus.Fields{
					"encounter_id": encounter.EncounterID,
					"seat":         seat,
					"backend":      s.generator.Name(),
				}).Warn("Opinion generation failed, excluding seat from consensus")
				return nil
			}
			seats[seat] = opinion
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	opinions := make([]domain.DiagnosticOpinion, 0, s.opinionCount)
	for _, opinion := range seats {
		if opinion == nil {
			continue
		}
		if _, ok := opinion.Top(); !ok {
			continue
		}
		opinions = append(opinions, *opinion)
	}

	if len(opinions) == 0 {
		return nil, nil, domain.NewPipelineError(domain.ErrInsufficientOpinions, "council", "no diagnostic opinions succeeded").
			WithEntity(encounter.EncounterID)
	}

	consensus := computeConsensus(opinions)

	s.logger.WithFields(logrus.Fields{
		"encounter_id":       encounter.EncounterID,
		"requested_opinions": s.opinionCount,
		"usable_opinions":    len(opinions),
		"top_diagnosis":      consensus.TopDiagnosis,
		"agreement":          consensus.AgreementFraction,
		"strength":           consensus.Strength.String(),
	}).Info("Diagnostic council reached consensus")

	return consensus, opinions, nil
}

type diagnosisGroup struct {
	label         string // display form from the first agreeing opinion
	count         int
	confidenceSum float64
	urgency       domain.Urgency
}

// computeConsensus groups opinions by their case-insensitive top diagnosis.
// The agreement fraction is measured against the opinions that actually
// deliberated, so excluded seats do not dilute the score. Ties between
// equal-size groups prefer the higher mean confidence, then the label that
// sorts first. Identical-opinion collapse is legitimate Strong consensus.
func computeConsensus(opinions []domain.DiagnosticOpinion) *domain.ConsensusResult {
	groups := make(map[string]*diagnosisGroup)
	for _, opinion := range opinions {
		top, _ := opinion.Top()
		key := strings.ToLower(strings.TrimSpace(top.Label))
		group, ok := groups[key]
		if !ok {
			group = &diagnosisGroup{label: top.Label, urgency: domain.ROUTINE}
			groups[key] = group
		}
		group.count++
		group.confidenceSum += top.Confidence
		group.urgency = domain.MaxUrgency(group.urgency, opinion.Urgency)
	}

	ordered := make([]*diagnosisGroup, 0, len(groups))
	for _, group := range groups {
		ordered = append(ordered, group)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		meanI := ordered[i].confidenceSum / float64(ordered[i].count)
		meanJ := ordered[j].confidenceSum / float64(ordered[j].count)
		if meanI != meanJ {
			return meanI > meanJ
		}
		return strings.ToLower(ordered[i].label) < strings.ToLower(ordered[j].label)
	})

	winner := ordered[0]
	agreement := float64(winner.count) / float64(len(opinions))

	var dissenting []string
	for _, group := range ordered[1:] {
		dissenting = append(dissenting, group.label)
	}

	return &domain.ConsensusResult{
		TopDiagnosis:      winner.label,
		AgreementFraction: agreement,
		Strength:          domain.StrengthForAgreement(agreement),
		MeanConfidence:    winner.confidenceSum / float64(winner.count),
		Dissenting:        dissenting,
		Urgency:           winner.urgency,
		Summary: fmt.Sprintf("%d of %d opinions favor %s",
			winner.count, len(opinions), winner.label),
	}
}
