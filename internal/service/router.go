package service

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// RouterService classifies incoming requests as simple actions or full
// clinical pipeline runs. Routing is a pure decision with no side effects;
// the failure direction is always toward the fuller pipeline, never toward
// an unchecked direct action.
type RouterService struct {
	logger  *logrus.Logger
	tables  *knowledge.Tables
	intents []string // sorted for deterministic matching
}

// NewRouterService creates a new tool router
func NewRouterService(tables *knowledge.Tables, logger *logrus.Logger) *RouterService {
	intents := tables.SimpleActionIntents()
	sort.Strings(intents)
	return &RouterService{
		logger:  logger,
		tables:  tables,
		intents: intents,
	}
}

// Route decides how a normalized request is handled. An attached image
// always takes the clinical path; otherwise the intent text is matched
// against the simple-action catalogue, and anything unrecognized defaults
// to clinical.
func (s *RouterService) Route(request *domain.RouteRequest) domain.RouteDecision {
	if request.HasImage {
		return domain.RouteDecision{
			Kind:   domain.ROUTE_CLINICAL,
			Reason: "attached imaging always requires the full pipeline",
		}
	}

	intent := strings.ToLower(strings.TrimSpace(request.Intent))
	for _, keyword := range s.intents {
		if strings.Contains(intent, keyword) {
			target, _ := s.tables.SimpleAction(keyword)
			s.logger.WithFields(logrus.Fields{
				"intent": request.Intent,
				"target": target,
			}).Debug("Request routed to simple action")
			return domain.RouteDecision{
				Kind:   domain.ROUTE_SIMPLE,
				Target: target,
				Reason: "intent matched simple action " + keyword,
			}
		}
	}

	return domain.RouteDecision{
		Kind:   domain.ROUTE_CLINICAL,
		Reason: "intent did not match any simple action",
	}
}
