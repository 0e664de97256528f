package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/clinical-reasoning-server/internal/domain"
)

// HTTPGenerator calls the external reasoning collaborator over HTTP. The
// collaborator owns sampling diversity; this client owns resilience: rate
// limiting, retries and a circuit breaker so a degraded collaborator fails
// fast instead of stalling every council seat.
type HTTPGenerator struct {
	logger     *logrus.Logger
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	retryCount int
}

// NewHTTPGenerator creates a new HTTP-backed opinion generator
func NewHTTPGenerator(cfg *domain.ReasoningConfig, logger *logrus.Logger) *HTTPGenerator {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "reasoning",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 10
	}

	return &HTTPGenerator{
		logger:     logger,
		client:     &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		retryCount: cfg.RetryCount,
	}
}

// Name identifies the backend for logging and audit trails.
func (g *HTTPGenerator) Name() string {
	return "http"
}

type opinionRequest struct {
	Encounter *domain.EncounterCase `json:"encounter"`
	Seat      int                   `json:"seat"`
}

// GenerateOpinion requests one opinion from the collaborator. Transient
// failures are retried with linear backoff up to the configured count;
// anything that survives the retries surfaces as UpstreamUnavailable.
func (g *HTTPGenerator) GenerateOpinion(ctx context.Context, encounter *domain.EncounterCase, seat int) (*domain.DiagnosticOpinion, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	attempts := g.retryCount + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		result, err := g.breaker.Execute(func() (interface{}, error) {
			return g.requestOpinion(ctx, encounter, seat)
		})
		if err == nil {
			return result.(*domain.DiagnosticOpinion), nil
		}
		lastErr = err

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	return nil, domain.NewPipelineError(domain.ErrUpstreamUnavailable, "reasoning", "reasoning collaborator request failed").
		WithEntity(encounter.EncounterID).WithCause(lastErr)
}

func (g *HTTPGenerator) requestOpinion(ctx context.Context, encounter *domain.EncounterCase, seat int) (*domain.DiagnosticOpinion, error) {
	body, err := json.Marshal(opinionRequest{Encounter: encounter, Seat: seat})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("collaborator returned status %d: %s", resp.StatusCode, string(data))
	}

	var opinion domain.DiagnosticOpinion
	if err := json.NewDecoder(resp.Body).Decode(&opinion); err != nil {
		return nil, fmt.Errorf("malformed opinion payload: %w", err)
	}
	if len(opinion.RankedDiagnoses) == 0 {
		return nil, fmt.Errorf("collaborator returned an empty opinion")
	}
	if opinion.OpinionID == "" {
		opinion.OpinionID = fmt.Sprintf("%s-seat%d", encounter.EncounterID, seat)
	}
	return &opinion, nil
}
