// -----------------------------------------------------------------------
// Research service - templated queries against the knowledge service
// -----------------------------------------------------------------------

package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"golang.org/x/time/rate"
)

// Service implements the ResearchService interface over a provider backend
// with rate limiting and a per-call timeout.
type Service struct {
	config   *common.ResearchConfig
	provider Provider
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   arbor.ILogger
}

// NewService creates a research service using the configured provider.
func NewService(config *common.ResearchConfig, logger arbor.ILogger) (*Service, error) {
	provider, err := NewProvider(config, logger)
	if err != nil {
		return nil, err
	}
	return NewServiceWithProvider(config, provider, logger), nil
}

// NewServiceWithProvider creates a research service over an existing
// provider. Used by tests to inject a fake backend.
func NewServiceWithProvider(config *common.ResearchConfig, provider Provider, logger arbor.ILogger) *Service {
	limit := rate.Limit(config.RateLimit)
	if config.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := config.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Service{
		config:   config,
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
		timeout:  config.TimeoutDuration(),
		logger:   logger,
	}
}

// Research issues one knowledge-service query and parses the structured
// result. An unparsable response returns ErrUnparsableResponse.
func (s *Service) Research(ctx context.Context, req *interfaces.ResearchRequest) (*models.ResearchResult, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("research request requires a name or search query")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait interrupted: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.config.MaxTokens
	}

	messages := []interfaces.Message{
		{Role: "system", Content: systemInstruction},
		{Role: "user", Content: buildPrompt(req)},
	}

	startTime := time.Now()
	s.logger.Debug().
		Str("entity_type", string(req.EntityType)).
		Str("job_type", string(req.JobType)).
		Str("name", req.Name).
		Str("provider", string(s.provider.GetProviderType())).
		Msg("Issuing research query")

	raw, err := s.provider.GenerateContent(timeoutCtx, messages, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("research query failed: %w", err)
	}

	result, err := parseResponse(req.EntityType, raw)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("name", req.Name).
			Int("response_length", len(raw)).
			Msg("Research response was not structured data")
		return nil, err
	}

	s.logger.Debug().
		Str("name", req.Name).
		Float64("confidence", result.Confidence).
		Int("entities", len(result.Entities)).
		Int("source_urls", len(result.SourceURLs)).
		Dur("duration", time.Since(startTime)).
		Msg("Research query completed")

	return result, nil
}

// HealthCheck exercises the provider with a minimal probe.
func (s *Service) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.provider.GenerateContent(probeCtx, []interfaces.Message{
		{Role: "user", Content: "ping"},
	}, 32)
	if err != nil {
		return fmt.Errorf("research provider probe failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("research provider probe returned empty response")
	}
	return nil
}

// Close releases the provider.
func (s *Service) Close() error {
	return s.provider.Close()
}
