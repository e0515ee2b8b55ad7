// -----------------------------------------------------------------------
// Provider factory - Claude and Gemini knowledge-service backends
// -----------------------------------------------------------------------

package research

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// Provider defines the interface for knowledge-service content generation
type Provider interface {
	GenerateContent(ctx context.Context, messages []interfaces.Message, maxTokens int) (string, error)
	GetProviderType() ProviderType
	Close() error
}

// NewProvider creates the configured provider backend.
func NewProvider(config *common.ResearchConfig, logger arbor.ILogger) (Provider, error) {
	switch ProviderType(config.Provider) {
	case ProviderClaude, "":
		return NewClaudeProvider(&config.Claude, logger)
	case ProviderGemini:
		return NewGeminiProvider(&config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown research provider %q (expected claude or gemini)", config.Provider)
	}
}
