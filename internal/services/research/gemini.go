package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface using the Google Gemini
// API.
type GeminiProvider struct {
	config *common.GeminiConfig
	logger arbor.ILogger
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider instance.
func NewGeminiProvider(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for the Gemini provider (set GEMINI_API_KEY or research.gemini.api_key)")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.Debug().
		Str("model", config.Model).
		Float32("temperature", config.Temperature).
		Msg("Gemini research provider initialized")

	return &GeminiProvider{
		config: config,
		logger: logger,
		client: client,
	}, nil
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format, extracting the first system message for SystemInstruction.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		geminiRole := genai.RoleUser
		if msg.Role == "assistant" {
			geminiRole = genai.RoleModel
		}

		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	if len(contents) == 0 {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	return contents, systemText, nil
}

// GenerateContent sends the conversation to Gemini and returns the text
// response.
func (p *GeminiProvider) GenerateContent(ctx context.Context, messages []interfaces.Message, maxTokens int) (string, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.config.Temperature),
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Gemini API")
	}

	return response.String(), nil
}

// GetProviderType returns the provider type.
func (p *GeminiProvider) GetProviderType() ProviderType {
	return ProviderGemini
}

// Close releases the client reference. The genai.Client doesn't require an
// explicit close.
func (p *GeminiProvider) Close() error {
	p.client = nil
	return nil
}
