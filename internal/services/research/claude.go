package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
)

// ClaudeProvider implements the Provider interface using the Anthropic
// Claude API.
type ClaudeProvider struct {
	config *common.ClaudeConfig
	logger arbor.ILogger
	client anthropic.Client
}

// NewClaudeProvider creates a new Claude provider instance.
func NewClaudeProvider(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for the Claude provider (set ANTHROPIC_API_KEY or research.claude.api_key)")
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	logger.Debug().
		Str("model", config.Model).
		Float32("temperature", config.Temperature).
		Msg("Claude research provider initialized")

	return &ClaudeProvider{
		config: config,
		logger: logger,
		client: client,
	}, nil
}

// convertMessagesToClaude converts []interfaces.Message to Claude
// MessageParam format. System messages are extracted separately for use
// with the System parameter.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		switch msg.Role {
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	if len(claudeMessages) == 0 {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	return claudeMessages, systemText, nil
}

// GenerateContent sends the conversation to Claude and returns the text
// response.
func (p *ClaudeProvider) GenerateContent(ctx context.Context, messages []interfaces.Message, maxTokens int) (string, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Claude format: %w", err)
	}

	if maxTokens <= 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}

	if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(p.config.Temperature))
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	return response.String(), nil
}

// GetProviderType returns the provider type.
func (p *ClaudeProvider) GetProviderType() ProviderType {
	return ProviderClaude
}

// Close releases provider resources. The Claude client holds no connections
// that require explicit shutdown.
func (p *ClaudeProvider) Close() error {
	return nil
}
